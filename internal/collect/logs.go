package collect

import (
	"bufio"
	"log/slog"
	"os"
	"syscall"

	"github.com/loggard/loggard/internal/config"
	"github.com/loggard/loggard/internal/store"
)

// tailState remembers where the previous pass stopped in one file. The inode
// detects rotation with rename; a shrinking size detects truncation in place.
// Either one resets the offset to zero.
type tailState struct {
	offset int64
	inode  uint64
}

// LogCollector tails the configured log files and extracts structured events
// from the lines appended since the previous pass.
type LogCollector struct {
	sources []config.LogSource
	logger  *slog.Logger
	state   map[string]*tailState
}

func NewLogCollector(sources []config.LogSource, logger *slog.Logger) *LogCollector {
	return &LogCollector{
		sources: sources,
		logger:  logger,
		state:   make(map[string]*tailState, len(sources)),
	}
}

// Collect reads new lines from every enabled source. A missing or unreadable
// file is skipped, not fatal; the host may simply not run that service.
func (c *LogCollector) Collect() []store.LogEvent {
	var events []store.LogEvent
	for _, src := range c.sources {
		if !src.Enabled {
			continue
		}
		parsed, err := c.tail(src)
		if err != nil {
			c.logger.Debug("log source unavailable", "source", src.Name, "path", src.Path, "error", err)
			continue
		}
		events = append(events, parsed...)
	}
	return events
}

func (c *LogCollector) tail(src config.LogSource) ([]store.LogEvent, error) {
	fi, err := os.Stat(src.Path)
	if err != nil {
		return nil, err
	}

	st := c.state[src.Path]
	if st == nil {
		st = &tailState{}
		c.state[src.Path] = st
	}
	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		if st.inode != 0 && sys.Ino != st.inode {
			c.logger.Info("log file rotated", "source", src.Name, "path", src.Path)
			st.offset = 0
		}
		st.inode = sys.Ino
	}
	if fi.Size() < st.offset {
		st.offset = 0
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(st.offset, 0); err != nil {
		return nil, err
	}

	var events []store.LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if event, ok := ParseLine(src.Name, scanner.Text()); ok {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return events, err
	}

	pos, err := f.Seek(0, 1)
	if err != nil {
		return events, err
	}
	st.offset = pos
	return events, nil
}
