package trace

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loggard/loggard/internal/store"
)

// maxProcessSnapshots bounds the per-trace process fan-out; one event never
// needs more than a handful of matching processes for context.
const maxProcessSnapshots = 5

// snapshotProcessesByName captures the live state of processes whose comm
// name contains name. Processes that exit mid-read are skipped.
func (e *Enricher) snapshotProcessesByName(name string) []store.ProcessTrace {
	if name == "" {
		return nil
	}
	entries, err := os.ReadDir(e.procRoot)
	if err != nil {
		return nil
	}

	now := time.Now().Unix()
	var snapshots []store.ProcessTrace
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(e.procRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if !strings.Contains(strings.TrimSpace(string(comm)), name) {
			continue
		}
		snap, ok := e.snapshotProcess(pid)
		if !ok {
			continue
		}
		snap.Timestamp = now
		snapshots = append(snapshots, snap)
		if len(snapshots) >= maxProcessSnapshots {
			break
		}
	}
	return snapshots
}

func (e *Enricher) snapshotProcess(pid int) (store.ProcessTrace, bool) {
	dir := filepath.Join(e.procRoot, strconv.Itoa(pid))
	snap := store.ProcessTrace{PID: pid}

	statData, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return store.ProcessTrace{}, false
	}
	// The comm field is parenthesized and may contain spaces; split after
	// the last ')'.
	stat := string(statData)
	close := strings.LastIndexByte(stat, ')')
	open := strings.IndexByte(stat, '(')
	if open < 0 || close < 0 || close < open {
		return store.ProcessTrace{}, false
	}
	snap.Name = stat[open+1 : close]
	fields := strings.Fields(stat[close+1:])
	// After comm: state ppid ... utime(11) stime(12) ... num_threads(17) ... vsize(20) rss(21)
	if len(fields) > 0 {
		snap.State = fields[0]
	}
	if len(fields) > 1 {
		snap.ParentPID, _ = strconv.Atoi(fields[1])
	}
	if len(fields) > 12 {
		snap.CPUUTime, _ = strconv.ParseInt(fields[11], 10, 64)
		snap.CPUSTime, _ = strconv.ParseInt(fields[12], 10, 64)
	}
	if len(fields) > 17 {
		snap.Threads, _ = strconv.Atoi(fields[17])
	}
	if len(fields) > 21 {
		snap.MemoryVM, _ = strconv.ParseInt(fields[20], 10, 64)
		pages, _ := strconv.ParseInt(fields[21], 10, 64)
		snap.MemoryRSS = pages * int64(os.Getpagesize())
	}

	if cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		snap.Cmdline = strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))
	}
	snap.ReadBytes, snap.WriteBytes = readProcIO(dir)
	return snap, true
}

func readProcIO(dir string) (readBytes, writeBytes int64) {
	data, err := os.ReadFile(filepath.Join(dir, "io"))
	if err != nil {
		return 0, 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "read_bytes":
			readBytes, _ = strconv.ParseInt(fields[1], 10, 64)
		case "write_bytes":
			writeBytes, _ = strconv.ParseInt(fields[1], 10, 64)
		}
	}
	return readBytes, writeBytes
}
