package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loggard/loggard/internal/store"
)

// NetworkCollector samples interface counters from /proc/net/dev and TCP
// connection state counts from /proc/net/tcp and tcp6. Counters are the raw
// monotonic totals; rate math happens at aggregation time.
type NetworkCollector struct {
	procRoot string
}

func NewNetworkCollector(procRoot string) *NetworkCollector {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &NetworkCollector{procRoot: procRoot}
}

func (c *NetworkCollector) Collect() (store.NetworkSample, error) {
	sample := store.NetworkSample{Timestamp: time.Now().Unix()}
	if err := c.readNetDev(&sample); err != nil {
		return store.NetworkSample{}, err
	}
	for _, file := range []string{"net/tcp", "net/tcp6"} {
		c.countTCPStates(file, &sample)
	}
	return sample, nil
}

// readNetDev sums all interfaces except loopback. Columns per side:
// bytes packets errs drop fifo frame compressed multicast.
func (c *NetworkCollector) readNetDev(sample *store.NetworkSample) error {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "net/dev"))
	if err != nil {
		return fmt.Errorf("read net/dev: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		iface := strings.TrimSpace(line[:idx])
		if iface == "lo" {
			continue
		}
		fields := strings.Fields(line[idx+1:])
		if len(fields) < 12 {
			continue
		}
		sample.BytesRecv += parseCol(fields, 0)
		sample.PacketsRecv += parseCol(fields, 1)
		sample.ErrorsIn += parseCol(fields, 2)
		sample.DropsIn += parseCol(fields, 3)
		sample.BytesSent += parseCol(fields, 8)
		sample.PacketsSent += parseCol(fields, 9)
		sample.ErrorsOut += parseCol(fields, 10)
		sample.DropsOut += parseCol(fields, 11)
	}
	return nil
}

// Kernel TCP state codes in /proc/net/tcp column 4.
const (
	tcpEstablished = "01"
	tcpTimeWait    = "06"
	tcpListen      = "0A"
)

func (c *NetworkCollector) countTCPStates(file string, sample *store.NetworkSample) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, file))
	if err != nil {
		return
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		switch fields[3] {
		case tcpEstablished:
			sample.ConnEstablished++
		case tcpListen:
			sample.ConnListen++
		case tcpTimeWait:
			sample.ConnTimeWait++
		}
	}
}

func parseCol(fields []string, i int) int64 {
	v, _ := strconv.ParseInt(fields[i], 10, 64)
	return v
}
