package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/loggard/loggard/internal/store"
)

// cpuTimes holds the jiffy counters of the aggregate cpu line in /proc/stat.
type cpuTimes struct {
	busy  uint64
	total uint64
}

// SystemCollector samples host-level resource state from procfs. CPU percent
// is a delta between two consecutive reads, so the first call after startup
// yields no sample.
type SystemCollector struct {
	procRoot string
	diskPath string

	lastCPU *cpuTimes
}

// NewSystemCollector builds a collector reading procRoot (normally "/proc")
// and measuring filesystem usage for the volume holding diskPath.
func NewSystemCollector(procRoot, diskPath string) *SystemCollector {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &SystemCollector{procRoot: procRoot, diskPath: filepath.Dir(diskPath)}
}

// Collect reads one sample. ok is false on the priming read that only
// establishes the CPU baseline.
func (c *SystemCollector) Collect() (sample store.SystemSample, ok bool, err error) {
	cur, err := c.readCPUTimes()
	if err != nil {
		return store.SystemSample{}, false, err
	}
	prev := c.lastCPU
	c.lastCPU = &cur
	if prev == nil {
		return store.SystemSample{}, false, nil
	}

	sample = store.SystemSample{
		Timestamp: time.Now().Unix(),
		CPUCount:  runtime.NumCPU(),
	}

	if dTotal := cur.total - prev.total; dTotal > 0 && cur.total >= prev.total && cur.busy >= prev.busy {
		sample.CPUPercent = float64(cur.busy-prev.busy) / float64(dTotal) * 100
	}

	total, avail := c.readMeminfo()
	sample.MemoryTotal = total
	sample.MemoryAvail = avail
	if total > 0 {
		sample.MemoryPercent = float64(total-avail) / float64(total) * 100
	}

	sample.DiskTotal, sample.DiskUsed = diskUsage(c.diskPath)
	if sample.DiskTotal > 0 {
		sample.DiskPercent = float64(sample.DiskUsed) / float64(sample.DiskTotal) * 100
	}
	sample.DiskReadBytes, sample.DiskWriteBytes = c.readDiskstats()
	sample.Load1Min, sample.Load5Min, sample.Load15Min = c.readLoadavg()

	return sample, true, nil
}

// readCPUTimes parses the aggregate "cpu" line. Idle and iowait count as
// idle time; everything else is busy.
func (c *SystemCollector) readCPUTimes() (cpuTimes, error) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "stat"))
	if err != nil {
		return cpuTimes{}, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		var t cpuTimes
		for i, f := range fields[1:] {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return cpuTimes{}, fmt.Errorf("parse cpu field %d: %w", i, err)
			}
			t.total += v
			// fields: user nice system idle iowait irq softirq steal ...
			if i != 3 && i != 4 {
				t.busy += v
			}
		}
		return t, nil
	}
	return cpuTimes{}, fmt.Errorf("no cpu line in %s/stat", c.procRoot)
}

func (c *SystemCollector) readMeminfo() (total, avail int64) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		return 0, 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = kb * 1024
		case "MemAvailable:":
			avail = kb * 1024
		}
	}
	return total, avail
}

func (c *SystemCollector) readLoadavg() (l1, l5, l15 float64) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "loadavg"))
	if err != nil {
		return 0, 0, 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0
	}
	l1, _ = strconv.ParseFloat(fields[0], 64)
	l5, _ = strconv.ParseFloat(fields[1], 64)
	l15, _ = strconv.ParseFloat(fields[2], 64)
	return l1, l5, l15
}

// readDiskstats sums sector counters over whole physical devices, skipping
// partitions, loop and ram devices. Counters are cumulative since boot.
func (c *SystemCollector) readDiskstats() (readBytes, writeBytes int64) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "diskstats"))
	if err != nil {
		return 0, 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}
		name := fields[2]
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") || isPartition(name) {
			continue
		}
		rd, _ := strconv.ParseInt(fields[5], 10, 64)
		wr, _ := strconv.ParseInt(fields[9], 10, 64)
		readBytes += rd * 512
		writeBytes += wr * 512
	}
	return readBytes, writeBytes
}

// isPartition distinguishes sda1 from sda and nvme0n1p2 from nvme0n1, so
// device and partition counters are not double counted.
func isPartition(name string) bool {
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		return partitionSuffixRe.MatchString(name)
	}
	last := name[len(name)-1]
	return last >= '0' && last <= '9'
}

var partitionSuffixRe = regexp.MustCompile(`p\d+$`)

func diskUsage(path string) (total, used int64) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0
	}
	total = int64(stat.Blocks) * int64(stat.Bsize)
	free := int64(stat.Bavail) * int64(stat.Bsize)
	return total, total - free
}
