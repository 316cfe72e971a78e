package trace

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loggard/loggard/internal/store"
)

var tcpStateNames = map[string]string{
	"01": "ESTABLISHED",
	"02": "SYN_SENT",
	"03": "SYN_RECV",
	"04": "FIN_WAIT1",
	"05": "FIN_WAIT2",
	"06": "TIME_WAIT",
	"07": "CLOSE",
	"08": "CLOSE_WAIT",
	"09": "LAST_ACK",
	"0A": "LISTEN",
	"0B": "CLOSING",
}

const maxConnectionSnapshots = 10

// connectionsByIP lists live TCP connections whose remote side is ip.
func (e *Enricher) connectionsByIP(ip string) []store.NetworkTrace {
	if ip == "" {
		return nil
	}
	now := time.Now().Unix()
	var conns []store.NetworkTrace
	for _, file := range []string{"net/tcp", "net/tcp6"} {
		data, err := os.ReadFile(filepath.Join(e.procRoot, file))
		if err != nil {
			continue
		}
		v6 := strings.HasSuffix(file, "6")
		lines := strings.Split(string(data), "\n")
		for _, line := range lines[1:] {
			fields := strings.Fields(line)
			if len(fields) < 4 {
				continue
			}
			localIP, localPort, err := parseHexAddr(fields[1], v6)
			if err != nil {
				continue
			}
			remoteIP, remotePort, err := parseHexAddr(fields[2], v6)
			if err != nil {
				continue
			}
			if remoteIP != ip {
				continue
			}
			state := tcpStateNames[fields[3]]
			if state == "" {
				state = fields[3]
			}
			conns = append(conns, store.NetworkTrace{
				Timestamp:  now,
				LocalIP:    localIP,
				LocalPort:  localPort,
				RemoteIP:   remoteIP,
				RemotePort: remotePort,
				State:      state,
				Protocol:   "tcp",
			})
			if len(conns) >= maxConnectionSnapshots {
				return conns
			}
		}
	}
	return conns
}

// parseHexAddr decodes the ADDR:PORT format of /proc/net/tcp. IPv4 words
// are little-endian; v6 addresses come as four little-endian 32-bit groups.
func parseHexAddr(addr string, v6 bool) (string, int, error) {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed address %q", addr)
	}
	port64, err := strconv.ParseInt(parts[1], 16, 32)
	if err != nil {
		return "", 0, err
	}
	raw, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", 0, err
	}

	if !v6 {
		if len(raw) != 4 {
			return "", 0, fmt.Errorf("bad v4 address length %d", len(raw))
		}
		ip := net.IPv4(raw[3], raw[2], raw[1], raw[0])
		return ip.String(), int(port64), nil
	}

	if len(raw) != 16 {
		return "", 0, fmt.Errorf("bad v6 address length %d", len(raw))
	}
	ip := make(net.IP, 16)
	for group := 0; group < 4; group++ {
		for i := 0; i < 4; i++ {
			ip[group*4+i] = raw[group*4+3-i]
		}
	}
	return ip.String(), int(port64), nil
}
