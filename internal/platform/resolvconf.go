package platform

import (
	"bufio"
	"net"
	"os"
	"strings"
)

func resolvConfHasNameserver(path string, skipLoopback bool) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "nameserver") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ip := net.ParseIP(fields[1])
		if ip == nil {
			continue
		}
		if skipLoopback && ip.IsLoopback() {
			continue
		}
		return true
	}
	return false
}
