//go:build linux

package platform

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// activeNetwork resolves the interface carrying the default route, checking
// IPv4 first and falling back to IPv6.
func activeNetwork() (Network, bool) {
	if name, ok := defaultRouteV4(); ok {
		return networkByName(name), true
	}
	if name, ok := defaultRouteV6(); ok {
		return networkByName(name), true
	}
	return Network{}, false
}

// hasInternetCapability gates on the interface being operationally up with
// a usable address and a non-loopback DNS resolver being configured.
func hasInternetCapability(n Network) bool {
	if !interfaceUp(n.Name) {
		return false
	}
	if !operState(n.Name) {
		return false
	}
	if !interfaceHasUsableAddr(n.Name) {
		return false
	}
	return hasDNSResolver()
}

func defaultRouteV4() (string, bool) {
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header row
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		iface, dest, flagsHex := fields[0], fields[1], fields[3]
		if dest != "00000000" {
			continue
		}
		flags, _ := strconv.ParseInt(flagsHex, 16, 64)
		const routeUp = 0x1
		if flags&routeUp != 0 && iface != "" {
			return iface, true
		}
	}
	return "", false
}

func defaultRouteV6() (string, bool) {
	data, err := os.ReadFile("/proc/net/ipv6_route")
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 10 {
			continue
		}
		if fields[1] != "000" { // destination prefix length, ::/0
			continue
		}
		idx, err := strconv.ParseInt(fields[9], 16, 32)
		if err != nil {
			continue
		}
		if name := interfaceNameByIndex(int(idx)); name != "" {
			return name, true
		}
	}
	return "", false
}

// operState consults sysfs; "unknown" counts as up because some virtual
// interfaces never report an operstate.
func operState(name string) bool {
	if b, err := os.ReadFile(filepath.Join("/sys/class/net", name, "operstate")); err == nil {
		s := strings.TrimSpace(string(b))
		if s != "up" && s != "unknown" {
			return false
		}
	}
	return true
}

// watchRaw subscribes to rtnetlink route, address and link multicast groups
// and forwards each message burst as a rawEvent.
func watchRaw(ctx context.Context, _ Options) (<-chan rawEvent, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE)
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: unix.RTMGRP_LINK |
			unix.RTMGRP_IPV4_IFADDR | unix.RTMGRP_IPV6_IFADDR |
			unix.RTMGRP_IPV4_ROUTE | unix.RTMGRP_IPV6_ROUTE,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, err
	}

	out := make(chan rawEvent, 8)

	// Recvfrom has no deadline; closing the fd on cancellation is what
	// unblocks the read loop, so unsubscribing cannot leak the socket.
	go func() {
		<-ctx.Done()
		unix.Close(fd)
	}()

	go func() {
		defer close(out)

		buf := make([]byte, 1<<16)
		for {
			n, _, err := unix.Recvfrom(fd, buf, 0)
			if err != nil {
				if errors.Is(err, unix.EINTR) {
					continue
				}
				// fd closed by cancellation, or a fatal receive error
				return
			}
			for _, reason := range classifyNetlink(buf[:n]) {
				select {
				case out <- rawEvent{reason: reason}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type netlinkHeader struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

func classifyNetlink(b []byte) []string {
	var reasons []string
	const hdrLen = int(unsafe.Sizeof(netlinkHeader{}))
	for len(b) >= hdrLen {
		h := *(*netlinkHeader)(unsafe.Pointer(&b[0]))
		if h.Len < uint32(hdrLen) || int(h.Len) > len(b) {
			break
		}
		switch h.Type {
		case unix.RTM_NEWROUTE, unix.RTM_DELROUTE:
			reasons = append(reasons, "route change")
		case unix.RTM_NEWADDR, unix.RTM_DELADDR:
			reasons = append(reasons, "address change")
		case unix.RTM_NEWLINK, unix.RTM_DELLINK:
			reasons = append(reasons, "link change")
		}
		adv := int((h.Len + 3) &^ 3)
		if adv <= 0 || adv > len(b) {
			break
		}
		b = b[adv:]
	}
	return reasons
}
