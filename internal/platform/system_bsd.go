//go:build darwin || freebsd

package platform

import (
	"context"
	"net"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// activeNetwork resolves the interface carrying the default route from the
// kernel routing table, IPv4 first, then IPv6.
func activeNetwork() (Network, bool) {
	for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
		rib, err := route.FetchRIB(family, route.RIBTypeRoute, 0)
		if err != nil {
			continue
		}
		if name, ok := defaultRouteInterface(rib); ok {
			return networkByName(name), true
		}
	}
	return Network{}, false
}

func hasInternetCapability(n Network) bool {
	if !interfaceUp(n.Name) {
		return false
	}
	if !interfaceHasUsableAddr(n.Name) {
		return false
	}
	return hasDNSResolver()
}

func defaultRouteInterface(rib []byte) (string, bool) {
	msgs, err := route.ParseRIB(route.RIBTypeRoute, rib)
	if err != nil {
		return "", false
	}
	for _, m := range msgs {
		rm, ok := m.(*route.RouteMessage)
		if !ok {
			continue
		}
		if len(rm.Addrs) <= unix.RTAX_DST {
			continue
		}
		if !isUnspecifiedAddr(rm.Addrs[unix.RTAX_DST]) {
			continue
		}
		ifi, err := net.InterfaceByIndex(rm.Index)
		if err != nil {
			continue
		}
		return ifi.Name, true
	}
	return "", false
}

func isUnspecifiedAddr(a route.Addr) bool {
	switch t := a.(type) {
	case *route.Inet4Addr:
		return t.IP == [4]byte{}
	case *route.Inet6Addr:
		return t.IP == [16]byte{}
	default:
		return false
	}
}

// watchRaw reads the AF_ROUTE socket; every routing message counts as a
// potential connectivity change and gets settled by the debounce upstream.
func watchRaw(ctx context.Context, _ Options) (<-chan rawEvent, error) {
	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return nil, err
	}

	out := make(chan rawEvent, 8)

	// Read has no deadline; closing the fd on cancellation is what
	// unblocks the read loop, so unsubscribing cannot leak the socket.
	go func() {
		<-ctx.Done()
		unix.Close(fd)
	}()

	go func() {
		defer close(out)

		buf := make([]byte, 1<<16)
		for {
			if _, err := unix.Read(fd, buf); err != nil {
				return
			}
			select {
			case out <- rawEvent{reason: "routing message"}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
