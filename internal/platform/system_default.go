//go:build !linux && !darwin && !freebsd

package platform

import (
	"bytes"
	"context"
	"crypto/sha1"
	"io"
	"net"
	"time"
)

// Platforms without a native change-notification source fall back to
// polling: the interface table is hashed on a fixed cadence and any
// checksum change is reported as a raw event.

func activeNetwork() (Network, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return Network{}, false
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		if interfaceHasUsableAddr(ifi.Name) {
			return Network{Index: ifi.Index, Name: ifi.Name}, true
		}
	}
	return Network{}, false
}

func hasInternetCapability(n Network) bool {
	return interfaceUp(n.Name) && interfaceHasUsableAddr(n.Name)
}

func watchRaw(ctx context.Context, opts Options) (<-chan rawEvent, error) {
	out := make(chan rawEvent, 8)
	go func() {
		defer close(out)

		ticker := time.NewTicker(opts.PollInterval)
		defer ticker.Stop()

		last := interfaceChecksum()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sum := interfaceChecksum()
				if bytes.Equal(sum, last) {
					continue
				}
				last = sum
				select {
				case out <- rawEvent{reason: "interface table change"}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func interfaceChecksum() []byte {
	hasher := sha1.New() // change detection only
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, ifi := range ifaces {
		_, _ = io.WriteString(hasher, ifi.Name)
		_, _ = io.WriteString(hasher, ifi.Flags.String())
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			_, _ = io.WriteString(hasher, addr.String())
		}
	}
	return hasher.Sum(nil)
}
