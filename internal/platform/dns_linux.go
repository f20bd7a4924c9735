//go:build linux

package platform

// hasDNSResolver checks the systemd-resolved stub config first, then the
// classic resolv.conf. Loopback-only resolvers do not count: with no
// upstream they cannot answer anything.
func hasDNSResolver() bool {
	paths := []string{"/run/systemd/resolve/resolv.conf", "/etc/resolv.conf"}
	for _, p := range paths {
		if resolvConfHasNameserver(p, true) {
			return true
		}
	}
	return false
}
