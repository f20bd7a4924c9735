//go:build darwin || freebsd

package platform

func hasDNSResolver() bool {
	return resolvConfHasNameserver("/etc/resolv.conf", false)
}
