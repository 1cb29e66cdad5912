//go:build !linux && !darwin && !freebsd

package socket

import "net"

// SO_REUSEPORT is not available, reusePort is ignored.
func listenConfig(_ bool) net.ListenConfig {
	return net.ListenConfig{}
}
