package sidecar

import "net"

// PickPort finds an unused ephemeral TCP port by binding 127.0.0.1:0 and
// reading back the kernel-assigned port. On any allocation failure it
// returns DefaultPort rather than an error.
//
// There is no guarantee the port remains free between the listener
// closing and the sidecar binding it; the window is accepted because the
// sidecar binds immediately after receiving the port argument.
func PickPort() uint16 {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return DefaultPort
	}
	defer func() { _ = l.Close() }()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok || addr.Port <= 0 || addr.Port > 65535 {
		return DefaultPort
	}
	return uint16(addr.Port)
}
