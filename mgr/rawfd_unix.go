//go:build linux || darwin || freebsd || netbsd || openbsd

package mgr

import "syscall"

// connFD extracts the underlying file descriptor from a net.Conn, net.Listener,
// or net.PacketConn that implements syscall.Conn, so it can be registered with
// the readiness poller. Actual reads/writes still go through the net package;
// this fd is used only to ask the kernel whether anything is ready yet.
func connFD(sc syscall.Conn) (int, bool) {
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}
	var fd int
	if ctrlErr := rc.Control(func(fdv uintptr) { fd = int(fdv) }); ctrlErr != nil {
		return 0, false
	}
	return fd, true
}
