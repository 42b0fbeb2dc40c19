//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package mgr

import "syscall"

// connFD has no raw-fd path outside the unix poller backend; affected
// connections fall back to the caller-bounded sleep in Poll.
func connFD(syscall.Conn) (int, bool) { return 0, false }
