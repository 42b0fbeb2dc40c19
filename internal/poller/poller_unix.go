//go:build linux || darwin || freebsd || netbsd || openbsd

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// unixPoller wraps unix.Poll. x/sys/unix implements Poll natively per-OS
// (epoll under the hood on Linux via a poll(2) emulation layer on some
// kernels, the real poll(2) syscall elsewhere), giving one call site instead
// of a separate epoll/kqueue backend per OS.
type unixPoller struct {
	mu    sync.Mutex
	fds   map[int]*entry
	order []int
}

type entry struct {
	fd    int
	write bool
}

func New() Poller {
	return &unixPoller{fds: make(map[int]*entry)}
}

func (p *unixPoller) Add(fd int, wantWrite bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.fds[fd]; !ok {
		p.order = append(p.order, fd)
	}
	p.fds[fd] = &entry{fd: fd, write: wantWrite}
	return nil
}

func (p *unixPoller) SetWriteInterest(fd int, want bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.fds[fd]; ok {
		e.write = want
	}
	return nil
}

func (p *unixPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.fds, fd)
	for i, f := range p.order {
		if f == fd {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

func (p *unixPoller) Wait(timeoutMS int) ([]Readiness, error) {
	p.mu.Lock()
	fds := make([]unix.PollFd, 0, len(p.order))
	for _, id := range p.order {
		e := p.fds[id]
		ev := int16(unix.POLLIN)
		if e.write {
			ev |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(e.fd), Events: ev})
	}
	p.mu.Unlock()

	if len(fds) == 0 {
		return nil, nil
	}

	n, err := unix.Poll(fds, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	out := make([]Readiness, 0, n)
	for _, pf := range fds {
		if pf.Revents == 0 {
			continue
		}
		out = append(out, Readiness{
			FD:       int(pf.Fd),
			Readable: pf.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			Writable: pf.Revents&unix.POLLOUT != 0,
			Err:      pf.Revents&(unix.POLLERR|unix.POLLNVAL) != 0,
		})
	}
	return out, nil
}

func (p *unixPoller) Close() error {
	return nil
}
