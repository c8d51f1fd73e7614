//go:build unix && !linux

package poller

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Poller is a poll(2) set plus a self-pipe used for wakeups.
type Poller struct {
	rfd, wfd int
	fds      map[int]struct{}
	pfds     []unix.PollFd
}

// New creates a poller.
func New() (*Poller, error) {
	var pipe [2]int
	if err := unix.Pipe(pipe[:]); err != nil {
		return nil, errors.Wrap(err, "pipe")
	}
	for _, fd := range pipe {
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(pipe[0])
			_ = unix.Close(pipe[1])
			return nil, errors.Wrap(err, "pipe nonblock")
		}
	}

	return &Poller{
		rfd: pipe[0],
		wfd: pipe[1],
		fds: make(map[int]struct{}),
	}, nil
}

// Add registers fd for input readiness.
func (p *Poller) Add(fd int) error {
	if _, ok := p.fds[fd]; ok {
		return errors.Errorf("fd %d already registered", fd)
	}
	p.fds[fd] = struct{}{}
	return nil
}

// Remove unregisters fd. It must be called before fd is closed.
func (p *Poller) Remove(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return errors.Errorf("fd %d not registered", fd)
	}
	delete(p.fds, fd)
	return nil
}

// Wait blocks until a registered descriptor is ready, Wake is called or the
// timeout expires, and appends the ready descriptors to ready.
func (p *Poller) Wait(ready []int, timeout time.Duration) ([]int, error) {
	p.pfds = append(p.pfds[:0], unix.PollFd{Fd: int32(p.rfd), Events: unix.POLLIN})
	for fd := range p.fds {
		p.pfds = append(p.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}

	n, err := unix.Poll(p.pfds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return ready, nil
		}
		return ready, errors.Wrap(err, "poll")
	}
	if n == 0 {
		return ready, nil
	}

	if p.pfds[0].Revents != 0 {
		p.drainWake()
	}
	for _, pfd := range p.pfds[1:] {
		if pfd.Revents != 0 {
			ready = append(ready, int(pfd.Fd))
		}
	}
	return ready, nil
}

// Wake interrupts a blocked or upcoming Wait.
func (p *Poller) Wake() error {
	_, err := unix.Write(p.wfd, []byte{1})
	if err == unix.EAGAIN {
		// pipe full, a wakeup is already pending
		return nil
	}
	return errors.Wrap(err, "pipe write")
}

func (p *Poller) drainWake() {
	var buf [64]byte
	for {
		if n, err := unix.Read(p.rfd, buf[:]); n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the wakeup pipe.
func (p *Poller) Close() error {
	werr := unix.Close(p.wfd)
	if err := unix.Close(p.rfd); err != nil {
		return errors.Wrap(err, "close pipe")
	}
	return errors.Wrap(werr, "close pipe")
}
