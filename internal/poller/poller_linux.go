//go:build linux

package poller

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const maxEvents = 128

// Poller is an epoll instance plus an eventfd used for wakeups.
type Poller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
}

// New creates a poller.
func New() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll create")
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, errors.Wrap(err, "eventfd")
	}

	p := &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, maxEvents),
	}
	if err = p.Add(wakefd); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

// Add registers fd for input readiness.
func (p *Poller) Add(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return errors.Wrapf(err, "epoll ctl add %d", fd)
	}
	return nil
}

// Remove unregisters fd. It must be called before fd is closed.
func (p *Poller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errors.Wrapf(err, "epoll ctl del %d", fd)
	}
	return nil
}

// Wait blocks until a registered descriptor is ready, Wake is called or the
// timeout expires, and appends the ready descriptors to ready.
func (p *Poller) Wait(ready []int, timeout time.Duration) ([]int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return ready, nil
		}
		return ready, errors.Wrap(err, "epoll wait")
	}

	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if fd == p.wakefd {
			p.drainWake()
			continue
		}
		ready = append(ready, fd)
	}
	return ready, nil
}

// Wake interrupts a blocked or upcoming Wait.
func (p *Poller) Wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakefd, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, a wakeup is already pending
		return nil
	}
	return errors.Wrap(err, "eventfd write")
}

func (p *Poller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakefd, buf[:])
}

// Close releases the epoll instance and the wakeup descriptor.
func (p *Poller) Close() error {
	werr := unix.Close(p.wakefd)
	if err := unix.Close(p.epfd); err != nil {
		return errors.Wrap(err, "close epoll")
	}
	return errors.Wrap(werr, "close eventfd")
}
