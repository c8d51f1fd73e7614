//go:build unix

package framed

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// peek looks at the next pending byte of conn without consuming it and without
// waiting. It returns errWouldBlock when nothing is pending and 0 bytes once
// the peer has shut down its side.
func peek(conn syscall.Conn) (int, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var (
		buf  [1]byte
		n    int
		rerr error
	)
	err = rc.Read(func(fd uintptr) bool {
		for {
			n, _, rerr = unix.Recvfrom(int(fd), buf[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
			if rerr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}

	switch {
	case rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK:
		return 0, errWouldBlock
	case rerr != nil:
		return 0, rerr
	}
	return n, nil
}

// fileDescriptor returns the descriptor behind conn for readiness registration.
// The descriptor stays owned by conn.
func fileDescriptor(conn syscall.Conn) (int, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}

	fd := -1
	if err = rc.Control(func(s uintptr) {
		fd = int(s)
	}); err != nil {
		return -1, err
	}
	return fd, nil
}
