//go:build !unix

package framed

import "syscall"

func peek(conn syscall.Conn) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func fileDescriptor(conn syscall.Conn) (int, error) {
	return -1, ErrUnsupportedPlatform
}
