//go:build !unix

package poller

import "time"

// Poller is unavailable on this platform; New always fails.
type Poller struct{}

func New() (*Poller, error) {
	return nil, ErrUnsupported
}

func (p *Poller) Add(fd int) error    { return ErrUnsupported }
func (p *Poller) Remove(fd int) error { return ErrUnsupported }
func (p *Poller) Wake() error         { return ErrUnsupported }
func (p *Poller) Close() error        { return nil }

func (p *Poller) Wait(ready []int, timeout time.Duration) ([]int, error) {
	return ready, ErrUnsupported
}
