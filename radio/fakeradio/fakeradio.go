// Package fakeradio provides an in-memory radio.Adapter pair for unit
// tests: two peers joined by buffered channels instead of an actual
// nRF24L01+ link. It supports deliberately dropping outgoing frames so
// tests can exercise the retransmission and duplicate-suppression
// paths described in spec §8.
package fakeradio

import (
	"context"
	"sync"

	"github.com/doismellburning/nrf24link/radio"
)

// Adapter is one end of an in-memory loopback link.
type Adapter struct {
	out chan radio.Frame
	in  chan radio.Frame

	mu           sync.Mutex
	pendingSent  bool
	dropOutgoing int
	listening    bool
}

// NewPair returns two adapters wired to each other, each with the
// given frame buffer depth.
func NewPair(bufSize int) (a, b *Adapter) {
	ab := make(chan radio.Frame, bufSize)
	ba := make(chan radio.Frame, bufSize)
	a = &Adapter{out: ab, in: ba}
	b = &Adapter{out: ba, in: ab}
	return a, b
}

// DropNextOutgoing causes the next n frames sent from this end to be
// silently discarded in flight, simulating lost packets (spec §8
// scenario 3).
func (a *Adapter) DropNextOutgoing(n int) {
	a.mu.Lock()
	a.dropOutgoing = n
	a.mu.Unlock()
}

func (a *Adapter) StartListening(ctx context.Context) error {
	a.mu.Lock()
	a.listening = true
	a.mu.Unlock()
	return nil
}

func (a *Adapter) StopListening(ctx context.Context) error {
	a.mu.Lock()
	a.listening = false
	a.mu.Unlock()
	return nil
}

func (a *Adapter) SendStart(ctx context.Context, frame radio.Frame) error {
	a.mu.Lock()
	drop := a.dropOutgoing > 0
	if drop {
		a.dropOutgoing--
	}
	a.pendingSent = true
	a.mu.Unlock()

	if drop {
		return nil
	}
	select {
	case a.out <- frame:
	default:
		// Buffer full: treat like a collision on the air and drop it
		// rather than block the caller.
	}
	return nil
}

func (a *Adapter) SendDone(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pendingSent {
		a.pendingSent = false
		return true, nil
	}
	return false, nil
}

func (a *Adapter) Any(ctx context.Context) bool {
	return len(a.in) > 0
}

func (a *Adapter) Recv(ctx context.Context) (radio.Frame, error) {
	select {
	case f := <-a.in:
		return f, nil
	default:
		return radio.Frame{}, radio.ErrWouldBlock
	}
}
