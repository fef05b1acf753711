// Package ptyradio provides a pseudo-terminal-backed radio.Adapter for
// development and manual testing without real nRF24L01+ hardware.
//
// It opens a pty pair with github.com/creack/pty and exposes the slave
// side's name so another process (or a human with a serial terminal)
// can attach to it, mirroring the virtual-TNC trick the teacher's KISS
// pty support uses for application testing without a real radio.
package ptyradio

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/creack/pty"

	"github.com/doismellburning/nrf24link/radio"
)

// sof marks the start of a frame on the wire. Frames are fixed-size, so
// this is purely a resync aid against partial pty reads; it is never
// mistaken for data because a real frame's first byte never needs to
// equal it (the low nibble of a command byte never reaches 0xC0 and the
// flag bits above it are masked off before comparison is meaningful,
// but we sidestep that question entirely by only ever looking for sof
// at a fragment boundary).
const sof = 0xC0

// Adapter is a radio.Adapter that shuttles frames across a pty.
type Adapter struct {
	master *os.File
	slave  *os.File

	mu        sync.Mutex
	listening bool
	reader    *bufio.Reader

	pendingDone bool
}

// Open creates a new pty pair and returns an Adapter bound to it, along
// with the slave device path a peer process should open.
func Open() (*Adapter, string, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, "", fmt.Errorf("ptyradio: open: %w", err)
	}
	a := &Adapter{
		master: master,
		slave:  slave,
		reader: bufio.NewReaderSize(master, (1+radio.FrameLen)*4),
	}
	return a, slave.Name(), nil
}

// Close releases the underlying pty descriptors.
func (a *Adapter) Close() error {
	errMaster := a.master.Close()
	errSlave := a.slave.Close()
	if errMaster != nil {
		return errMaster
	}
	return errSlave
}

func (a *Adapter) StartListening(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listening = true
	return nil
}

func (a *Adapter) StopListening(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listening = false
	return nil
}

func (a *Adapter) SendStart(_ context.Context, f radio.Frame) error {
	buf := make([]byte, 0, 1+len(f))
	buf = append(buf, sof)
	buf = append(buf, f[:]...)
	if _, err := a.master.Write(buf); err != nil {
		return fmt.Errorf("ptyradio: write: %w", err)
	}
	a.mu.Lock()
	a.pendingDone = true
	a.mu.Unlock()
	return nil
}

func (a *Adapter) SendDone(_ context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	done := a.pendingDone
	a.pendingDone = false
	return done, nil
}

func (a *Adapter) Any(_ context.Context) bool {
	a.mu.Lock()
	listening := a.listening
	a.mu.Unlock()
	if !listening {
		return false
	}
	return a.reader.Buffered() >= 1+radio.FrameLen
}

func (a *Adapter) Recv(ctx context.Context) (radio.Frame, error) {
	a.mu.Lock()
	listening := a.listening
	a.mu.Unlock()
	if !listening || !a.Any(ctx) {
		return radio.Frame{}, radio.ErrWouldBlock
	}

	b, err := a.reader.ReadByte()
	if err != nil {
		return radio.Frame{}, fmt.Errorf("ptyradio: read: %w", err)
	}
	if b != sof {
		return radio.Frame{}, fmt.Errorf("ptyradio: lost frame sync")
	}

	var f radio.Frame
	if _, err := bufReadFull(a.reader, f[:]); err != nil {
		return radio.Frame{}, fmt.Errorf("ptyradio: short frame: %w", err)
	}
	return f, nil
}

func bufReadFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
