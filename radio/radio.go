// Package radio defines the boundary between the protocol engine and
// the packet-radio transceiver. The transceiver itself -- pipe setup,
// SPI register programming, the actual nRF24L01+-class chip -- is an
// external collaborator (spec §1); this package specifies only its
// interface and carries two reference implementations for local
// development: a pty-backed loopback (radio/ptyradio) and a
// GPIO/serial-attached hardware bridge (radio/hwradio).
package radio

import (
	"context"
	"errors"
)

// ErrWouldBlock is returned by Recv when no frame is available yet;
// callers poll rather than block.
var ErrWouldBlock = errors.New("radio: would block")

// FrameLen is the fixed packet-radio frame size in bytes.
const FrameLen = 32

// Frame is the fixed-size packet the adapter moves in each direction.
type Frame [FrameLen]byte

// Adapter is the non-blocking packet-radio driver surface the protocol
// engine drives. All methods must return promptly (spec §5: "no
// operation in the engine blocks the scheduler for more than one
// polling interval").
type Adapter interface {
	// StartListening switches the adapter to receive mode.
	StartListening(ctx context.Context) error

	// StopListening switches the adapter to transmit mode.
	StopListening(ctx context.Context) error

	// SendStart begins an asynchronous transmit of frame. It does not
	// wait for completion.
	SendStart(ctx context.Context, frame Frame) error

	// SendDone reports whether the in-progress transmit has completed.
	// It returns (false, nil) while still in flight, (true, nil) once
	// complete, and ErrWouldBlock is never returned here -- callers
	// poll by calling SendDone repeatedly.
	SendDone(ctx context.Context) (bool, error)

	// Any reports whether a received frame is available.
	Any(ctx context.Context) bool

	// Recv returns the next available received frame. It returns
	// ErrWouldBlock if Any would have reported false.
	Recv(ctx context.Context) (Frame, error)
}
