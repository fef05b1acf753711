// Package hwradio drives an actual nRF24L01+-class transceiver that is
// SPI-addressable through a serial-attached bridge, with CE/CSN/IRQ
// lines toggled directly on the host's GPIO character device. It is the
// hardware-facing sibling of radio/ptyradio, grounded on the teacher's
// split between serial_port.go (the serial handle) and ptt.go (direct
// GPIO line control for an output signal).
package hwradio

import (
	"context"
	"fmt"

	"github.com/pkg/term"
	"github.com/warthog618/go-gpiocdev"

	"github.com/doismellburning/nrf24link/radio"
)

// Config names the serial device carrying framed packet data to and
// from the bridge, plus the GPIO chip and line offsets used for direct
// chip control.
type Config struct {
	SerialDevice string
	Baud         int

	GPIOChip string
	CELine   int
	CSNLine  int
	IRQLine  int
}

// Adapter is a radio.Adapter backed by a serial-framed nRF24L01+ bridge.
type Adapter struct {
	cfg Config

	port *term.Term
	chip *gpiocdev.Chip
	ce   *gpiocdev.Line
	csn  *gpiocdev.Line
	irq  *gpiocdev.Line

	pendingDone bool
}

// Open configures the GPIO lines and opens the serial bridge.
func Open(cfg Config) (*Adapter, error) {
	chip, err := gpiocdev.NewChip(cfg.GPIOChip)
	if err != nil {
		return nil, fmt.Errorf("hwradio: open gpio chip: %w", err)
	}

	ce, err := chip.RequestLine(cfg.CELine, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("hwradio: request CE line: %w", err)
	}
	csn, err := chip.RequestLine(cfg.CSNLine, gpiocdev.AsOutput(1))
	if err != nil {
		ce.Close()
		chip.Close()
		return nil, fmt.Errorf("hwradio: request CSN line: %w", err)
	}
	irq, err := chip.RequestLine(cfg.IRQLine, gpiocdev.AsInput)
	if err != nil {
		csn.Close()
		ce.Close()
		chip.Close()
		return nil, fmt.Errorf("hwradio: request IRQ line: %w", err)
	}

	port, err := term.Open(cfg.SerialDevice, term.Speed(cfg.Baud), term.RawMode)
	if err != nil {
		irq.Close()
		csn.Close()
		ce.Close()
		chip.Close()
		return nil, fmt.Errorf("hwradio: open serial bridge: %w", err)
	}

	return &Adapter{cfg: cfg, port: port, chip: chip, ce: ce, csn: csn, irq: irq}, nil
}

// Close releases the serial handle and GPIO lines.
func (a *Adapter) Close() error {
	errPort := a.port.Close()
	a.irq.Close()
	a.csn.Close()
	a.ce.Close()
	errChip := a.chip.Close()
	if errPort != nil {
		return errPort
	}
	return errChip
}

// StartListening raises CE so the chip begins receiving.
func (a *Adapter) StartListening(_ context.Context) error {
	return a.ce.SetValue(1)
}

// StopListening drops CE so the chip is ready to transmit.
func (a *Adapter) StopListening(_ context.Context) error {
	return a.ce.SetValue(0)
}

// SendStart pulses CSN low to frame the transfer and writes the frame
// over the serial bridge, which shifts it out over SPI to the chip.
func (a *Adapter) SendStart(_ context.Context, f radio.Frame) error {
	if err := a.csn.SetValue(0); err != nil {
		return fmt.Errorf("hwradio: csn low: %w", err)
	}
	defer a.csn.SetValue(1)

	if _, err := a.port.Write(f[:]); err != nil {
		return fmt.Errorf("hwradio: write frame: %w", err)
	}
	a.pendingDone = true
	return nil
}

// SendDone samples IRQ: a real nRF24L01+ pulls it low on TX_DS or
// MAX_RT. The bridge is fast enough relative to the poll interval that
// a single check after the write is sufficient here.
func (a *Adapter) SendDone(_ context.Context) (bool, error) {
	if !a.pendingDone {
		return false, nil
	}
	v, err := a.irq.Value()
	if err != nil {
		return false, fmt.Errorf("hwradio: read irq: %w", err)
	}
	if v == 0 {
		a.pendingDone = false
		return true, nil
	}
	return false, nil
}

// Any reports whether IRQ is asserted, meaning the chip has a received
// frame waiting in its RX FIFO.
func (a *Adapter) Any(_ context.Context) bool {
	v, err := a.irq.Value()
	return err == nil && v == 0
}

func (a *Adapter) Recv(ctx context.Context) (radio.Frame, error) {
	if !a.Any(ctx) {
		return radio.Frame{}, radio.ErrWouldBlock
	}
	var f radio.Frame
	n := 0
	for n < len(f) {
		m, err := a.port.Read(f[n:])
		if err != nil {
			return radio.Frame{}, fmt.Errorf("hwradio: read frame: %w", err)
		}
		n += m
	}
	return f, nil
}
