package protocol

import (
	"context"
	"errors"
	"time"

	"github.com/doismellburning/nrf24link/radio"
)

/*------------------------------------------------------------------
 *
 * Purpose:	The half-duplex send/await/retry state machine shared by
 *		the master and slave roles.
 *
 * Description:	Master and slave run an identical inner fragment loop;
 *		they differ only in how the loop is entered (master sends
 *		START_SLAVE and makes the first move, slave blocks for it)
 *		and in the role-specific prelude in engine_master.go /
 *		engine_slave.go. This file holds that shared core; the
 *		radio-mode plumbing (transmit, await-response) described in
 *		spec §5 is in link.go.
 *
 *------------------------------------------------------------------*/

// ErrTxTimeout means the radio adapter never reported SendDone within
// the configured window. The object-mode Engine absorbs it as a missing
// ack (spec §7); StreamEngine rounds return it to their caller.
var ErrTxTimeout = errors.New("protocol: tx timeout")

// Config tunes the engine's timing. Zero-value duration fields fall
// back to their documented defaults via DefaultConfig; MaxResendRequests
// keeps zero as a valid setting and only a negative value falls back.
type Config struct {
	// Timeout bounds each await-response wait (spec default 200ms).
	Timeout time.Duration
	// MaxResendRequests bounds retransmissions per fragment before the
	// exchange fails (spec default 1).
	MaxResendRequests int
	// PollInterval is how often Any()/SendDone() are polled.
	PollInterval time.Duration
	// TxTimeout bounds waiting for the adapter to report SendDone.
	TxTimeout time.Duration
	// MsgDelay is added to the master's post-failure backoff (see
	// channel.Channel, SPEC_FULL "Configurable msg_delay").
	MsgDelay time.Duration
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           200 * time.Millisecond,
		MaxResendRequests: 1,
		PollInterval:      10 * time.Millisecond,
		TxTimeout:         200 * time.Millisecond,
		MsgDelay:          0,
	}
}

// WithDefaults returns c with every non-positive duration field, and a
// negative MaxResendRequests, replaced by its documented default
// (MsgDelay's default is zero, so it is left as given). NewEngine applies this internally;
// callers that need the resolved values ahead of time (channel.Channel
// computing its own backoff) can call it directly.
func (c Config) WithDefaults() Config {
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxResendRequests < 0 {
		c.MaxResendRequests = d.MaxResendRequests
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = d.TxTimeout
	}
	return c
}

// StreamTimeout is the stream-mode master's await window: 1.5x the
// configured Timeout, per spec §4.4.4.
func (c Config) StreamTimeout() time.Duration {
	return time.Duration(float64(c.Timeout) * 1.5)
}

// RetryBackoff is how long the master pauses before retrying a failed
// exchange, long enough that the slave (blocked awaiting START_SLAVE)
// has also given up on the previous attempt (spec §4.5).
func (c Config) RetryBackoff() time.Duration {
	return c.MsgDelay + time.Duration(c.MaxResendRequests+1)*c.Timeout
}

// Engine drives one side of the protocol state machine. It owns the
// radio adapter handle and the transmit/receive assembler state
// exclusively (spec §3 ownership).
type Engine struct {
	link
	tx *TxAssembler
	rx *RxReassembler
}

// NewEngine builds an engine around adapter with the given config.
func NewEngine(adapter radio.Adapter, cfg Config) *Engine {
	return &Engine{
		link: link{adapter: adapter, cfg: cfg.withDefaults()},
		tx:   NewTxAssembler(),
		rx:   NewRxReassembler(),
	}
}

// Result is what one exchange produced.
type Result struct {
	RxPayload []byte
	Success   bool
}

// runCore implements the symmetric inner loop of spec §4.4.1/§4.4.2.
// initialCmd is the command the first frame of the loop sends
// (START_SLAVE for master, OK for slave). rxDone seeds whether the
// inbound side is already considered complete (always false for
// master, taken from the received START_SLAVE frame's TXDONE bit for
// the slave).
func (e *Engine) runCore(ctx context.Context, outbound []byte, initialCmd byte, rxDone bool) (Result, error) {
	e.tx.Load(outbound)
	sendCmd := initialCmd

	for {
		acked, bye, err := e.runFragmentAckLoop(ctx, &sendCmd, &rxDone)
		if err != nil {
			return Result{}, err
		}
		if !acked && !bye {
			// Exhausted retries. Open question resolved per spec §9:
			// success if the receive side was already complete.
			if rxDone {
				return Result{RxPayload: e.rx.TakeAll(), Success: true}, nil
			}
			return Result{Success: false}, nil
		}
		if bye {
			return Result{RxPayload: e.rx.TakeAll(), Success: true}, nil
		}

		txDone := e.tx.Advance()
		sendCmd = CmdOK

		if txDone && rxDone {
			byeFrame := e.tx.BuildFrame(CmdBYE)
			_ = e.transmit(ctx, byeFrame) // fire-and-forget: no ack awaited
			return Result{RxPayload: e.rx.TakeAll(), Success: true}, nil
		}
	}
}

// runFragmentAckLoop transmits the current fragment under *sendCmd,
// retrying on timeout/malformed/unexpected frames up to
// MaxResendRequests times, and returns once the fragment is
// acknowledged (acked=true), a BYE arrives (bye=true), or retries are
// exhausted (both false).
func (e *Engine) runFragmentAckLoop(ctx context.Context, sendCmd *byte, rxDone *bool) (acked bool, bye bool, err error) {
	resends := 0
	for {
		frame := e.tx.BuildFrame(*sendCmd)
		// A tx timeout is handled like a missing ack: the await below
		// times out and the resend logic takes over.
		if err := e.transmit(ctx, frame); err != nil && !errors.Is(err, ErrTxTimeout) {
			return false, false, err
		}

		resp, ok, err := e.awaitResponse(ctx, e.cfg.Timeout)
		if err != nil {
			return false, false, err
		}

		if !ok {
			if resends >= e.cfg.MaxResendRequests {
				return false, false, nil
			}
			resends++
			*sendCmd = CmdRESEND
			continue
		}

		// A peer's first data frame after boot carries PWR with the PID
		// bit clear; its second PWR frame has PID set and continues the
		// same message, so only the first one clears the accumulator.
		if resp.PWR && !resp.PID {
			e.rx.OnPeerPower()
		}

		switch resp.Command() {
		case CmdBYE:
			if resp.NBytes > 0 && !*rxDone {
				e.rx.Ingest(resp)
			}
			return false, true, nil
		case CmdRESEND:
			*sendCmd = CmdOK
			// not acked; retransmit same fragment next iteration
		case CmdOK:
			if resp.NBytes > 0 && !*rxDone {
				e.rx.Ingest(resp)
			}
			if resp.TXDONE {
				*rxDone = true
			}
			return true, false, nil
		default:
			// Unexpected command: treated as a timeout-equivalent.
			if resends >= e.cfg.MaxResendRequests {
				return false, false, nil
			}
			resends++
			*sendCmd = CmdRESEND
		}
	}
}
