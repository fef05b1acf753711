package protocol

import (
	"context"
	"errors"
	"time"

	"github.com/doismellburning/nrf24link/radio"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Half-duplex transmit/await plumbing shared by the
 *		object-mode Engine and the stream-mode StreamEngine.
 *
 *------------------------------------------------------------------*/

type link struct {
	adapter radio.Adapter
	cfg     Config
}

// transmit hands one frame to the radio adapter, waits for it to
// report completion, then switches back to listen mode (spec §5).
func (l *link) transmit(ctx context.Context, f Frame) error {
	if err := l.adapter.StopListening(ctx); err != nil {
		return err
	}
	if err := l.adapter.SendStart(ctx, f.Encode()); err != nil {
		return err
	}

	deadline := time.Now().Add(l.cfg.TxTimeout)
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		done, err := l.adapter.SendDone(ctx)
		if err != nil {
			return err
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			return ErrTxTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return l.adapter.StartListening(ctx)
}

// awaitFrame blocks, bounded by timeout (zero means unbounded, subject
// only to ctx), until accept returns true for a decoded frame. A frame
// that fails to decode ends a bounded wait as a timeout (spec §7's
// "treat malformed as timeout") and is skipped in an unbounded wait.
// Decoded frames that accept rejects are skipped in both cases.
func (l *link) awaitFrame(ctx context.Context, timeout time.Duration, accept func(Frame) bool) (Frame, bool, error) {
	var deadline time.Time
	bounded := timeout > 0
	if bounded {
		deadline = time.Now().Add(timeout)
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if l.adapter.Any(ctx) {
			wire, err := l.adapter.Recv(ctx)
			if err != nil {
				if errors.Is(err, radio.ErrWouldBlock) {
					continue
				}
				return Frame{}, false, err
			}
			f, derr := Decode(wire)
			if derr == nil && accept(f) {
				return f, true, nil
			}
			if bounded && derr != nil {
				return Frame{}, false, nil
			}
			continue
		}
		if bounded && time.Now().After(deadline) {
			return Frame{}, false, nil
		}
		select {
		case <-ctx.Done():
			return Frame{}, false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// awaitResponse waits up to timeout for any decodable frame (the
// object-mode inner loop accepts OK/RESEND/BYE and treats anything else
// as unexpected at a higher layer, so the filter here only excludes
// nothing -- decode failure alone is the timeout-equivalent case).
func (l *link) awaitResponse(ctx context.Context, timeout time.Duration) (Frame, bool, error) {
	return l.awaitFrame(ctx, timeout, func(Frame) bool { return true })
}
