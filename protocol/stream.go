package protocol

import (
	"context"
	"sync"

	"github.com/doismellburning/nrf24link/radio"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Stream-mode variant of the protocol (spec §4.4.4): a
 *		continuous back-and-forth instead of the object-mode's
 *		bounded tx_done/rx_done exchange.
 *
 * Description:	The master always makes the first move of each round,
 *		retransmitting the same frame (same PID) on timeout. The
 *		slave replies to every received frame with one ACK,
 *		optionally carrying its own next fragment. There is no
 *		BYE and no tx_done/rx_done bookkeeping -- the stream just
 *		keeps running until the caller stops driving it.
 *
 *------------------------------------------------------------------*/

// StreamEngine drives one side of the stream-mode protocol.
type StreamEngine struct {
	link
	rx *RxReassembler

	mu     sync.Mutex
	outbox []byte
	outPID bool
}

// NewStreamEngine builds a stream engine around adapter.
func NewStreamEngine(adapter radio.Adapter, cfg Config) *StreamEngine {
	return &StreamEngine{
		link: link{adapter: adapter, cfg: cfg.withDefaults()},
		rx:   NewRxReassembler(),
	}
}

// Enqueue appends data to the outbound byte stream.
func (s *StreamEngine) Enqueue(data []byte) {
	s.mu.Lock()
	s.outbox = append(s.outbox, data...)
	s.mu.Unlock()
}

// Pending reports how many outbound bytes are queued but not yet sent.
func (s *StreamEngine) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

// Rx returns the reassembler holding inbound stream bytes.
func (s *StreamEngine) Rx() *RxReassembler {
	return s.rx
}

func (s *StreamEngine) popFragment() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.outbox)
	if n > MaxFragment {
		n = MaxFragment
	}
	frag := append([]byte(nil), s.outbox[:n]...)
	s.outbox = s.outbox[n:]
	return frag
}

func (s *StreamEngine) requeueFront(frag []byte) {
	if len(frag) == 0 {
		return
	}
	s.mu.Lock()
	s.outbox = append(append([]byte(nil), frag...), s.outbox...)
	s.mu.Unlock()
}

// RunMasterRound sends one frame and awaits the slave's reply, up to
// 1.5x the configured timeout (spec §4.4.4), retrying the identical
// frame (same PID, not re-popped from the outbox) on timeout. It
// reports whether the round succeeded.
func (s *StreamEngine) RunMasterRound(ctx context.Context) (bool, error) {
	frag := s.popFragment()
	frame := Frame{Cmd: CmdMSG, PID: s.outPID, NBytes: byte(len(frag))}
	copy(frame.Data[:], frag)

	resends := 0
	for {
		if err := s.transmit(ctx, frame); err != nil {
			s.requeueFront(frag)
			return false, err
		}

		resp, ok, err := s.awaitResponse(ctx, s.cfg.StreamTimeout())
		if err != nil {
			s.requeueFront(frag)
			return false, err
		}
		if !ok {
			if resends >= s.cfg.MaxResendRequests {
				s.requeueFront(frag)
				return false, nil
			}
			resends++
			continue
		}

		if resp.PWR {
			s.rx.OnPeerPower()
		}
		if resp.NBytes > 0 {
			s.rx.Ingest(resp)
		}
		if len(frag) > 0 {
			s.outPID = !s.outPID
		}
		return true, nil
	}
}

// RunSlaveRound blocks for the next frame from the master, ingests any
// data it carries, and replies with one ACK carrying the slave's own
// next outbound fragment.
func (s *StreamEngine) RunSlaveRound(ctx context.Context) error {
	if err := s.adapter.StartListening(ctx); err != nil {
		return err
	}

	f, _, err := s.awaitFrame(ctx, 0, func(Frame) bool { return true })
	if err != nil {
		return err
	}
	if f.PWR {
		s.rx.OnPeerPower()
	}
	if f.NBytes > 0 {
		s.rx.Ingest(f)
	}

	frag := s.popFragment()
	reply := Frame{Cmd: CmdACK, PID: s.outPID, NBytes: byte(len(frag))}
	copy(reply.Data[:], frag)
	if err := s.transmit(ctx, reply); err != nil {
		s.requeueFront(frag)
		return err
	}
	if len(frag) > 0 {
		s.outPID = !s.outPID
	}
	return nil
}
