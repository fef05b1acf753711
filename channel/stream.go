package channel

import (
	"context"
	"time"

	"github.com/doismellburning/nrf24link/internal/logging"
	"github.com/doismellburning/nrf24link/protocol"
	"github.com/doismellburning/nrf24link/radio"
)

// StreamOptions configure a StreamChannel.
type StreamOptions struct {
	// TxMs bounds the pacing between master rounds, mirroring the
	// Python stream variant's tx_ms constructor parameter (see
	// SUPPLEMENTED FEATURES). Zero means "as fast as the link allows".
	TxMs time.Duration
	// Logger receives structured diagnostic output.
	Logger logging.Logger
}

// StreamChannel is the continuous byte-stream upper API (spec §4.4.4 /
// §6), as opposed to Channel's bounded object exchanges.
type StreamChannel struct {
	role   protocol.PeerRole
	engine *protocol.StreamEngine
	txMs   time.Duration
	logger logging.Logger
	stats  Stats

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStream starts a StreamChannel driving adapter in role.
func NewStream(adapter radio.Adapter, role protocol.PeerRole, cfg protocol.Config, opts StreamOptions) *StreamChannel {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default(role.String(), "stream")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &StreamChannel{
		role:   role,
		engine: protocol.NewStreamEngine(adapter, cfg),
		txMs:   opts.TxMs,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(ctx)
	return s
}

// Write appends data to the outbound stream. It never blocks; the
// stream has no fixed-size back-pressure contract, unlike Channel.Send.
func (s *StreamChannel) Write(data []byte) {
	s.engine.Enqueue(data)
}

// Pending reports how many outbound bytes are queued but not yet sent.
func (s *StreamChannel) Pending() int {
	return s.engine.Pending()
}

// Read drains up to n bytes received from the peer.
func (s *StreamChannel) Read(n int) []byte {
	return s.engine.Rx().Drain(n)
}

// ReadLine drains one newline-terminated line if one is buffered.
func (s *StreamChannel) ReadLine() ([]byte, bool) {
	return s.engine.Rx().DrainLine()
}

// Available reports how many received bytes are currently buffered.
func (s *StreamChannel) Available() int {
	return s.engine.Rx().Len()
}

// ReadReady reports whether Read or ReadLine would return data right now.
func (s *StreamChannel) ReadReady() bool {
	return s.Available() > 0
}

// WriteReady reports whether the previous Write has been fully handed to
// the link, i.e. whether queuing more data now won't grow an unbounded
// backlog. Write itself never blocks regardless of this value.
func (s *StreamChannel) WriteReady() bool {
	return s.Pending() == 0
}

// Stats returns a snapshot of the stream's exchange counters (spec §6:
// rx_timeouts, tx_timeouts, rx_all, rx_data).
func (s *StreamChannel) Stats() Snapshot {
	return s.stats.Snapshot()
}

// Close stops the driving goroutine.
func (s *StreamChannel) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *StreamChannel) run(ctx context.Context) {
	defer close(s.done)
	if s.role == protocol.RoleMaster {
		s.runMaster(ctx)
	} else {
		s.runSlave(ctx)
	}
}

func (s *StreamChannel) runMaster(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		rxBefore := s.engine.Rx().Len()
		ok, err := s.engine.RunMasterRound(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("stream round error", "err", err)
		}
		if !ok {
			s.logger.Warn("stream round failed")
		}
		s.stats.recordExchange(ok, rxIngested(rxBefore, s.engine.Rx().Len()), true)
		if s.txMs > 0 {
			t := time.NewTimer(s.txMs)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return
			}
		}
	}
}

func (s *StreamChannel) runSlave(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		rxBefore := s.engine.Rx().Len()
		err := s.engine.RunSlaveRound(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Error("stream round error", "err", err)
		}
		s.stats.recordExchange(err == nil, rxIngested(rxBefore, s.engine.Rx().Len()), false)
	}
}

// rxIngested estimates how many bytes a round added to the receive
// buffer, ignoring any concurrent drain by a reader (which would only
// ever make the buffer shrink, never look like spurious growth).
func rxIngested(before, after int) int {
	if after <= before {
		return 0
	}
	return after - before
}
