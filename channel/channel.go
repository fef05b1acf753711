// Package channel is the upper-layer façade: it owns the protocol
// goroutine, a bounded outbound queue, and the link-up/down state a
// caller actually wants to see, absorbing every transport-level hiccup
// internally (spec §7). It generalizes the teacher's producer/consumer
// transmit-queue handoff (src/tq.go) from a condvar-guarded global
// queue to one goroutine plus a buffered channel per link.
package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/doismellburning/nrf24link/internal/logging"
	"github.com/doismellburning/nrf24link/protocol"
	"github.com/doismellburning/nrf24link/radio"
)

// Options configure an optional Channel behaviour beyond the protocol
// Config. All are optional; the zero value disables the feature.
type Options struct {
	// QueueCapacity bounds the outbound object queue. Default 20.
	QueueCapacity int
	// LogDir, if non-empty, enables a daily-rotated CSV exchange log
	// (see logexchange.go).
	LogDir string
	// Logger receives structured diagnostic output. Defaults to an
	// info-level stderr logger tagged with role and instance "channel".
	Logger logging.Logger
	// MDNSName, if non-empty, announces this name and MDNSPort on the
	// local network via mDNS (see mdns.go). Channel does not itself
	// serve anything on that port.
	MDNSName string
	MDNSPort int
	// TxAck, if set, is invoked once for each payload handed to Send
	// after the round that carried it completes successfully.
	TxAck func([]byte)
	// State, if set, is invoked exactly once per link up/down
	// transition, starting from the assumption that the link begins
	// down.
	State func(up bool)
}

// Channel is one end of a point-to-point object-mode link.
type Channel struct {
	role   protocol.PeerRole
	engine *protocol.Engine
	cfg    protocol.Config

	queue  *txQueue
	rxCh   chan []byte
	stats  Stats
	logger logging.Logger
	elog   *exchangeLogger

	onTxAck func([]byte)
	onState func(bool)

	up         atomic.Bool
	lastMu     sync.Mutex
	lastGood   time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	stopAdvert func()
}

// New starts a Channel driving adapter in role, using cfg to tune
// engine timing, and returns immediately; the protocol goroutine begins
// running right away.
func New(adapter radio.Adapter, role protocol.PeerRole, cfg protocol.Config, opts Options) (*Channel, error) {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default(role.String(), "channel")
	}

	elog, err := newExchangeLogger(opts.LogDir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		role:    role,
		engine:  protocol.NewEngine(adapter, cfg),
		cfg:     cfg.WithDefaults(),
		queue:   newTxQueue(opts.QueueCapacity),
		rxCh:    make(chan []byte, opts.QueueCapacity),
		logger:  logger,
		elog:    elog,
		onTxAck: opts.TxAck,
		onState: opts.State,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if opts.MDNSName != "" {
		stop, err := advertiseStats(ctx, logger, opts.MDNSName, opts.MDNSPort)
		if err != nil {
			cancel()
			return nil, err
		}
		c.stopAdvert = stop
	}

	go c.run(ctx)
	return c, nil
}

// Send enqueues payload for the next exchange round, returning false if
// the outbound queue is full (the caller's only back-pressure signal;
// spec §7 keeps all retry/backoff reasoning internal).
func (c *Channel) Send(payload []byte) bool {
	return c.queue.tryPush(payload)
}

// TxReady reports whether Send would currently succeed.
func (c *Channel) TxReady() bool {
	return c.queue.len() < cap(c.queue.ch)
}

// Recv returns the channel of payloads received from the peer. Callers
// range over it; it is closed when the Channel is closed.
func (c *Channel) Recv() <-chan []byte {
	return c.rxCh
}

// LinkUp reports whether the most recent exchange round succeeded.
func (c *Channel) LinkUp() bool {
	return c.up.Load()
}

// TLastMs returns milliseconds since the last successful exchange, or
// -1 if none has ever completed.
func (c *Channel) TLastMs() int64 {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	if c.lastGood.IsZero() {
		return -1
	}
	return time.Since(c.lastGood).Milliseconds()
}

// Stats returns a snapshot of the exchange counters.
func (c *Channel) Stats() Snapshot {
	return c.stats.Snapshot()
}

// Close stops the protocol goroutine and releases the exchange logger.
func (c *Channel) Close() error {
	c.cancel()
	<-c.done
	if c.stopAdvert != nil {
		c.stopAdvert()
	}
	close(c.rxCh)
	if c.elog != nil {
		return c.elog.Close()
	}
	return nil
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	if c.role == protocol.RoleMaster {
		c.runMaster(ctx)
	} else {
		c.runSlave(ctx)
	}
}

func (c *Channel) runMaster(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		payload, _ := c.queue.popNonBlocking()

		res, err := c.engine.RunMaster(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("exchange error", "err", err)
		}
		c.finishRound(payload, res)

		if !res.Success {
			c.sleep(ctx, c.cfg.RetryBackoff())
			continue
		}
		c.sleep(ctx, c.cfg.MsgDelay)
	}
}

func (c *Channel) runSlave(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		payload, _ := c.queue.popNonBlocking()

		res, err := c.engine.RunSlave(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("exchange error", "err", err)
		}
		c.finishRound(payload, res)
	}
}

func (c *Channel) finishRound(payload []byte, res protocol.Result) {
	c.stats.recordExchange(res.Success, len(res.RxPayload), c.role == protocol.RoleMaster)

	wasUp := c.up.Swap(res.Success)
	if wasUp != res.Success && c.onState != nil {
		c.onState(res.Success)
	}

	now := time.Now()
	if res.Success {
		c.lastMu.Lock()
		c.lastGood = now
		c.lastMu.Unlock()

		if len(payload) > 0 && c.onTxAck != nil {
			c.onTxAck(payload)
		}

		if len(res.RxPayload) > 0 {
			select {
			case c.rxCh <- res.RxPayload:
			default:
				c.logger.Warn("receive queue full, dropping payload", "bytes", len(res.RxPayload))
			}
		}
	}

	if c.elog != nil {
		if err := c.elog.Write(now, c.role.String(), res.Success, len(payload), len(res.RxPayload)); err != nil {
			c.logger.Error("exchange log write failed", "err", err)
		}
	}
}

func (c *Channel) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
