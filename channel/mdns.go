package channel

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"

	"github.com/doismellburning/nrf24link/internal/logging"
)

// mdnsService is the DNS-SD service type this link advertises itself
// under, adapted from the teacher's KISS-over-TCP announcement
// (src/dns_sd.go) to a debug/stats endpoint for a running Channel.
const mdnsService = "_nrf24link._tcp"

// advertiseStats announces name and port on the local network via
// mDNS. It only announces; nothing in this package listens on port. It
// returns a stop function; the caller must call it to withdraw the
// announcement.
func advertiseStats(ctx context.Context, logger logging.Logger, name string, port int) (func(), error) {
	cfg := dnssd.Config{
		Name: name,
		Type: mdnsService,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("channel: mdns: create service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("channel: mdns: create responder: %w", err)
	}

	if _, err := rp.Add(sv); err != nil {
		return nil, fmt.Errorf("channel: mdns: add service: %w", err)
	}

	respondCtx, cancel := context.WithCancel(ctx)
	logger.Info("mdns: announcing", "name", name, "port", port)
	go func() {
		if err := rp.Respond(respondCtx); err != nil && respondCtx.Err() == nil {
			logger.Error("mdns: responder stopped", "err", err)
		}
	}()

	return cancel, nil
}
