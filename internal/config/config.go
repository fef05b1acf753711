// Package config resolves a Channel's settings from command-line flags
// with an optional YAML overlay, in that order, the way the teacher's
// cmd/direwolf loads kissutil.go's pflag set with config.go's file
// parsing layered underneath.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/doismellburning/nrf24link/protocol"
)

// Config is the fully resolved, validated link configuration.
type Config struct {
	Role string `yaml:"role"`

	// TxPipe/RxPipe are the 5-byte nRF24 pipe addresses, hex-encoded.
	// A peer's TxPipe must equal the other peer's RxPipe and vice
	// versa (SUPPLEMENTED FEATURES: pipe-address swap validation).
	TxPipe string `yaml:"tx_pipe"`
	RxPipe string `yaml:"rx_pipe"`

	Channel int `yaml:"channel"`

	QueueCapacity int `yaml:"queue_capacity"`

	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`

	TimeoutMs         int `yaml:"timeout_ms"`
	MaxResendRequests int `yaml:"max_resend_requests"`
	MsgDelayMs        int `yaml:"msg_delay_ms"`

	// MDNSName, if non-empty, announces this name and MDNSPort via mDNS
	// (SUPPLEMENTED FEATURE, grounded on the teacher's dns_sd.go
	// KISS-over-TCP announcement); nothing is served on that port.
	MDNSName string `yaml:"mdns_name"`
	MDNSPort int    `yaml:"mdns_port"`
}

// FlagSet builds a pflag.FlagSet bound to dst's fields, grounded on the
// teacher's kissutil.go flag set (hostname/port/verbose/etc. there,
// link parameters here).
func FlagSet(dst *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("nrf24link", pflag.ContinueOnError)
	fs.StringVarP(&dst.Role, "role", "r", "master", "Peer role: master or slave")
	fs.StringVar(&dst.TxPipe, "tx-pipe", "", "nRF24 TX pipe address, hex-encoded 5 bytes")
	fs.StringVar(&dst.RxPipe, "rx-pipe", "", "nRF24 RX pipe address, hex-encoded 5 bytes")
	fs.IntVarP(&dst.Channel, "channel", "c", 99, "nRF24 RF channel, 0-125")
	fs.IntVarP(&dst.QueueCapacity, "queue", "q", 20, "Outbound object queue capacity")
	fs.StringVarP(&dst.LogDir, "log-dir", "l", "", "Directory for daily exchange logs; empty disables")
	fs.StringVarP(&dst.LogLevel, "log-level", "v", "info", "Log level: debug, info, warn, error")
	fs.IntVarP(&dst.TimeoutMs, "timeout", "t", 200, "Per-fragment ack timeout, milliseconds")
	fs.IntVar(&dst.MaxResendRequests, "max-resends", 1, "Retransmissions per fragment before failing the exchange")
	fs.IntVar(&dst.MsgDelayMs, "msg-delay", 0, "Pause between successful exchanges, milliseconds")
	fs.StringVar(&dst.MDNSName, "mdns-name", "", "Announce a stats endpoint under this name via mDNS; empty disables")
	fs.IntVar(&dst.MDNSPort, "mdns-port", 0, "Port advertised alongside mdns-name")
	return fs
}

// Load parses args, then applies a YAML overlay from path if non-empty
// (see mergeZero for which fields the file can supply), then validates.
func Load(args []string, path string) (Config, error) {
	var cfg Config
	fs := FlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse flags: %w", err)
	}

	if path != "" {
		if err := overlayYAML(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OverlayYAML layers a YAML file's values onto cfg, for callers (like
// cmd/nrf24link) that build their own pflag.FlagSet with extra flags
// and so can't use the Load convenience function.
func (cfg *Config) OverlayYAML(path string) error {
	return overlayYAML(cfg, path)
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	mergeZero(cfg, file)
	return nil
}

// mergeZero fills TxPipe, RxPipe and LogDir from file when they are
// empty in cfg, so values given on the command line take precedence over
// the file. All other fields in the file are ignored.
func mergeZero(cfg *Config, file Config) {
	if cfg.TxPipe == "" {
		cfg.TxPipe = file.TxPipe
	}
	if cfg.RxPipe == "" {
		cfg.RxPipe = file.RxPipe
	}
	if cfg.LogDir == "" {
		cfg.LogDir = file.LogDir
	}
}

// Validate checks role, pipe addresses, channel range, and queue
// capacity.
func (c Config) Validate() error {
	if c.Role != "master" && c.Role != "slave" {
		return fmt.Errorf("config: role must be \"master\" or \"slave\", got %q", c.Role)
	}
	if len(c.TxPipe) != 10 {
		return fmt.Errorf("config: tx-pipe must be 10 hex characters (5 bytes), got %q", c.TxPipe)
	}
	if len(c.RxPipe) != 10 {
		return fmt.Errorf("config: rx-pipe must be 10 hex characters (5 bytes), got %q", c.RxPipe)
	}
	if c.TxPipe == c.RxPipe {
		return fmt.Errorf("config: tx-pipe and rx-pipe must differ (spec: a peer never listens on its own transmit pipe)")
	}
	if c.Channel < 0 || c.Channel > 125 {
		return fmt.Errorf("config: channel must be 0-125, got %d", c.Channel)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("config: queue capacity must be > 0, got %d", c.QueueCapacity)
	}
	return nil
}

// ValidatePeering checks that this Config and the peer's are a
// consistent swapped pipe pair (SUPPLEMENTED FEATURES).
func (c Config) ValidatePeering(peer Config) error {
	if c.TxPipe != peer.RxPipe || c.RxPipe != peer.TxPipe {
		return fmt.Errorf("config: pipe addresses are not a swapped pair: this tx=%s rx=%s, peer tx=%s rx=%s",
			c.TxPipe, c.RxPipe, peer.TxPipe, peer.RxPipe)
	}
	return nil
}

// PeerRole translates the validated Role string into a protocol.PeerRole.
func (c Config) PeerRole() protocol.PeerRole {
	if c.Role == "slave" {
		return protocol.RoleSlave
	}
	return protocol.RoleMaster
}

// EngineConfig builds the protocol.Config this Config describes.
func (c Config) EngineConfig() protocol.Config {
	return protocol.Config{
		Timeout:           time.Duration(c.TimeoutMs) * time.Millisecond,
		MaxResendRequests: c.MaxResendRequests,
		MsgDelay:          time.Duration(c.MsgDelayMs) * time.Millisecond,
	}.WithDefaults()
}
