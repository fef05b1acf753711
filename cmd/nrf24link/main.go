// Command nrf24link is a utility for talking to an nRF24L01+ link:
// read newline-delimited lines from stdin and send each as one payload,
// printing whatever the peer sends back one per line, while logging
// diagnostics to stderr. It is the moral equivalent of the teacher's
// kissutil -- "this might also serve as the starting point for an
// application that uses" this link -- generalized from a KISS TNC
// utility to an nRF24 one.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/doismellburning/nrf24link/channel"
	"github.com/doismellburning/nrf24link/internal/config"
	"github.com/doismellburning/nrf24link/internal/logging"
	"github.com/doismellburning/nrf24link/radio/ptyradio"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "nrf24link:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cfg config.Config
	fs := config.FlagSet(&cfg)
	configFile := fs.StringP("config", "C", "", "Optional YAML config file overlay")
	devOnly := fs.Bool("dev-pty", false, "Use a pty-backed loopback adapter instead of real hardware, printing the peer device path")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if *configFile != "" {
		if err := cfg.OverlayYAML(*configFile); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.Role, "main")

	if !*devOnly {
		return fmt.Errorf("nrf24link: only --dev-pty is wired up in this build; attach radio/hwradio yourself for real hardware")
	}

	adapter, devicePath, err := ptyradio.Open()
	if err != nil {
		return fmt.Errorf("open pty radio: %w", err)
	}
	defer adapter.Close()
	logger.Info("dev-pty ready", "device", devicePath)

	ch, err := channel.New(adapter, cfg.PeerRole(), cfg.EngineConfig(), channel.Options{
		QueueCapacity: cfg.QueueCapacity,
		LogDir:        cfg.LogDir,
		Logger:        logger,
		MDNSName:      cfg.MDNSName,
		MDNSPort:      cfg.MDNSPort,
	})
	if err != nil {
		return fmt.Errorf("start channel: %w", err)
	}
	defer ch.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go relayStdinToChannel(ctx, ch, logger)
	relayChannelToStdout(ctx, ch)
	return nil
}

func relayStdinToChannel(ctx context.Context, ch *channel.Channel, logger logging.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if !ch.Send(scanner.Bytes()) {
			logger.Warn("outbound queue full, dropping line")
		}
	}
}

func relayChannelToStdout(ctx context.Context, ch *channel.Channel) {
	for {
		select {
		case payload, ok := <-ch.Recv():
			if !ok {
				return
			}
			os.Stdout.Write(payload)
			os.Stdout.Write([]byte("\n"))
		case <-ctx.Done():
			return
		}
	}
}
