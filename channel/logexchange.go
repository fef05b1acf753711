package channel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/doismellburning/nrf24link/internal/logging"
)

// exchangeLogger appends one CSV row per completed exchange, rotating
// to a new daily-named file as the date changes. Adapted from the
// teacher's log_write/log_init daily-file strategy (src/log.go), here
// recording exchange outcomes instead of decoded AX.25 packets.
type exchangeLogger struct {
	mu       sync.Mutex
	dir      string
	openName string
	f        *os.File
	w        *csv.Writer
}

// newExchangeLogger prepares logging under dir, creating it if needed.
// A zero-value dir disables logging entirely (Write becomes a no-op).
func newExchangeLogger(dir string) (*exchangeLogger, error) {
	if dir == "" {
		return &exchangeLogger{}, nil
	}
	if stat, err := os.Stat(dir); err != nil {
		if mkErr := os.Mkdir(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("channel: create log dir %q: %w", dir, mkErr)
		}
	} else if !stat.IsDir() {
		return nil, fmt.Errorf("channel: log path %q is not a directory", dir)
	}
	return &exchangeLogger{dir: dir}, nil
}

// Write records one exchange. role is "master" or "slave".
func (l *exchangeLogger) Write(now time.Time, role string, success bool, txBytes, rxBytes int) error {
	if l.dir == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	name := now.UTC().Format("2006-01-02") + ".csv"
	if l.f != nil && name != l.openName {
		l.closeLocked()
	}
	if l.f == nil {
		fullPath := filepath.Join(l.dir, name)
		_, statErr := os.Stat(fullPath)
		alreadyThere := statErr == nil

		f, err := os.OpenFile(fullPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return fmt.Errorf("channel: open exchange log %q: %w", fullPath, err)
		}
		l.f = f
		l.openName = name
		l.w = csv.NewWriter(f)
		if !alreadyThere {
			_ = l.w.Write([]string{"timestamp", "role", "success", "tx_bytes", "rx_bytes"})
		}
	}

	row := []string{
		logging.FormatTimestamp(now),
		role,
		strconv.FormatBool(success),
		strconv.Itoa(txBytes),
		strconv.Itoa(rxBytes),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("channel: write exchange log row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *exchangeLogger) closeLocked() {
	if l.w != nil {
		l.w.Flush()
	}
	if l.f != nil {
		_ = l.f.Close()
	}
	l.f = nil
	l.w = nil
	l.openName = ""
}

// Close releases any open file handle.
func (l *exchangeLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	return nil
}
