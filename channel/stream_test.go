package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doismellburning/nrf24link/protocol"
	"github.com/doismellburning/nrf24link/radio/fakeradio"
)

func TestStreamChannelDeliversLines(t *testing.T) {
	a, b := fakeradio.NewPair(8)

	master := NewStream(a, protocol.RoleMaster, testCfg(), StreamOptions{})
	defer master.Close()
	slave := NewStream(b, protocol.RoleSlave, testCfg(), StreamOptions{})
	defer slave.Close()

	assert.False(t, slave.ReadReady(), "slave has nothing buffered yet")

	master.Write([]byte("hello\n"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if slave.ReadReady() {
			if line, ok := slave.ReadLine(); ok {
				assert.Equal(t, "hello\n", string(line))
				assert.GreaterOrEqual(t, master.Stats().Exchanges, 1)
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the slave to see a full line")
}

func TestStreamChannelWriteReady(t *testing.T) {
	a, b := fakeradio.NewPair(8)

	master := NewStream(a, protocol.RoleMaster, testCfg(), StreamOptions{})
	defer master.Close()
	slave := NewStream(b, protocol.RoleSlave, testCfg(), StreamOptions{})
	defer slave.Close()

	assert.True(t, master.WriteReady(), "nothing queued yet, so writing is ready")

	master.Write([]byte("abc"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if master.WriteReady() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the master's pending write to drain")
}
