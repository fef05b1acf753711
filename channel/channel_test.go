package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/nrf24link/protocol"
	"github.com/doismellburning/nrf24link/radio/fakeradio"
)

func testCfg() protocol.Config {
	return protocol.Config{
		Timeout:           20 * time.Millisecond,
		MaxResendRequests: 1,
		PollInterval:      time.Millisecond,
		TxTimeout:         20 * time.Millisecond,
	}
}

func TestChannelExchangesObjectsBothWays(t *testing.T) {
	a, b := fakeradio.NewPair(8)

	master, err := New(a, protocol.RoleMaster, testCfg(), Options{})
	require.NoError(t, err)
	defer master.Close()

	slave, err := New(b, protocol.RoleSlave, testCfg(), Options{})
	require.NoError(t, err)
	defer slave.Close()

	require.True(t, master.Send([]byte{0xAA, 0xBB}))
	require.True(t, slave.Send([]byte{0xCC}))

	select {
	case got := <-slave.Recv():
		assert.Equal(t, []byte{0xAA, 0xBB}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for slave to receive master's payload")
	}

	select {
	case got := <-master.Recv():
		assert.Equal(t, []byte{0xCC}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for master to receive slave's payload")
	}

	assert.True(t, master.LinkUp())
	assert.True(t, slave.LinkUp())
	assert.GreaterOrEqual(t, master.Stats().Exchanges, 1)
}

func TestChannelSendFailsWhenQueueFull(t *testing.T) {
	a, _ := fakeradio.NewPair(1)

	// With no peer running, the slave takes its first round's payload
	// (none yet) off the queue and then blocks awaiting START_SLAVE, so
	// after that the queue never drains.
	c, err := New(a, protocol.RoleSlave, testCfg(), Options{QueueCapacity: 1})
	require.NoError(t, err)
	defer c.Close()
	time.Sleep(20 * time.Millisecond)

	require.True(t, c.Send([]byte{0x01}))
	assert.False(t, c.Send([]byte{0x02}), "second send should be rejected once the queue is full")
}

func TestChannelTLastMsStartsNegative(t *testing.T) {
	a, _ := fakeradio.NewPair(1)
	c, err := New(a, protocol.RoleSlave, testCfg(), Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, int64(-1), c.TLastMs())
}

func TestChannelTxAckAndStateCallbacks(t *testing.T) {
	a, b := fakeradio.NewPair(8)

	var mu sync.Mutex
	var acked [][]byte
	var transitions []bool

	master, err := New(a, protocol.RoleMaster, testCfg(), Options{
		TxAck: func(p []byte) {
			mu.Lock()
			acked = append(acked, append([]byte(nil), p...))
			mu.Unlock()
		},
		State: func(up bool) {
			mu.Lock()
			transitions = append(transitions, up)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	defer master.Close()

	slave, err := New(b, protocol.RoleSlave, testCfg(), Options{})
	require.NoError(t, err)
	defer slave.Close()

	require.True(t, master.Send([]byte{0xAA, 0xBB}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		gotAck := len(acked) > 0
		mu.Unlock()
		if gotAck {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(acked) == 0 {
		t.Fatal("timed out waiting for TxAck to fire for the delivered payload")
	}
	assert.Equal(t, []byte{0xAA, 0xBB}, acked[0])

	require.NotEmpty(t, transitions, "State should have fired at least once")
	assert.True(t, transitions[0], "the first transition must be up, since the link starts down")
	for i := 1; i < len(transitions); i++ {
		assert.NotEqual(t, transitions[i-1], transitions[i], "state callbacks must strictly alternate")
	}
}
