package protocol

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/nrf24link/radio/fakeradio"
)

func testConfig() Config {
	return Config{
		Timeout:           30 * time.Millisecond,
		MaxResendRequests: 1,
		PollInterval:      time.Millisecond,
		TxTimeout:         30 * time.Millisecond,
	}
}

func runPair(t *testing.T, ctx context.Context, master, slave *Engine, masterPayload, slavePayload []byte) (Result, Result) {
	t.Helper()
	type out struct {
		res Result
		err error
	}
	masterCh := make(chan out, 1)
	slaveCh := make(chan out, 1)

	go func() {
		r, err := master.RunMaster(ctx, masterPayload)
		masterCh <- out{r, err}
	}()
	go func() {
		r, err := slave.RunSlave(ctx, slavePayload)
		slaveCh <- out{r, err}
	}()

	mo := <-masterCh
	so := <-slaveCh
	require.NoError(t, mo.err)
	require.NoError(t, so.err)
	return mo.res, so.res
}

func TestScenarioHappyPathSingleFragment(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, b := fakeradio.NewPair(8)
	master := NewEngine(a, testConfig())
	slave := NewEngine(b, testConfig())

	mRes, sRes := runPair(t, ctx, master, slave, []byte{0x00}, []byte{0xAA, 0xBB})

	assert.True(t, mRes.Success)
	assert.True(t, sRes.Success)
	assert.Equal(t, []byte{0xAA, 0xBB}, mRes.RxPayload)
	assert.Equal(t, []byte{0x00}, sRes.RxPayload)
}

func TestScenarioMultiFragment(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, b := fakeradio.NewPair(8)
	master := NewEngine(a, testConfig())
	slave := NewEngine(b, testConfig())

	masterPayload := bytes.Repeat([]byte{0x00}, 75)
	mRes, sRes := runPair(t, ctx, master, slave, masterPayload, nil)

	assert.True(t, mRes.Success)
	assert.True(t, sRes.Success)
	assert.Equal(t, masterPayload, sRes.RxPayload)
}

func TestScenarioDroppedAckCausesRetransmission(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, b := fakeradio.NewPair(8)
	// Drop the slave's first OK response so the master must resend.
	b.DropNextOutgoing(1)

	master := NewEngine(a, testConfig())
	slave := NewEngine(b, testConfig())

	mRes, sRes := runPair(t, ctx, master, slave, []byte{0x11}, []byte{0x22, 0x33})

	assert.True(t, mRes.Success)
	assert.True(t, sRes.Success)
	assert.Equal(t, []byte{0x22, 0x33}, mRes.RxPayload)
	assert.Equal(t, []byte{0x11}, sRes.RxPayload)
}

func TestScenarioExhaustedRetriesFailsExchange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, _ := fakeradio.NewPair(8)
	cfg := testConfig()
	cfg.MaxResendRequests = 1
	master := NewEngine(a, cfg)

	// No slave listening at all: master must eventually give up.
	res, err := master.RunMaster(ctx, []byte{0x01})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestScenarioStrayByeAtSlaveStartupIsIgnored(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, b := fakeradio.NewPair(8)
	slave := NewEngine(b, testConfig())

	// Inject a stray BYE from the tail of a fictitious prior exchange
	// before the real START_SLAVE arrives.
	stray := Frame{Cmd: CmdBYE}
	require.NoError(t, a.StopListening(ctx))
	require.NoError(t, a.SendStart(ctx, stray.Encode()))
	for {
		done, err := a.SendDone(ctx)
		require.NoError(t, err)
		if done {
			break
		}
	}
	require.NoError(t, a.StartListening(ctx))

	master := NewEngine(a, testConfig())
	mRes, sRes := runPair(t, ctx, master, slave, []byte{0x01}, []byte{0x02})

	assert.True(t, mRes.Success)
	assert.True(t, sRes.Success)
}

func TestScenarioPeerRebootMidMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, b := fakeradio.NewPair(8)
	master := NewEngine(a, testConfig())

	shortCtx, shortCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer shortCancel()

	type out struct {
		res Result
		err error
	}
	masterCh := make(chan out, 1)
	go func() {
		r, err := master.RunMaster(shortCtx, []byte{0x00})
		masterCh <- out{r, err}
	}()

	// Old slave engine sends fragment 1 of a 3-fragment reply, then
	// "reboots" (a fresh Engine/TxAssembler replaces it) before
	// fragment 2. The in-flight master exchange must time out.
	oldSlave := NewEngine(b, testConfig())
	oldSlave.tx.Load(bytes.Repeat([]byte{0x7E}, 75))
	_, err := oldSlave.awaitStartSlave(shortCtx)
	require.NoError(t, err)
	frame := oldSlave.tx.BuildFrame(CmdOK)
	require.NoError(t, oldSlave.transmit(shortCtx, frame))
	// Slave goes silent here, simulating the reboot.

	mo := <-masterCh
	require.NoError(t, mo.err)
	assert.False(t, mo.res.Success, "master must detect the incomplete exchange as a failure")

	// Slave restarts cleanly with a fresh engine and completes a new
	// exchange; master's accumulator from the failed attempt must not
	// leak into the new one.
	newSlave := NewEngine(b, testConfig())
	mRes2, sRes2 := runPair(t, ctx, master, newSlave, []byte{0x00}, []byte{0x99})
	assert.True(t, mRes2.Success)
	assert.True(t, sRes2.Success)
	assert.Equal(t, []byte{0x99}, mRes2.RxPayload)
}
