package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxAssemblerSingleFragment(t *testing.T) {
	a := NewTxAssembler()
	a.Load([]byte{0xAA, 0xBB})

	data, isLast := a.Fragment()
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
	assert.True(t, isLast)

	f := a.BuildFrame(CmdOK)
	assert.True(t, f.TXDONE)
	assert.Equal(t, byte(2), f.NBytes)

	done := a.Advance()
	assert.True(t, done)
}

func TestTxAssemblerZeroLengthPayload(t *testing.T) {
	a := NewTxAssembler()
	a.Load(nil)

	data, isLast := a.Fragment()
	assert.Empty(t, data)
	assert.True(t, isLast, "zero-length payload must be a single done fragment")

	f := a.BuildFrame(CmdSTARTSLAVE)
	assert.Equal(t, byte(0), f.NBytes)
	assert.True(t, f.TXDONE)
}

func TestTxAssemblerMultiFragment(t *testing.T) {
	payload := bytes.Repeat([]byte{0x00}, 75)
	a := NewTxAssembler()
	a.Load(payload)

	var sizes []int
	var last []bool
	var done bool
	for i := 0; i < 3; i++ {
		data, isLast := a.Fragment()
		sizes = append(sizes, len(data))
		last = append(last, isLast)
		done = a.Advance()
		if i < 2 {
			require.False(t, done, "assembler should not report done before the third fragment")
		}
	}

	assert.Equal(t, []int{30, 30, 15}, sizes)
	assert.Equal(t, []bool{false, false, true}, last)
	assert.True(t, done)
	assert.True(t, a.Done())
}

func TestTxAssemblerPIDFlipsOnlyWhenFragmentCarriesData(t *testing.T) {
	a := NewTxAssembler()
	a.Load([]byte{0x01})

	startPID := a.PID()
	a.Advance() // carried data -> flips
	assert.NotEqual(t, startPID, a.PID())

	// A RESEND/BYE control frame never advances the assembler itself;
	// building one must not touch PID.
	pidBefore := a.PID()
	f := a.BuildFrame(CmdRESEND)
	assert.Equal(t, byte(0), f.NBytes)
	assert.Equal(t, pidBefore, a.PID())
}

func TestTxAssemblerRESENDandBYECarryNoData(t *testing.T) {
	a := NewTxAssembler()
	a.Load([]byte{0x01, 0x02, 0x03})

	resend := a.BuildFrame(CmdRESEND)
	assert.Equal(t, byte(0), resend.NBytes)
	assert.False(t, resend.TXDONE)

	bye := a.BuildFrame(CmdBYE)
	assert.Equal(t, byte(0), bye.NBytes)
}

func TestTxAssemblerPWRBitOnFirstTwoDataFrames(t *testing.T) {
	a := NewTxAssembler()
	a.Load(bytes.Repeat([]byte{0x00}, 90)) // 3 fragments of 30

	f1 := a.BuildFrame(CmdSTARTSLAVE)
	assert.True(t, f1.PWR)
	a.Advance()

	f2 := a.BuildFrame(CmdOK)
	assert.True(t, f2.PWR)
	a.Advance()

	f3 := a.BuildFrame(CmdOK)
	assert.False(t, f3.PWR, "only the first two payload-bearing frames carry PWR")
}
