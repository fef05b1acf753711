package protocol

/*------------------------------------------------------------------
 *
 * Purpose:	Slice an outbound payload into <=30-byte fragments and
 *		track the state needed to build the frame for "the
 *		fragment currently being sent."
 *
 * Description:	The assembler owns one payload at a time. load()
 *		resets it to the start of a new payload; fragment()
 *		reports the next slice without consuming it (so a
 *		retransmit can rebuild the identical frame); advance()
 *		consumes it once the peer has acknowledged it.
 *
 *		The PID bit flips once per fragment that actually carried
 *		data, and survives across load() calls -- a fresh payload
 *		continues the alternation rather than resetting it, so a
 *		receiver that saw the tail of the previous exchange can
 *		still detect an immediate duplicate.
 *
 *------------------------------------------------------------------*/

// pwrFrames is how many payload-bearing frames after construction carry
// the PWR bit (spec §4.4.3: "the first two payload-bearing frames after
// local boot").
const pwrFrames = 2

// TxAssembler fragments one payload at a time for transmission.
type TxAssembler struct {
	payload   []byte
	offset    int
	bytesLeft int
	pid       bool
	pwrLeft   int
}

// NewTxAssembler returns an assembler ready to load its first payload.
func NewTxAssembler() *TxAssembler {
	return &TxAssembler{pwrLeft: pwrFrames}
}

// Load accepts a new opaque payload of any length, including zero.
func (a *TxAssembler) Load(payload []byte) {
	a.payload = payload
	a.offset = 0
	a.bytesLeft = len(payload)
}

// Fragment returns the next slice to send, up to MaxFragment bytes, and
// whether it is the final fragment of the loaded payload. It does not
// advance the assembler, so it is safe to call repeatedly while
// retransmitting the same fragment.
func (a *TxAssembler) Fragment() (data []byte, isLast bool) {
	n := a.bytesLeft
	if n > MaxFragment {
		n = MaxFragment
	}
	return a.payload[a.offset : a.offset+n], a.bytesLeft <= MaxFragment
}

// Advance consumes the fragment last returned by Fragment, flips the PID
// bit if that fragment carried data, and reports whether the payload is
// now fully sent.
func (a *TxAssembler) Advance() (done bool) {
	data, _ := a.Fragment()
	n := len(data)
	a.offset += n
	a.bytesLeft -= n
	if n > 0 {
		a.pid = !a.pid
		if a.pwrLeft > 0 {
			a.pwrLeft--
		}
	}
	return a.bytesLeft == 0
}

// Done reports whether the loaded payload has been fully advanced past.
func (a *TxAssembler) Done() bool {
	return a.bytesLeft == 0
}

// PID reports the assembler's current PID bit, i.e. the bit that will
// tag the next fragment built.
func (a *TxAssembler) PID() bool {
	return a.pid
}

// BuildFrame combines the current (unconsumed) fragment with cmd into a
// Frame ready to encode. RESEND and BYE never carry data, matching the
// wire rule that only OK/START_SLAVE/MSG frames carry a payload slice.
func (a *TxAssembler) BuildFrame(cmd byte) Frame {
	f := Frame{Cmd: cmd, PID: a.pid}

	if cmd == CmdRESEND || cmd == CmdBYE {
		return f
	}

	data, isLast := a.Fragment()
	f.NBytes = byte(len(data))
	copy(f.Data[:], data)
	f.TXDONE = isLast
	if len(data) > 0 && a.pwrLeft > 0 {
		f.PWR = true
	}
	return f
}
