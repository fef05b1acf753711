package protocol

import "bytes"

/*------------------------------------------------------------------
 *
 * Purpose:	Reassemble inbound fragments into a byte accumulator,
 *		dropping duplicates and discarding stale state across a
 *		peer power-cycle.
 *
 * Description:	Duplicate suppression here is deliberately the minimal
 *		form of what src/dedupe.go does for AX.25 digipeating: a
 *		single alternating bit is enough because the wire protocol
 *		never has more than one unacknowledged fragment in flight,
 *		so "same PID as last time" and "this is a retransmit" are
 *		the same fact.
 *
 *------------------------------------------------------------------*/

// RxReassembler accumulates inbound fragments for one direction of an
// exchange.
type RxReassembler struct {
	buf     []byte
	lastPID bool
	havePID bool
}

// NewRxReassembler returns an empty reassembler.
func NewRxReassembler() *RxReassembler {
	return &RxReassembler{}
}

// Ingest appends a frame's data to the accumulator unless it is a
// duplicate of the previously ingested fragment. It reports whether the
// data was appended (false for duplicates and for frames with no data).
func (r *RxReassembler) Ingest(f Frame) bool {
	if f.NBytes == 0 {
		return false
	}
	if r.havePID && f.PID == r.lastPID {
		return false
	}
	r.buf = append(r.buf, f.DataSlice()...)
	r.lastPID = f.PID
	r.havePID = true
	return true
}

// OnPeerPower clears the accumulator: the peer just rebooted, so any
// partial message it was sending is invalid.
func (r *RxReassembler) OnPeerPower() {
	r.buf = r.buf[:0]
	r.havePID = false
}

// Reset clears accumulator and PID tracking for a fresh object exchange.
func (r *RxReassembler) Reset() {
	r.buf = r.buf[:0]
	r.havePID = false
}

// Len reports the number of bytes currently buffered.
func (r *RxReassembler) Len() int {
	return len(r.buf)
}

// TakeAll returns the entire accumulator and clears it (object mode).
func (r *RxReassembler) TakeAll() []byte {
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	r.buf = r.buf[:0]
	return out
}

// Drain returns up to n buffered bytes, removing them (stream mode).
func (r *RxReassembler) Drain(n int) []byte {
	if n > len(r.buf) {
		n = len(r.buf)
	}
	out := make([]byte, n)
	copy(out, r.buf[:n])
	r.buf = r.buf[n:]
	return out
}

// DrainLine returns bytes up to and including the first newline, or
// (nil, false) if no complete line is buffered yet (stream mode).
func (r *RxReassembler) DrainLine() ([]byte, bool) {
	idx := bytes.IndexByte(r.buf, '\n')
	if idx < 0 {
		return nil, false
	}
	line := make([]byte, idx+1)
	copy(line, r.buf[:idx+1])
	r.buf = r.buf[idx+1:]
	return line, true
}
