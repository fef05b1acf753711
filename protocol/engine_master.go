package protocol

import "context"

/*------------------------------------------------------------------
 *
 * Purpose:	Master side of one object-mode exchange (spec §4.4.1).
 *
 *------------------------------------------------------------------*/

// RunMaster drives one master-initiated exchange: send outbound as the
// master's payload, and return whatever the slave sent back.
func (e *Engine) RunMaster(ctx context.Context, outbound []byte) (Result, error) {
	e.rx.Reset()
	return e.runCore(ctx, outbound, CmdSTARTSLAVE, false)
}
