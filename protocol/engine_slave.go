package protocol

import "context"

/*------------------------------------------------------------------
 *
 * Purpose:	Slave side of one object-mode exchange (spec §4.4.2).
 *
 * Description:	The slave blocks for START_SLAVE before anything else.
 *		A BYE seen here is the harmless tail of the previous
 *		exchange -- it is ignored, not treated as a protocol
 *		error (spec §4.4.3 / scenario 6).
 *
 *------------------------------------------------------------------*/

// RunSlave blocks for the master's START_SLAVE, then drives the
// remainder of the exchange symmetrically with RunMaster.
func (e *Engine) RunSlave(ctx context.Context, outbound []byte) (Result, error) {
	start, err := e.awaitStartSlave(ctx)
	if err != nil {
		return Result{}, err
	}

	e.rx.Reset()
	if start.PWR {
		e.rx.OnPeerPower()
	}
	rxDone := start.TXDONE
	if start.NBytes > 0 {
		e.rx.Ingest(start)
	}

	return e.runCore(ctx, outbound, CmdOK, rxDone)
}

// awaitStartSlave blocks, with no deadline beyond ctx cancellation,
// until a START_SLAVE frame arrives. Stray BYEs and any other
// unexpected frame are silently ignored.
func (e *Engine) awaitStartSlave(ctx context.Context) (Frame, error) {
	if err := e.adapter.StartListening(ctx); err != nil {
		return Frame{}, err
	}

	f, _, err := e.awaitFrame(ctx, 0, func(f Frame) bool {
		return f.Command() == CmdSTARTSLAVE
	})
	return f, err
}
