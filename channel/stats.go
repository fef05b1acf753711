package channel

import "sync"

// Stats collects the exchange counters the original Python reference
// keeps at module level (radio_pickle.py: rx_timeouts, tx_timeouts,
// rx_all, rx_data). Hoisting them into a struct owned by the Channel,
// rather than package globals, was one of the re-architecture notes --
// a process can run more than one Channel, and each needs its own
// counters.
type Stats struct {
	mu sync.Mutex

	rxTimeouts  int
	txTimeouts  int
	rxAll       int
	rxData      int
	failCount   int
	exchangeCnt int
}

// Snapshot is an immutable copy of Stats for reporting, safe to read
// without holding any lock.
type Snapshot struct {
	RxTimeouts int
	TxTimeouts int
	RxAll      int
	RxData     int
	FailCount  int
	Exchanges  int
}

func (s *Stats) recordExchange(success bool, rxLen int, isMaster bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchangeCnt++
	s.rxAll++
	if !success {
		s.failCount++
		if isMaster {
			s.txTimeouts++
		} else {
			s.rxTimeouts++
		}
		return
	}
	if rxLen > 0 {
		s.rxData++
	}
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RxTimeouts: s.rxTimeouts,
		TxTimeouts: s.txTimeouts,
		RxAll:      s.rxAll,
		RxData:     s.rxData,
		FailCount:  s.failCount,
		Exchanges:  s.exchangeCnt,
	}
}
