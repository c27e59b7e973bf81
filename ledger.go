package x402

import "sync"

// SettlementState is the lifecycle position of a settlement key.
//
// Keys move absent -> pending -> success | failed. Success and failed are
// terminal: a succeeded key replays its recorded response forever, and a
// failed key refuses settlement forever. There is no eviction; the burned
// nonce is what makes an authorization single-use.
type SettlementState int

const (
	StateAbsent SettlementState = iota
	StatePending
	StateSuccess
	StateFailed
)

type settlementRecord struct {
	state    SettlementState
	response *SettleResponse
}

// SettlementLedger provides at-most-once settlement. All checks and
// transitions happen under one mutex with no I/O inside the critical
// section, so concurrent settles of the same payment serialize correctly:
// exactly one caller wins Begin and performs the transfer.
type SettlementLedger struct {
	mu      sync.Mutex
	records map[string]*settlementRecord
}

// NewSettlementLedger creates an empty in-memory ledger.
func NewSettlementLedger() *SettlementLedger {
	return &SettlementLedger{
		records: make(map[string]*settlementRecord),
	}
}

// Begin claims a settlement key. If the key is absent it transitions to
// pending and the caller owns the settlement attempt; the caller must follow
// up with RecordSuccess or RecordFailure. Any other state is returned as-is,
// with the recorded response when the key already settled.
func (l *SettlementLedger) Begin(key string) (SettlementState, *SettleResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		l.records[key] = &settlementRecord{state: StatePending}
		return StateAbsent, nil
	}
	return rec.state, rec.response
}

// State reports the current state of a key without claiming it.
func (l *SettlementLedger) State(key string) SettlementState {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return StateAbsent
	}
	return rec.state
}

// RecordSuccess moves a pending key to success and stores the response that
// replays on duplicate settles. Calls on non-pending keys are ignored.
func (l *SettlementLedger) RecordSuccess(key string, response *SettleResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || rec.state != StatePending {
		return
	}
	rec.state = StateSuccess
	rec.response = response
}

// RecordFailure moves a pending key to failed. Failed is permanent: the
// submitted transfer may still land on chain, so retrying the same
// authorization could double-pay. The payer must issue a fresh authorization
// with a new nonce. Calls on non-pending keys are ignored.
func (l *SettlementLedger) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || rec.state != StatePending {
		return
	}
	rec.state = StateFailed
	rec.response = nil
}
