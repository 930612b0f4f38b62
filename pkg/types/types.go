package types

import "time"

// TransactionState is the relay-reported lifecycle state of a submitted
// transaction. The relay owns the vocabulary; this layer only distinguishes
// terminal states from everything else when polling.
type TransactionState string

const (
	StateNew       TransactionState = "STATE_NEW"
	StateExecuted  TransactionState = "STATE_EXECUTED"
	StateMined     TransactionState = "STATE_MINED"
	StateConfirmed TransactionState = "STATE_CONFIRMED"
	StateFailed    TransactionState = "STATE_FAILED"
)

// KnownStates lists the state vocabulary the relay currently emits.
// Unknown states are treated as non-terminal by the confirmation poller.
var KnownStates = []TransactionState{
	StateNew,
	StateExecuted,
	StateMined,
	StateConfirmed,
	StateFailed,
}

// IsKnownState reports whether s belongs to the known relay vocabulary.
func IsKnownState(s TransactionState) bool {
	for _, known := range KnownStates {
		if s == known {
			return true
		}
	}
	return false
}

// SignerKind tags which replay-protection counter a nonce query refers to.
// Externally-owned accounts and contract wallets keep independent nonce
// sequences on the relay.
type SignerKind string

const (
	SignerKindEOA  SignerKind = "EOA"
	SignerKindSafe SignerKind = "SAFE"
)

// Nonce is the relay-reported replay-protection counter for an
// (address, signer kind) pair. It reports current state only; callers that
// need a next nonce do their own arithmetic.
type Nonce string

// ProxyCall describes one relayed call executed on behalf of an
// externally-owned account via the relay's proxy contract. Value is a decimal
// string to avoid precision loss on large native-currency amounts.
type ProxyCall struct {
	To       string `json:"to"`
	TypeCode string `json:"typeCode"`
	Data     string `json:"data"`
	Value    string `json:"value"`
}

// SafeCall describes one call executed through a multi-signature wallet
// contract. Operation is the wallet's call/delegate-call discriminator and is
// passed through to the relay unmodified.
type SafeCall struct {
	To        string `json:"to"`
	Operation string `json:"operation"`
	Data      string `json:"data"`
	Value     string `json:"value"`
}

// TransactionRecord is the canonical record shape returned to callers for
// every transaction kind, regardless of which relay endpoint produced it.
// ChainTransactionHash is empty until the relay has broadcast to the chain.
type TransactionRecord struct {
	ID                   string           `json:"id"`
	State                TransactionState `json:"state"`
	RelayHash            string           `json:"relayHash"`
	ChainTransactionHash string           `json:"chainTransactionHash"`
}

// Terminal reports whether the record's state is one from which the relay
// makes no further transition.
func (r *TransactionRecord) Terminal() bool {
	return r.State == StateConfirmed || r.State == StateFailed
}

// SubmissionKind labels which submit operation produced a journal entry.
type SubmissionKind string

const (
	SubmissionKindProxy      SubmissionKind = "proxy"
	SubmissionKindSafe       SubmissionKind = "safe"
	SubmissionKindSafeDeploy SubmissionKind = "safe-deploy"
)

// SubmissionEntry is a local journal record of a submission made through this
// client. The relay remains the source of truth for transaction state; the
// journal only mirrors what was last observed.
type SubmissionEntry struct {
	TransactionID        string           `json:"transactionId"`
	Kind                 SubmissionKind   `json:"kind"`
	State                TransactionState `json:"state"`
	RelayHash            string           `json:"relayHash,omitempty"`
	ChainTransactionHash string           `json:"chainTransactionHash,omitempty"`
	Metadata             string           `json:"metadata,omitempty"`
	From                 string           `json:"from,omitempty"`
	SubmittedAt          time.Time        `json:"submittedAt"`
}
