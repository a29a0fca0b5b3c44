package identity

import "walletd/commitment"

// CommitmentSize re-exports the codec's fixed commitment length.
const CommitmentSize = commitment.Size

// MaxIdentityLen bounds the identity key length accepted on the wire.
const MaxIdentityLen = 128

// Account is the per-identity contract state. Accounts are value types:
// every mutation replaces the whole stored value, which keeps the ledger
// trivially serializable for checkpointing between executions.
type Account struct {
	Identity         string            `json:"identity"`
	SecretCommitment []byte            `json:"secretCommitment"`
	Nonce            uint64            `json:"nonce"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Deactivated      bool              `json:"deactivated,omitempty"`
}

// clone returns a deep copy so a pending transition never aliases the
// stored value.
func (a Account) clone() Account {
	out := a
	out.SecretCommitment = append([]byte(nil), a.SecretCommitment...)
	if a.Metadata != nil {
		out.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// BlobKind tags the transition a blob requests.
type BlobKind uint8

const (
	BlobRegister BlobKind = 1
	BlobExecute  BlobKind = 2
	BlobRotate   BlobKind = 3
)

// Blob is one submitted action: the unit the state machine is invoked with.
//
// SecretProof is the commitment recomputed by the submitter from their
// secret; it proves knowledge of the secret without transmitting it.
// NewCommitment carries the initial commitment for BlobRegister and the
// rotation target for BlobRotate.
type Blob struct {
	Kind          BlobKind          `cbor:"kind"`
	Identity      string            `cbor:"identity"`
	DeclaredNonce uint64            `cbor:"declaredNonce"`
	SecretProof   []byte            `cbor:"secretProof,omitempty"`
	NewCommitment []byte            `cbor:"newCommitment,omitempty"`
	Action        *Action           `cbor:"action,omitempty"`
	Metadata      map[string]string `cbor:"metadata,omitempty"`
}

// ActionKind tags the closed action variant interpreted against an account.
// New kinds extend this enum; there is no runtime dispatch beyond it.
type ActionKind uint8

const (
	ActionPing       ActionKind = 1
	ActionSetMeta    ActionKind = 2
	ActionDeactivate ActionKind = 3
)

// Action is the payload of a BlobExecute transition.
type Action struct {
	Kind  ActionKind `cbor:"kind"`
	Key   string     `cbor:"key,omitempty"`
	Value string     `cbor:"value,omitempty"`
}

// Receipt is the observable outcome of one transition. The journal encodes
// every field except Trace, which only the proving path consumes.
//
// StateDigest is MiMC(commitment, nonce) over the post-transition account
// state. The raw commitment is the authentication credential and never
// enters a receipt: anyone holding it could authenticate, so the journal
// only ever carries its digest binding.
type Receipt struct {
	Success     bool        `cbor:"success" json:"success"`
	NewNonce    uint64      `cbor:"newNonce" json:"newNonce"`
	Failure     FailureKind `cbor:"failure" json:"failure"`
	StateDigest []byte      `cbor:"stateDigest,omitempty" json:"stateDigest,omitempty"`
	Effect      string      `cbor:"effect,omitempty" json:"effect,omitempty"`

	Trace *Trace `cbor:"-" json:"-"`
}

// Trace captures the pre-state a prover needs to re-derive this receipt.
// It exists only for transitions that resolved a registered account; the
// circuit has no witness for anything else.
type Trace struct {
	Identity      string
	OldCommitment []byte
	OldNonce      uint64
	DeclaredNonce uint64
	SecretProof   []byte
	RotateTarget  []byte
}
