// machine.go - Identity contract state machine.
//
// Transition is the unit invoked once per submitted blob, from both the
// native fast path and the proving path. It validates in a fixed order,
// commits atomically, and reports every failure as a typed receipt. It
// must stay free of I/O, clocks, and randomness.

package identity

import (
	"crypto/subtle"
)

// Transition validates and applies one blob against the ledger. On success
// the ledger holds the committed new account state; on any failure the
// ledger is untouched. Transition never returns an error: the receipt's
// failure kind is the only failure channel, because the identical code runs
// inside the proving environment where aborting forfeits the proof.
func Transition(l *Ledger, blob *Blob) *Receipt {
	if blob == nil {
		return failureReceipt(FailureSerialization, 0, nil)
	}
	switch blob.Kind {
	case BlobRegister:
		return register(l, blob)
	case BlobExecute, BlobRotate:
		return authenticate(l, blob)
	default:
		return failureReceipt(FailureSerialization, 0, nil)
	}
}

// register creates the account. Valid only while the identity is
// unregistered; a second registration fails and leaves the first intact.
func register(l *Ledger, blob *Blob) *Receipt {
	if blob.Identity == "" || len(blob.Identity) > MaxIdentityLen ||
		!CanonicalCommitment(blob.NewCommitment) ||
		!validMetadata(blob.Metadata) {
		return failureReceipt(FailureSerialization, 0, nil)
	}
	acct, err := l.Insert(blob.Identity, blob.NewCommitment, blob.Metadata)
	if err != nil {
		return failureReceipt(FailureOf(err), 0, nil)
	}
	return &Receipt{
		Success:     true,
		NewNonce:    acct.Nonce,
		StateDigest: StateDigest(acct.SecretCommitment, acct.Nonce),
		Effect:      "registered",
	}
}

// authenticate handles BlobExecute and BlobRotate. Validation order is
// fixed: identity existence, then exact nonce equality, then secret proof.
// Only after all three pass does the action interpreter (or the rotation)
// run, and only interpreter success commits.
func authenticate(l *Ledger, blob *Blob) *Receipt {
	acct, err := l.Get(blob.Identity)
	if err != nil {
		return failureReceipt(FailureUnknownIdentity, 0, nil)
	}

	trace := &Trace{
		Identity:      blob.Identity,
		OldCommitment: acct.SecretCommitment,
		OldNonce:      acct.Nonce,
		DeclaredNonce: blob.DeclaredNonce,
		SecretProof:   blob.SecretProof,
		RotateTarget:  acct.SecretCommitment,
	}
	if blob.Kind == BlobRotate {
		trace.RotateTarget = blob.NewCommitment
	}

	// Exact equality: a stale nonce is a replay, a future nonce is
	// premature. No tolerance window either way.
	if blob.DeclaredNonce != acct.Nonce {
		return traced(failureReceipt(FailureNonceMismatch, acct.Nonce, acct.SecretCommitment), trace)
	}
	if !verifyProof(acct.SecretCommitment, blob.SecretProof) {
		return traced(failureReceipt(FailureAuthentication, acct.Nonce, acct.SecretCommitment), trace)
	}

	var (
		next   Account
		effect string
	)
	switch blob.Kind {
	case BlobRotate:
		if !CanonicalCommitment(blob.NewCommitment) {
			return traced(failureReceipt(FailureSerialization, acct.Nonce, acct.SecretCommitment), trace)
		}
		// The old commitment dies the instant this commits; there is no
		// grace period for blobs built against it.
		next = acct.clone()
		next.SecretCommitment = append([]byte(nil), blob.NewCommitment...)
		effect = "rotated"
	default:
		next, effect, err = applyAction(acct, blob.Action)
		if err != nil {
			// Interpreter failure fails the whole transaction: no nonce
			// advancement, no partial state.
			return traced(failureReceipt(FailureOf(err), acct.Nonce, acct.SecretCommitment), trace)
		}
	}

	next.Nonce = blob.DeclaredNonce + 1
	committed, err := l.Update(next)
	if err != nil {
		return traced(failureReceipt(FailureUnknownIdentity, acct.Nonce, acct.SecretCommitment), trace)
	}
	return traced(&Receipt{
		Success:     true,
		NewNonce:    committed.Nonce,
		StateDigest: StateDigest(committed.SecretCommitment, committed.Nonce),
		Effect:      effect,
	}, trace)
}

// verifyProof is the proof-of-knowledge predicate: the submitted proof must
// recompute to the stored commitment. Kept as a single seam so a separate
// recovery scheme could replace it without touching transition ordering.
// Constant-time comparison; the only content-dependent cost allowed is the
// fixed-cost hash the submitter already paid.
func verifyProof(stored, proof []byte) bool {
	if len(stored) != CommitmentSize || len(proof) != CommitmentSize {
		return false
	}
	return subtle.ConstantTimeCompare(stored, proof) == 1
}

// FailureReceipt builds a bare failure receipt for errors raised before
// any account state was resolved, such as undecodable wire input.
func FailureReceipt(kind FailureKind) *Receipt {
	return failureReceipt(kind, 0, nil)
}

// failureReceipt binds the unchanged account state as a digest. Receipts
// built before an account was resolved carry no digest at all.
func failureReceipt(kind FailureKind, nonce uint64, cm []byte) *Receipt {
	r := &Receipt{
		Success:  false,
		NewNonce: nonce,
		Failure:  kind,
	}
	if cm != nil {
		r.StateDigest = StateDigest(cm, nonce)
	}
	return r
}

func traced(r *Receipt, t *Trace) *Receipt {
	r.Trace = t
	return r
}
