// Package harness exposes the two entry points into the identity contract:
// native fast-path execution and proving-environment execution. Both decode
// the same wire input, run the identical state machine, and encode the same
// canonical journal; a divergence between them is a correctness bug, and
// the tests assert equality rather than tolerate mismatch.
package harness

import (
	"walletd/internal/identity"
)

// Result is the outcome of one execution: the decoded blob (nil when the
// wire input was malformed), the receipt, and its canonical journal.
type Result struct {
	Blob    *identity.Blob
	Receipt *identity.Receipt
	Journal []byte
}

// ExecuteNative runs one blob through the fast, unproven path, mutating
// the given ledger on success.
func ExecuteNative(l *identity.Ledger, raw []byte) (*Result, error) {
	return execute(l, raw)
}

// ExecuteGuest runs one blob the way the proving environment does: same
// decode, same transition, same journal. Callers hand it a ledger snapshot
// so the replay observes exactly the pre-state the fast path saw; the
// Groth16 binding over the result lives in the Prover.
func ExecuteGuest(l *identity.Ledger, raw []byte) (*Result, error) {
	return execute(l, raw)
}

// execute is the single code path behind both adapters. Environment
// concerns stay out here at the boundary; nothing below this function may
// branch on where it runs.
func execute(l *identity.Ledger, raw []byte) (*Result, error) {
	blob, err := identity.DecodeBlob(raw)
	var receipt *identity.Receipt
	if err != nil {
		// The exact error classification is preserved into the receipt so
		// both callers observe the same failure kind.
		receipt = identity.FailureReceipt(identity.FailureOf(err))
	} else {
		receipt = identity.Transition(l, blob)
	}
	journal, err := receipt.Journal()
	if err != nil {
		return nil, err
	}
	return &Result{Blob: blob, Receipt: receipt, Journal: journal}, nil
}
