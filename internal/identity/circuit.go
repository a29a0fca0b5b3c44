// circuit.go - Proving-environment rendition of the transition predicate.
//
// TransitionCircuit proves, over BW6-761 with Groth16, that a receipt's
// observable outcome follows from the account pre-state and the submitted
// proof material. Outcomes are derived branch-free with selects, so a
// failed authentication or a nonce mismatch is a provable outcome rather
// than an abort: the circuit never rejects a witness for a failure the
// state machine would report.

package identity

import (
	"math/big"

	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// TransitionCircuit binds the journal-observable fields of one transition.
// The stored commitment, the submitted proof, and the rotation target stay
// private; the public witness carries only state digests and the outcome.
type TransitionCircuit struct {
	// ====== PUBLIC VARIABLES ======
	OldStateDigest frontend.Variable `gnark:",public"` // MiMC(storedCommitment, accountNonce)
	NewStateDigest frontend.Variable `gnark:",public"` // MiMC(newCommitment, newNonce)
	DeclaredNonce  frontend.Variable `gnark:",public"`
	AccountNonce   frontend.Variable `gnark:",public"`
	Success        frontend.Variable `gnark:",public"` // 1 or 0, as in the journal
	FailureCode    frontend.Variable `gnark:",public"`
	NewNonce       frontend.Variable `gnark:",public"`

	// ====== PRIVATE VARIABLES ======
	StoredCommitment frontend.Variable
	SecretProof      frontend.Variable
	RotateTarget     frontend.Variable // equals StoredCommitment unless rotating
}

// Define implements the transition constraints.
func (c *TransitionCircuit) Define(api frontend.API) error {
	// 1) Bind the private pre-state to the public digest.
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.StoredCommitment)
	hasher.Write(c.AccountNonce)
	api.AssertIsEqual(c.OldStateDigest, hasher.Sum())

	// 2) Derive the outcome exactly as the state machine orders it:
	//    nonce equality first, then proof-of-knowledge.
	nonceOK := api.IsZero(api.Sub(c.DeclaredNonce, c.AccountNonce))
	authOK := api.IsZero(api.Sub(c.SecretProof, c.StoredCommitment))
	success := api.Mul(nonceOK, authOK)
	api.AssertIsEqual(c.Success, success)

	authCode := api.Select(authOK, 0, int(FailureAuthentication))
	code := api.Select(nonceOK, authCode, int(FailureNonceMismatch))
	api.AssertIsEqual(c.FailureCode, code)

	// 3) Nonce advances only on success, by exactly one.
	next := api.Add(c.AccountNonce, 1)
	api.AssertIsEqual(c.NewNonce, api.Select(success, next, c.AccountNonce))

	// 4) Commitment replacement is atomic with the success outcome.
	newCm := api.Select(success, c.RotateTarget, c.StoredCommitment)
	hasher.Reset()
	hasher.Write(newCm)
	hasher.Write(c.NewNonce)
	api.AssertIsEqual(c.NewStateDigest, hasher.Sum())

	return nil
}

// StateDigest computes the native counterpart of the circuit's account
// digest: MiMC(commitment, nonce) with the nonce packed into one field
// block. Native and in-circuit digests must agree bit for bit.
func StateDigest(cm []byte, nonce uint64) []byte {
	h := mimcNative.NewMiMC()
	h.Write(cm)
	var block [CommitmentSize]byte
	big.NewInt(0).SetUint64(nonce).FillBytes(block[:])
	h.Write(block[:])
	return h.Sum(nil)
}

// NewTransitionAssignment builds the full witness for a traced receipt.
func NewTransitionAssignment(t *Trace, r *Receipt) *TransitionCircuit {
	a := NewPublicAssignment(t, r)
	a.StoredCommitment = new(big.Int).SetBytes(t.OldCommitment).String()
	a.SecretProof = new(big.Int).SetBytes(t.SecretProof).String()
	a.RotateTarget = new(big.Int).SetBytes(t.RotateTarget).String()
	return a
}

// NewPublicAssignment rebuilds the public witness a verifier checks a
// proof against, from the pre-state digest material and the journal
// fields of the receipt. NewStateDigest is taken straight from the
// receipt, so the proof binds the digest the journal actually claims.
func NewPublicAssignment(t *Trace, r *Receipt) *TransitionCircuit {
	success := 0
	if r.Success {
		success = 1
	}
	return &TransitionCircuit{
		OldStateDigest: new(big.Int).SetBytes(StateDigest(t.OldCommitment, t.OldNonce)).String(),
		NewStateDigest: new(big.Int).SetBytes(r.StateDigest).String(),
		DeclaredNonce:  t.DeclaredNonce,
		AccountNonce:   t.OldNonce,
		Success:        success,
		FailureCode:    int(r.Failure),
		NewNonce:       r.NewNonce,
	}
}

// Provable reports whether the proving path has a witness for this
// receipt. Register and unknown-identity outcomes never resolve an
// account, and interpreter verdicts live outside the circuit's predicate;
// both adapters still execute those transitions identically, they are
// just not bound by a Groth16 proof.
func (r *Receipt) Provable() bool {
	if r.Trace == nil {
		return false
	}
	switch r.Failure {
	case FailureNone, FailureNonceMismatch, FailureAuthentication:
		return true
	default:
		return false
	}
}
