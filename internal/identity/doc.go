// Package identity implements the wallet identity contract: a deterministic
// state machine that authenticates users by secret commitment and applies
// submitted actions ("blobs") against their accounts.
//
// Overview:
//   - Accounts are keyed by a unique identity string and hold a MiMC secret
//     commitment and a strictly increasing nonce
//   - Blobs bundle an identity, a declared nonce, secret proof material, and
//     an action; the state machine validates and applies exactly one blob
//     per invocation
//   - Every outcome, success or failure, is a typed Receipt; nothing in this
//     package aborts, because the same code runs inside the proving path
//     where an abort forfeits the proof
//
// Determinism:
//   - The transition logic performs no I/O, reads no clock, and consumes no
//     randomness, so the native fast path and the proving path produce
//     byte-identical receipts from identical inputs
//   - The wire format and the receipt journal use deterministic CBOR so a
//     single encoding exists for every value
//
// The Groth16 circuit in circuit.go mirrors the authentication predicate of
// the state machine; see the harness package for the two execution adapters.
package identity
