// Package commitment implements the secret commitment codec shared by the
// wallet contract and any client that constructs proof material for it.
//
// The codec binds a user secret to a fixed-size MiMC commitment over the
// BW6-761 scalar field. Both sides must compute it identically: a client
// that drifts from this encoding is indistinguishable from a client that
// typed the wrong secret.
//
// The package is deliberately free of project dependencies so it can be
// compiled into independently built artifacts.
package commitment

import (
	"errors"

	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
)

const (
	// Size is the byte length of a commitment (one BW6-761 fr element).
	Size = 48

	// MaxSecretLen bounds the accepted secret length. Longer inputs are
	// rejected, never truncated.
	MaxSecretLen = 64

	// limbSize is the number of secret bytes packed per hash block. One
	// byte of headroom per 48-byte block keeps every block a canonical
	// field element.
	limbSize = 47
)

// ErrOversizedInput is returned for secrets longer than MaxSecretLen.
var ErrOversizedInput = errors.New("commitment: secret exceeds maximum length")

// Commit hashes a secret into its fixed-size commitment.
//
// The schedule is fixed-cost: exactly two data limbs plus one length block
// are absorbed regardless of the secret's content or length, so the hash
// cost carries no information about the secret beyond the bounded maximum.
func Commit(secret []byte) ([]byte, error) {
	if len(secret) > MaxSecretLen {
		return nil, ErrOversizedInput
	}
	limb0, limb1 := Limbs(secret)
	h := mimcNative.NewMiMC()
	h.Write(limb0)
	h.Write(limb1)
	h.Write(lengthBlock(secret))
	return h.Sum(nil), nil
}

// Limbs splits a secret into the two fixed 48-byte hash blocks absorbed by
// Commit. Each block left-pads at most limbSize secret bytes, so its value
// always fits the field. Exposed so the proving circuit's witness builder
// packs the secret exactly the way the native codec does.
func Limbs(secret []byte) ([]byte, []byte) {
	var a, b [Size]byte
	head := secret
	if len(head) > limbSize {
		head = secret[:limbSize]
		tail := secret[limbSize:]
		copy(b[Size-len(tail):], tail)
	}
	copy(a[Size-len(head):], head)
	return a[:], b[:]
}

// lengthBlock encodes the secret length as a hash block, binding the
// length so zero-padding cannot collide two secrets of different sizes.
func lengthBlock(secret []byte) []byte {
	var block [Size]byte
	block[Size-1] = byte(len(secret))
	return block[:]
}
