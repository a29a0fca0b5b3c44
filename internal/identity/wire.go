// wire.go - Canonical wire format for blobs and receipt journals.
//
// Both execution paths must decode a submitted blob identically, and the
// journal must be byte-identical however it was produced, so everything on
// this boundary uses deterministic CBOR: one value, one encoding.

package identity

import (
	"fmt"
	"math/big"

	bw6761fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("identity: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("identity: cbor dec mode: %v", err))
	}
}

// EncodeBlob serializes a blob into its canonical wire form.
func EncodeBlob(blob *Blob) ([]byte, error) {
	data, err := encMode.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// DecodeBlob parses and shape-checks a wire blob. Anything malformed fails
// with ErrSerialization; nothing here panics on adversarial input.
func DecodeBlob(data []byte) (*Blob, error) {
	var blob Blob
	if err := decMode.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if blob.Identity == "" || len(blob.Identity) > MaxIdentityLen {
		return nil, fmt.Errorf("%w: identity length %d out of range", ErrSerialization, len(blob.Identity))
	}
	switch blob.Kind {
	case BlobRegister:
		if !CanonicalCommitment(blob.NewCommitment) {
			return nil, fmt.Errorf("%w: register commitment is not a canonical %d-byte commitment", ErrSerialization, CommitmentSize)
		}
		if !validMetadata(blob.Metadata) {
			return nil, fmt.Errorf("%w: registration metadata exceeds bounds", ErrSerialization)
		}
	case BlobExecute:
		if !CanonicalCommitment(blob.SecretProof) {
			return nil, fmt.Errorf("%w: secret proof is not a canonical %d-byte commitment", ErrSerialization, CommitmentSize)
		}
		if blob.Action == nil {
			return nil, fmt.Errorf("%w: execute blob carries no action", ErrSerialization)
		}
	case BlobRotate:
		if !CanonicalCommitment(blob.SecretProof) {
			return nil, fmt.Errorf("%w: secret proof is not a canonical %d-byte commitment", ErrSerialization, CommitmentSize)
		}
		if !CanonicalCommitment(blob.NewCommitment) {
			return nil, fmt.Errorf("%w: rotation target is not a canonical %d-byte commitment", ErrSerialization, CommitmentSize)
		}
	default:
		return nil, fmt.Errorf("%w: unknown blob kind %d", ErrSerialization, blob.Kind)
	}
	return &blob, nil
}

// CanonicalCommitment reports whether b is a commitment-sized canonical
// field element. Values at or above the field modulus would diverge
// between native byte comparison and in-circuit field arithmetic, so they
// are refused at the wire boundary.
func CanonicalCommitment(b []byte) bool {
	if len(b) != CommitmentSize {
		return false
	}
	return new(big.Int).SetBytes(b).Cmp(bw6761fr.Modulus()) < 0
}

// Journal encodes the receipt's observable fields as the canonical public
// output committed by a proving execution. The execution trace never enters
// the journal.
func (r *Receipt) Journal() ([]byte, error) {
	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// DecodeJournal parses a journal back into the receipt it committed, for
// verifiers that rebuild the public witness from it.
func DecodeJournal(data []byte) (*Receipt, error) {
	var r Receipt
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return &r, nil
}
