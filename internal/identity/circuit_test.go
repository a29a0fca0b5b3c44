package identity

import (
	"bytes"
	"testing"

	"walletd/commitment"
)

func TestStateDigestBindsBothInputs(t *testing.T) {
	c0, _ := commitment.Commit([]byte("s0"))
	c1, _ := commitment.Commit([]byte("s1"))

	d := StateDigest(c0, 0)
	if len(d) != CommitmentSize {
		t.Fatalf("digest length = %d, want %d", len(d), CommitmentSize)
	}
	if !bytes.Equal(d, StateDigest(c0, 0)) {
		t.Fatalf("digest is not deterministic")
	}
	if bytes.Equal(d, StateDigest(c0, 1)) {
		t.Fatalf("digest ignores the nonce")
	}
	if bytes.Equal(d, StateDigest(c1, 0)) {
		t.Fatalf("digest ignores the commitment")
	}
}

func TestReceiptProvable(t *testing.T) {
	tr := &Trace{Identity: "alice"}
	cases := []struct {
		receipt *Receipt
		want    bool
	}{
		{&Receipt{Success: true, Trace: tr}, true},
		{&Receipt{Failure: FailureNonceMismatch, Trace: tr}, true},
		{&Receipt{Failure: FailureAuthentication, Trace: tr}, true},
		{&Receipt{Failure: FailureAction, Trace: tr}, false},
		{&Receipt{Failure: FailureUnsupportedAction, Trace: tr}, false},
		{&Receipt{Success: true}, false},
		{&Receipt{Failure: FailureUnknownIdentity}, false},
	}
	for i, tc := range cases {
		if got := tc.receipt.Provable(); got != tc.want {
			t.Fatalf("case %d: Provable = %v, want %v", i, got, tc.want)
		}
	}
}
