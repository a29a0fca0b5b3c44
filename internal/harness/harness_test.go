package harness

import (
	"bytes"
	"testing"

	"walletd/commitment"
	"walletd/internal/identity"
)

func mustCommit(t *testing.T, secret string) []byte {
	t.Helper()
	cm, err := commitment.Commit([]byte(secret))
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	return cm
}

func mustEncode(t *testing.T, blob *identity.Blob) []byte {
	t.Helper()
	raw, err := identity.EncodeBlob(blob)
	if err != nil {
		t.Fatalf("EncodeBlob failed: %v", err)
	}
	return raw
}

// TestNativeAndGuestJournalsAgree replays the same blob sequence through
// both adapters, snapshotting before each step, and requires byte-identical
// journals throughout: successes, replays, bad proofs, unknown identities,
// and undecodable input alike.
func TestNativeAndGuestJournalsAgree(t *testing.T) {
	c0 := mustCommit(t, "alice-secret-0")
	c1 := mustCommit(t, "alice-secret-1")

	sequence := []struct {
		name string
		raw  []byte
	}{
		{"register", mustEncode(t, &identity.Blob{Kind: identity.BlobRegister, Identity: "alice", NewCommitment: c0})},
		{"execute", mustEncode(t, &identity.Blob{Kind: identity.BlobExecute, Identity: "alice", DeclaredNonce: 0, SecretProof: c0, Action: &identity.Action{Kind: identity.ActionPing}})},
		{"replay", mustEncode(t, &identity.Blob{Kind: identity.BlobExecute, Identity: "alice", DeclaredNonce: 0, SecretProof: c0, Action: &identity.Action{Kind: identity.ActionPing}})},
		{"bad proof", mustEncode(t, &identity.Blob{Kind: identity.BlobExecute, Identity: "alice", DeclaredNonce: 1, SecretProof: c1, Action: &identity.Action{Kind: identity.ActionPing}})},
		{"rotate", mustEncode(t, &identity.Blob{Kind: identity.BlobRotate, Identity: "alice", DeclaredNonce: 1, SecretProof: c0, NewCommitment: c1})},
		{"unknown identity", mustEncode(t, &identity.Blob{Kind: identity.BlobExecute, Identity: "ghost", DeclaredNonce: 0, SecretProof: c0, Action: &identity.Action{Kind: identity.ActionPing}})},
		{"malformed", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
	}

	ledger := identity.NewLedger()
	for _, step := range sequence {
		snapshot := ledger.Clone()

		native, err := ExecuteNative(ledger, step.raw)
		if err != nil {
			t.Fatalf("%s: native execution failed: %v", step.name, err)
		}
		guest, err := ExecuteGuest(snapshot, step.raw)
		if err != nil {
			t.Fatalf("%s: guest execution failed: %v", step.name, err)
		}
		if !bytes.Equal(native.Journal, guest.Journal) {
			t.Fatalf("%s: journals diverged\nnative: %x\nguest:  %x", step.name, native.Journal, guest.Journal)
		}
		if native.Receipt.Success != guest.Receipt.Success || native.Receipt.Failure != guest.Receipt.Failure {
			t.Fatalf("%s: receipts diverged: native %+v, guest %+v", step.name, native.Receipt, guest.Receipt)
		}
	}

	// The sequence committed: register, execute, rotate.
	if _, nonce := ledger.Info("alice"); nonce != 2 {
		t.Fatalf("final nonce = %d, want 2", nonce)
	}
}

func TestExecuteMalformedInputYieldsSerializationJournal(t *testing.T) {
	res, err := ExecuteNative(identity.NewLedger(), []byte("junk"))
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if res.Blob != nil {
		t.Fatalf("malformed input decoded to a blob: %+v", res.Blob)
	}
	if res.Receipt.Success || res.Receipt.Failure != identity.FailureSerialization {
		t.Fatalf("receipt = %+v, want serialization failure", res.Receipt)
	}
	decoded, err := identity.DecodeJournal(res.Journal)
	if err != nil {
		t.Fatalf("journal undecodable: %v", err)
	}
	if decoded.Failure != identity.FailureSerialization {
		t.Fatalf("journal failure = %v", decoded.Failure)
	}
}

func TestExecuteGuestDoesNotTouchCallerLedger(t *testing.T) {
	c0 := mustCommit(t, "s0")
	ledger := identity.NewLedger()
	if _, err := ExecuteNative(ledger, mustEncode(t, &identity.Blob{
		Kind: identity.BlobRegister, Identity: "alice", NewCommitment: c0,
	})); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	snapshot := ledger.Clone()
	raw := mustEncode(t, &identity.Blob{
		Kind: identity.BlobExecute, Identity: "alice", DeclaredNonce: 0,
		SecretProof: c0, Action: &identity.Action{Kind: identity.ActionPing},
	})
	if _, err := ExecuteGuest(snapshot, raw); err != nil {
		t.Fatalf("guest execution failed: %v", err)
	}
	if _, nonce := ledger.Info("alice"); nonce != 0 {
		t.Fatalf("guest execution leaked into the caller ledger, nonce = %d", nonce)
	}
}
