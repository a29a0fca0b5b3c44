package node

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"walletd/commitment"
	"walletd/internal/identity"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(t.TempDir(), "ledger.json")
	}
	if cfg.Version == "" {
		cfg.Version = "test"
	}
	return NewServer(zerolog.Nop(), cfg, identity.NewLedger(), nil)
}

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

func postBlob(t *testing.T, ts *httptest.Server, raw []byte) (*http.Response, SubmitResult) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/blob", "application/cbor", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST /blob failed: %v", err)
	}
	defer resp.Body.Close()
	var result SubmitResult
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("response decode failed: %v", err)
		}
	}
	return resp, result
}

func TestSubmitLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, Config{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c0 := mustCommit(t, "alice-secret")

	// Register through the JSON convenience endpoint.
	regBody, _ := json.Marshal(map[string]any{
		"identity":   "alice",
		"commitment": hex.EncodeToString(c0),
	})
	resp, err := http.Post(ts.URL+"/register", "application/json", bytes.NewReader(regBody))
	if err != nil {
		t.Fatalf("POST /register failed: %v", err)
	}
	var reg SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		t.Fatalf("register response decode failed: %v", err)
	}
	resp.Body.Close()
	if !reg.Success || reg.Effect != "registered" {
		t.Fatalf("registration result = %+v", reg)
	}

	// Authenticated execute over the raw wire endpoint.
	raw := mustEncode(t, &identity.Blob{
		Kind: identity.BlobExecute, Identity: "alice", DeclaredNonce: 0,
		SecretProof: c0, Action: &identity.Action{Kind: identity.ActionPing},
	})
	resp, result := postBlob(t, ts, raw)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /blob status = %d", resp.StatusCode)
	}
	if !result.Success || result.NewNonce != 1 || result.Effect != "pong" {
		t.Fatalf("execute result = %+v", result)
	}
	if result.ProofStatus != StatusUnproven {
		t.Fatalf("proof status without a worker = %q", result.ProofStatus)
	}

	// Replaying the identical bytes fails with a typed receipt, not an
	// HTTP error.
	resp, result = postBlob(t, ts, raw)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay status = %d", resp.StatusCode)
	}
	if result.Success || result.FailureKind != identity.FailureNonceMismatch.String() {
		t.Fatalf("replay result = %+v", result)
	}

	// The indexer view reflects the committed nonce.
	resp, err = http.Get(ts.URL + "/account?identity=alice")
	if err != nil {
		t.Fatalf("GET /account failed: %v", err)
	}
	var acct accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		t.Fatalf("account decode failed: %v", err)
	}
	resp.Body.Close()
	if !acct.Registered || acct.Nonce != 1 {
		t.Fatalf("account view = %+v", acct)
	}
}

func TestSubmitMalformedBlob(t *testing.T) {
	s := newTestServer(t, Config{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	resp, result := postBlob(t, ts, []byte("definitely not cbor"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("malformed blob status = %d, want typed receipt over 200", resp.StatusCode)
	}
	if result.Success || result.FailureKind != identity.FailureSerialization.String() {
		t.Fatalf("malformed blob result = %+v", result)
	}
	if len(result.Journal) == 0 {
		t.Fatalf("malformed blob produced no journal")
	}
}

func TestSubmitRateLimited(t *testing.T) {
	s := newTestServer(t, Config{RateRPS: 1, RateBurst: 1})
	c0 := mustCommit(t, "alice-secret")
	raw := mustEncode(t, &identity.Blob{Kind: identity.BlobRegister, Identity: "alice", NewCommitment: c0})

	if _, err := s.Submit(raw); err != nil {
		t.Fatalf("first submission refused: %v", err)
	}
	// Burst exhausted: the next submission for the same identity is
	// refused before it reaches the state machine.
	raw2 := mustEncode(t, &identity.Blob{
		Kind: identity.BlobExecute, Identity: "alice", DeclaredNonce: 0,
		SecretProof: c0, Action: &identity.Action{Kind: identity.ActionPing},
	})
	if _, err := s.Submit(raw2); err == nil {
		t.Fatalf("second submission not rate limited")
	}
	// Other identities are untouched.
	other := mustEncode(t, &identity.Blob{Kind: identity.BlobRegister, Identity: "bob", NewCommitment: mustCommit(t, "bob-secret")})
	if _, err := s.Submit(other); err != nil {
		t.Fatalf("unrelated identity rate limited: %v", err)
	}
}

func TestRateLimitedOverHTTP(t *testing.T) {
	s := newTestServer(t, Config{RateRPS: 1, RateBurst: 1})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c0 := mustCommit(t, "alice-secret")
	raw := mustEncode(t, &identity.Blob{Kind: identity.BlobRegister, Identity: "alice", NewCommitment: c0})
	resp, _ := postBlob(t, ts, raw)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", resp.StatusCode)
	}
	resp, _ = postBlob(t, ts, raw)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", resp.StatusCode)
	}
}

func TestLedgerCheckpointOnSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	s := newTestServer(t, Config{LedgerPath: path})

	c0 := mustCommit(t, "alice-secret")
	if _, err := s.Submit(mustEncode(t, &identity.Blob{
		Kind: identity.BlobRegister, Identity: "alice", NewCommitment: c0,
	})); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	loaded, err := identity.LoadLedgerFromFile(path)
	if err != nil {
		t.Fatalf("checkpoint unreadable: %v", err)
	}
	if registered, _ := loaded.Info("alice"); !registered {
		t.Fatalf("checkpoint is missing the registered account")
	}
}

func TestHealthAndTxEndpoints(t *testing.T) {
	s := newTestServer(t, Config{})
	s.Health().RegisterProbe("always_ok", func() error { return nil })
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	var health SystemHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("health decode failed: %v", err)
	}
	resp.Body.Close()
	if health.OverallStatus != Healthy {
		t.Fatalf("overall status = %q", health.OverallStatus)
	}

	// Without a worker every transaction reads as unproven.
	resp, err = http.Get(ts.URL + "/tx?id=deadbeef")
	if err != nil {
		t.Fatalf("GET /tx failed: %v", err)
	}
	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		t.Fatalf("tx decode failed: %v", err)
	}
	resp.Body.Close()
	if tx.Status != StatusUnproven {
		t.Fatalf("tx status = %q", tx.Status)
	}
}

func TestMapLimiterEviction(t *testing.T) {
	l := newMapLimiter(1, 1, time.Minute)
	now := time.Now()
	if !l.Allow("alice", now) {
		t.Fatalf("first token refused")
	}
	if l.Allow("alice", now) {
		t.Fatalf("burst not enforced")
	}
	// After the idle TTL the entry is evicted and the bucket refills.
	later := now.Add(2 * time.Minute)
	if !l.Allow("alice", later) {
		t.Fatalf("token refused after idle eviction")
	}
	if len(l.byKey) != 1 {
		t.Fatalf("stale entries survived the sweep: %d", len(l.byKey))
	}
}
