// server.go - HTTP surface of the wallet node.
//
// The server decodes submitted blobs, runs fast-path validation through
// the native harness adapter, checkpoints the ledger, and hands accepted
// transitions to the background prover. Transitions on the same identity
// are strictly serialized; distinct identities proceed independently.

package node

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"walletd/internal/harness"
	"walletd/internal/identity"
)

// ErrRateLimited is returned when an identity exceeds its submission rate.
var ErrRateLimited = errors.New("node: submission rate limit exceeded")

const maxBlobBody = 1 << 20

// Config carries the node's runtime settings.
type Config struct {
	LedgerPath string
	RateRPS    float64
	RateBurst  int
	Version    string
}

// Server owns the ledger, the identity lock map, and the HTTP handlers.
type Server struct {
	log     zerolog.Logger
	cfg     Config
	ledger  *identity.Ledger
	worker  *ProverWorker
	limiter *mapLimiter
	metrics *metrics
	health  *HealthChecker

	// ledgerMu guards the account map itself; idLocks serialize the
	// read-validate-commit window per identity so no two transitions on
	// the same identity can both observe the same nonce and both succeed.
	ledgerMu sync.Mutex
	lockMu   sync.Mutex
	idLocks  map[string]*sync.Mutex
}

// NewServer builds a node over an already loaded ledger. The prover worker
// is optional; without it every submission reports as unproven.
func NewServer(log zerolog.Logger, cfg Config, ledger *identity.Ledger, worker *ProverWorker) *Server {
	s := &Server{
		log:     log,
		cfg:     cfg,
		ledger:  ledger,
		worker:  worker,
		limiter: newMapLimiter(cfg.RateRPS, cfg.RateBurst, 10*time.Minute),
		metrics: newMetrics(),
		health:  NewHealthChecker(cfg.Version),
		idLocks: make(map[string]*sync.Mutex),
	}
	if worker != nil {
		worker.metrics = s.metrics
	}
	return s
}

// Health exposes the checker so the daemon can register probes.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Router returns the node's HTTP routes.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/blob", s.handleBlob)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/account", s.handleAccount)
	mux.HandleFunc("/tx", s.handleTx)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.handler())
	return mux
}

// SubmitResult is the caller-facing outcome of one submission.
type SubmitResult struct {
	TxID        string      `json:"txId"`
	Success     bool        `json:"success"`
	NewNonce    uint64      `json:"newNonce"`
	FailureKind string      `json:"failureKind,omitempty"`
	Effect      string      `json:"effect,omitempty"`
	Journal     []byte      `json:"journal"`
	ProofStatus ProofStatus `json:"proofStatus"`
}

// Submit runs one wire-encoded blob through the fast path. The returned
// error is reserved for transport-level refusals (rate limiting); every
// contract-level failure lands in the result's failure kind.
func (s *Server) Submit(raw []byte) (*SubmitResult, error) {
	txID := sha256.Sum256(raw)
	result := &SubmitResult{
		TxID:        hex.EncodeToString(txID[:]),
		ProofStatus: StatusUnproven,
	}

	blob, decErr := identity.DecodeBlob(raw)
	if decErr != nil {
		receipt := identity.FailureReceipt(identity.FailureOf(decErr))
		journal, err := receipt.Journal()
		if err != nil {
			return nil, err
		}
		s.observe("malformed", receipt)
		result.FailureKind = receipt.Failure.String()
		result.Journal = journal
		return result, nil
	}

	if !s.limiter.Allow(blob.Identity, time.Now()) {
		s.metrics.rateLimited.Inc()
		return nil, fmt.Errorf("%w: %q", ErrRateLimited, blob.Identity)
	}

	lock := s.identityLock(blob.Identity)
	lock.Lock()
	defer lock.Unlock()

	s.ledgerMu.Lock()
	pre, preErr := s.ledger.Get(blob.Identity)
	res, err := harness.ExecuteNative(s.ledger, raw)
	if err == nil && res.Receipt.Success && s.cfg.LedgerPath != "" {
		if saveErr := s.ledger.SaveToFile(s.cfg.LedgerPath); saveErr != nil {
			s.log.Error().Err(saveErr).Msg("ledger checkpoint failed")
		}
	}
	s.ledgerMu.Unlock()
	if err != nil {
		return nil, err
	}

	receipt := res.Receipt
	s.observe(kindName(blob.Kind), receipt)
	result.Success = receipt.Success
	result.NewNonce = receipt.NewNonce
	result.Effect = receipt.Effect
	result.Journal = res.Journal
	if !receipt.Success {
		result.FailureKind = receipt.Failure.String()
	}

	if s.worker != nil && receipt.Provable() {
		job := proverJob{
			txID:        result.TxID,
			raw:         raw,
			pre:         pre,
			registered:  preErr == nil,
			fastJournal: res.Journal,
		}
		if s.worker.Enqueue(job) {
			result.ProofStatus = StatusPending
		} else {
			s.log.Warn().Str("tx", result.TxID).Msg("prover queue full, blob left unproven")
		}
	}

	s.log.Info().
		Str("tx", result.TxID).
		Str("identity", blob.Identity).
		Bool("success", receipt.Success).
		Str("failure", receipt.Failure.String()).
		Msg("blob processed")
	return result, nil
}

func (s *Server) identityLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.idLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.idLocks[id] = lock
	}
	return lock
}

func (s *Server) observe(kind string, r *identity.Receipt) {
	s.metrics.submissions.WithLabelValues(kind).Inc()
	s.metrics.outcomes.WithLabelValues(r.Failure.String()).Inc()
}

func kindName(k identity.BlobKind) string {
	switch k {
	case identity.BlobRegister:
		return "register"
	case identity.BlobExecute:
		return "execute"
	case identity.BlobRotate:
		return "rotate"
	default:
		return "unknown"
	}
}

// handleBlob accepts a canonical wire-encoded blob as the request body.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBlobBody))
	if err != nil {
		http.Error(w, "request body unreadable", http.StatusBadRequest)
		return
	}
	s.respondSubmit(w, raw)
}

// registerRequest is the JSON convenience form of a registration blob.
type registerRequest struct {
	Identity   string            `json:"identity"`
	Commitment string            `json:"commitment"` // hex
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// handleRegister builds a registration blob from JSON and funnels it
// through the same wire pipeline as raw submissions.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBlobBody)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	cm, err := hex.DecodeString(req.Commitment)
	if err != nil {
		http.Error(w, "commitment is not valid hex", http.StatusBadRequest)
		return
	}
	raw, err := identity.EncodeBlob(&identity.Blob{
		Kind:          identity.BlobRegister,
		Identity:      req.Identity,
		NewCommitment: cm,
		Metadata:      req.Metadata,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid registration: %v", err), http.StatusBadRequest)
		return
	}
	s.respondSubmit(w, raw)
}

func (s *Server) respondSubmit(w http.ResponseWriter, raw []byte) {
	result, err := s.Submit(raw)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

// accountResponse never carries secret material: commitment presence and
// nonce only.
type accountResponse struct {
	Identity    string `json:"identity"`
	Registered  bool   `json:"registered"`
	Nonce       uint64 `json:"nonce"`
	Invalidated bool   `json:"invalidated,omitempty"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("identity")
	if id == "" {
		http.Error(w, "identity query parameter required", http.StatusBadRequest)
		return
	}
	s.ledgerMu.Lock()
	registered, nonce := s.ledger.Info(id)
	s.ledgerMu.Unlock()
	resp := accountResponse{Identity: id, Registered: registered, Nonce: nonce}
	if s.worker != nil {
		resp.Invalidated = s.worker.Invalidated(id)
	}
	writeJSON(w, resp)
}

type txResponse struct {
	TxID   string      `json:"txId"`
	Status ProofStatus `json:"status"`
	Proof  string      `json:"proof,omitempty"` // hex, present once proved
}

func (s *Server) handleTx(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id query parameter required", http.StatusBadRequest)
		return
	}
	if s.worker == nil {
		writeJSON(w, txResponse{TxID: id, Status: StatusUnproven})
		return
	}
	status, ok := s.worker.Status(id)
	if !ok {
		http.Error(w, "unknown transaction", http.StatusNotFound)
		return
	}
	resp := txResponse{TxID: id, Status: status}
	if proof, ok := s.worker.Proof(id); ok {
		resp.Proof = hex.EncodeToString(proof)
	}
	writeJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check()
	if report.OverallStatus == Unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response failed", http.StatusInternalServerError)
	}
}
