// prover_worker.go - Background auto-prover for accepted blobs.
//
// The fast path tentatively accepts a blob; this worker later re-executes
// it on the captured pre-state through the proving adapter, generates the
// Groth16 proof, and verifies it. The proved journal must reproduce the
// fast-path journal byte for byte: a mismatch invalidates the tentative
// acceptance. The ledger is never touched here, so an abandoned or retried
// proving run has no partial-state consequence.

package node

import (
	"bytes"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"walletd/internal/harness"
	"walletd/internal/identity"
)

// ProofStatus is the proving lifecycle of one submitted blob.
type ProofStatus string

const (
	StatusPending     ProofStatus = "pending"
	StatusProved      ProofStatus = "proved"
	StatusInvalidated ProofStatus = "invalidated"
	StatusFailed      ProofStatus = "failed"
	StatusUnproven    ProofStatus = "unproven"
)

type proofRecord struct {
	Status ProofStatus
	Proof  []byte
	Detail string
}

type proverJob struct {
	txID        string
	raw         []byte
	pre         identity.Account
	registered  bool
	fastJournal []byte
}

// ProverWorker proves accepted transitions asynchronously.
type ProverWorker struct {
	log     zerolog.Logger
	prover  *harness.Prover
	metrics *metrics

	jobs chan proverJob
	wg   sync.WaitGroup

	mu          sync.RWMutex
	records     map[string]*proofRecord
	invalidated map[string]bool
}

// NewProverWorker builds a worker over the given prover with a bounded
// submission queue.
func NewProverWorker(log zerolog.Logger, prover *harness.Prover, queueSize int) *ProverWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ProverWorker{
		log:         log,
		prover:      prover,
		jobs:        make(chan proverJob, queueSize),
		records:     make(map[string]*proofRecord),
		invalidated: make(map[string]bool),
	}
}

// Start launches the proving loop.
func (w *ProverWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for job := range w.jobs {
			w.process(job)
		}
	}()
}

// Stop drains the queue and waits for the in-flight proof to finish.
func (w *ProverWorker) Stop() {
	close(w.jobs)
	w.wg.Wait()
}

// Enqueue schedules a tentatively accepted blob for proving. Returns false
// if the queue is full; the caller then reports the blob as unproven.
// The pending record must exist before the job is visible to the worker,
// or a fast terminal status could be overwritten by it.
func (w *ProverWorker) Enqueue(job proverJob) bool {
	w.setRecord(job.txID, &proofRecord{Status: StatusPending})
	select {
	case w.jobs <- job:
		return true
	default:
		w.mu.Lock()
		if rec, ok := w.records[job.txID]; ok && rec.Status == StatusPending {
			delete(w.records, job.txID)
		}
		w.mu.Unlock()
		return false
	}
}

// Status reports the proving lifecycle of a submitted blob.
func (w *ProverWorker) Status(txID string) (ProofStatus, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.records[txID]
	if !ok {
		return "", false
	}
	return rec.Status, true
}

// Proof returns the marshaled Groth16 proof for a proved blob.
func (w *ProverWorker) Proof(txID string) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.records[txID]
	if !ok || rec.Status != StatusProved {
		return nil, false
	}
	return rec.Proof, true
}

// Invalidated reports whether any tentative acceptance for the identity
// was later invalidated by the proving path.
func (w *ProverWorker) Invalidated(identity string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.invalidated[identity]
}

func (w *ProverWorker) process(job proverJob) {
	// Re-execute on a snapshot holding exactly the pre-state the fast
	// path observed.
	snapshot := identity.NewLedger()
	if job.registered {
		snapshot.Accounts[job.pre.Identity] = job.pre
	}
	res, err := harness.ExecuteGuest(snapshot, job.raw)
	if err != nil {
		w.invalidate(job, "guest execution failed: "+err.Error())
		return
	}
	if !bytes.Equal(res.Journal, job.fastJournal) {
		w.log.Error().
			Str("tx", job.txID).
			Hex("fast_journal", job.fastJournal).
			Hex("guest_journal", res.Journal).
			Msg("proving-path journal diverged from fast path")
		w.invalidate(job, "journal mismatch")
		return
	}

	receipt := res.Receipt
	if w.prover == nil {
		w.setRecord(job.txID, &proofRecord{Status: StatusFailed, Detail: "no prover configured"})
		return
	}
	start := time.Now()
	proof, err := w.prover.Prove(receipt.Trace, receipt)
	if err != nil {
		// Proving is retryable as a whole unit; one retry, then give up.
		proof, err = w.prover.Prove(receipt.Trace, receipt)
	}
	if err != nil {
		w.log.Warn().Str("tx", job.txID).Err(err).Msg("proof generation failed")
		w.setRecord(job.txID, &proofRecord{Status: StatusFailed, Detail: err.Error()})
		return
	}
	if err := w.prover.Verify(proof, receipt.Trace, receipt); err != nil {
		w.invalidate(job, "proof verification failed: "+err.Error())
		return
	}

	elapsed := time.Since(start)
	if w.metrics != nil {
		w.metrics.proofSeconds.Observe(elapsed.Seconds())
		w.metrics.proofsTotal.Inc()
	}
	w.setRecord(job.txID, &proofRecord{Status: StatusProved, Proof: proof})
	w.log.Info().
		Str("tx", job.txID).
		Dur("elapsed", elapsed).
		Msg("transition proved")
}

func (w *ProverWorker) invalidate(job proverJob, detail string) {
	if w.metrics != nil {
		w.metrics.mismatches.Inc()
	}
	w.mu.Lock()
	w.records[job.txID] = &proofRecord{Status: StatusInvalidated, Detail: detail}
	if job.registered {
		w.invalidated[job.pre.Identity] = true
	}
	w.mu.Unlock()
}

func (w *ProverWorker) setRecord(txID string, rec *proofRecord) {
	w.mu.Lock()
	w.records[txID] = rec
	w.mu.Unlock()
}
