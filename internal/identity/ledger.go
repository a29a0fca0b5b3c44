// ledger.go - Serializable account ledger for the wallet identity contract.
//
// The Ledger holds every registered identity and its commitment/nonce pair.
// Mutations are total value replacements, never partial in-place edits, so a
// checkpoint taken between native and proving executions is always a
// consistent snapshot.
//
// NOTE: Ledger is not thread-safe by itself; the node layer serializes
// access per identity.

package identity

import (
	"encoding/json"
	"fmt"
	"os"
)

// Ledger is the in-memory account model, persisted as a single JSON file.
type Ledger struct {
	Accounts map[string]Account `json:"accounts"`
}

// NewLedger creates a new, empty ledger.
func NewLedger() *Ledger {
	return &Ledger{Accounts: make(map[string]Account)}
}

// Get returns the account for an identity, or ErrUnknownIdentity.
func (l *Ledger) Get(identity string) (Account, error) {
	acct, ok := l.Accounts[identity]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
	}
	return acct.clone(), nil
}

// Insert registers a new identity with its initial commitment. The nonce
// starts at zero. Fails with ErrAlreadyRegistered if the identity exists;
// the stored account is untouched in that case.
func (l *Ledger) Insert(identity string, cm []byte, metadata map[string]string) (Account, error) {
	if _, ok := l.Accounts[identity]; ok {
		return Account{}, fmt.Errorf("%w: %q", ErrAlreadyRegistered, identity)
	}
	acct := Account{
		Identity:         identity,
		SecretCommitment: append([]byte(nil), cm...),
		Nonce:            0,
	}
	if len(metadata) > 0 {
		acct.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			acct.Metadata[k] = v
		}
	}
	l.Accounts[identity] = acct
	return acct.clone(), nil
}

// Update replaces the stored account value wholesale. The identity must
// already be registered.
func (l *Ledger) Update(acct Account) (Account, error) {
	if _, ok := l.Accounts[acct.Identity]; !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownIdentity, acct.Identity)
	}
	l.Accounts[acct.Identity] = acct.clone()
	return acct, nil
}

// Info is the read-only account view surfaced to the indexing layer. No
// secret material leaves the ledger: only commitment presence and nonce.
func (l *Ledger) Info(identity string) (registered bool, nonce uint64) {
	acct, ok := l.Accounts[identity]
	if !ok {
		return false, 0
	}
	return len(acct.SecretCommitment) > 0, acct.Nonce
}

// Clone deep-copies the ledger, for handing a snapshot to the proving path.
func (l *Ledger) Clone() *Ledger {
	out := NewLedger()
	for id, acct := range l.Accounts {
		out.Accounts[id] = acct.clone()
	}
	return out
}

// SaveToFile saves the ledger to a JSON file, overwriting any existing one.
func (l *Ledger) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// LoadLedgerFromFile loads a ledger checkpoint from a JSON file.
func LoadLedgerFromFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var l Ledger
	dec := json.NewDecoder(f)
	if err := dec.Decode(&l); err != nil {
		return nil, err
	}
	if l.Accounts == nil {
		l.Accounts = make(map[string]Account)
	}
	return &l, nil
}
