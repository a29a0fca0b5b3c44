// action.go - Blob action interpreter.
//
// The interpreter is pure: given the same account and action it always
// produces the same result, with no dependence on wall-clock time,
// randomness, or I/O. That purity is what lets the proving path replay it.

package identity

import "fmt"

// Bounds on metadata written through ActionSetMeta. Oversized writes are
// interpreter failures, not truncations.
const (
	MaxMetaKeyLen   = 64
	MaxMetaValueLen = 256
	MaxMetaEntries  = 32
)

// validMetadata checks registration metadata against the same bounds the
// set_meta action enforces, so a fresh account cannot start out larger than
// any sequence of actions could have grown it.
func validMetadata(md map[string]string) bool {
	if len(md) > MaxMetaEntries {
		return false
	}
	for k, v := range md {
		if k == "" || len(k) > MaxMetaKeyLen || len(v) > MaxMetaValueLen {
			return false
		}
	}
	return true
}

// applyAction interprets one action against an account and returns the new
// account state plus an effect output. Unknown kinds fail with
// ErrUnsupportedAction rather than being silently ignored.
func applyAction(acct Account, action *Action) (Account, string, error) {
	if action == nil {
		return Account{}, "", fmt.Errorf("%w: missing action", ErrUnsupportedAction)
	}
	if acct.Deactivated {
		return Account{}, "", fmt.Errorf("%w: identity is deactivated", ErrAction)
	}

	switch action.Kind {
	case ActionPing:
		return acct, "pong", nil

	case ActionSetMeta:
		if action.Key == "" || len(action.Key) > MaxMetaKeyLen {
			return Account{}, "", fmt.Errorf("%w: metadata key length %d out of range", ErrAction, len(action.Key))
		}
		if len(action.Value) > MaxMetaValueLen {
			return Account{}, "", fmt.Errorf("%w: metadata value length %d out of range", ErrAction, len(action.Value))
		}
		next := acct.clone()
		if next.Metadata == nil {
			next.Metadata = make(map[string]string, 1)
		}
		if _, exists := next.Metadata[action.Key]; !exists && len(next.Metadata) >= MaxMetaEntries {
			return Account{}, "", fmt.Errorf("%w: metadata entry budget exhausted", ErrAction)
		}
		next.Metadata[action.Key] = action.Value
		return next, "meta:" + action.Key, nil

	case ActionDeactivate:
		// Deactivation is a state flag, never a removal: the account and
		// its nonce history survive for replay-safety.
		next := acct.clone()
		next.Deactivated = true
		return next, "deactivated", nil

	default:
		return Account{}, "", fmt.Errorf("%w: kind %d", ErrUnsupportedAction, action.Kind)
	}
}
