package identity

import (
	"errors"

	"walletd/commitment"
)

// FailureKind classifies a failed transition. The numeric codes cross the
// wire in receipts and appear as public inputs of the proving circuit, so
// they are part of the contract's observable surface and must not be
// renumbered.
type FailureKind uint8

const (
	FailureNone FailureKind = iota
	FailureUnknownIdentity
	FailureAlreadyRegistered
	FailureNonceMismatch
	FailureAuthentication
	FailureUnsupportedAction
	FailureAction
	FailureOversizedInput
	FailureSerialization
)

// String returns the stable name of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureUnknownIdentity:
		return "unknown_identity"
	case FailureAlreadyRegistered:
		return "already_registered"
	case FailureNonceMismatch:
		return "nonce_mismatch"
	case FailureAuthentication:
		return "authentication_failed"
	case FailureUnsupportedAction:
		return "unsupported_action"
	case FailureAction:
		return "action_failed"
	case FailureOversizedInput:
		return "oversized_input"
	case FailureSerialization:
		return "serialization_failed"
	default:
		return "unknown"
	}
}

// Sentinel errors for every failure classification. Callers match with
// errors.Is; the state machine converts them into receipt failure kinds and
// never lets one escape as a process abort.
var (
	ErrUnknownIdentity   = errors.New("identity: unknown identity")
	ErrAlreadyRegistered = errors.New("identity: identity already registered")
	ErrNonceMismatch     = errors.New("identity: declared nonce does not match account nonce")
	ErrAuthentication    = errors.New("identity: secret proof does not match stored commitment")
	ErrUnsupportedAction = errors.New("identity: unsupported action kind")
	ErrAction            = errors.New("identity: action rejected")
	ErrOversizedInput    = commitment.ErrOversizedInput
	ErrSerialization     = errors.New("identity: malformed wire input")
)

// FailureOf maps an error to its failure kind. Unrecognized errors classify
// as action failures: they can only originate inside the interpreter.
func FailureOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrUnknownIdentity):
		return FailureUnknownIdentity
	case errors.Is(err, ErrAlreadyRegistered):
		return FailureAlreadyRegistered
	case errors.Is(err, ErrNonceMismatch):
		return FailureNonceMismatch
	case errors.Is(err, ErrAuthentication):
		return FailureAuthentication
	case errors.Is(err, ErrUnsupportedAction):
		return FailureUnsupportedAction
	case errors.Is(err, ErrOversizedInput):
		return FailureOversizedInput
	case errors.Is(err, ErrSerialization):
		return FailureSerialization
	default:
		return FailureAction
	}
}
