package identity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestApplyActionPing(t *testing.T) {
	acct := Account{Identity: "alice"}
	next, effect, err := applyAction(acct, &Action{Kind: ActionPing})
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if effect != "pong" {
		t.Fatalf("ping effect = %q, want pong", effect)
	}
	if next.Deactivated {
		t.Fatalf("ping mutated the account")
	}
}

func TestApplyActionSetMeta(t *testing.T) {
	acct := Account{Identity: "alice"}
	next, effect, err := applyAction(acct, &Action{Kind: ActionSetMeta, Key: "email", Value: "a@example.com"})
	if err != nil {
		t.Fatalf("set_meta failed: %v", err)
	}
	if effect != "meta:email" {
		t.Fatalf("set_meta effect = %q", effect)
	}
	if next.Metadata["email"] != "a@example.com" {
		t.Fatalf("metadata not written: %v", next.Metadata)
	}
	if acct.Metadata != nil {
		t.Fatalf("set_meta mutated the input account")
	}
}

func TestApplyActionSetMetaBounds(t *testing.T) {
	acct := Account{Identity: "alice"}
	cases := []struct {
		name   string
		action *Action
	}{
		{"empty key", &Action{Kind: ActionSetMeta, Key: "", Value: "v"}},
		{"long key", &Action{Kind: ActionSetMeta, Key: strings.Repeat("k", MaxMetaKeyLen+1), Value: "v"}},
		{"long value", &Action{Kind: ActionSetMeta, Key: "k", Value: strings.Repeat("v", MaxMetaValueLen+1)}},
	}
	for _, tc := range cases {
		if _, _, err := applyAction(acct, tc.action); !errors.Is(err, ErrAction) {
			t.Fatalf("%s: error = %v, want ErrAction", tc.name, err)
		}
	}
}

func TestApplyActionSetMetaEntryBudget(t *testing.T) {
	acct := Account{Identity: "alice", Metadata: make(map[string]string)}
	for i := 0; i < MaxMetaEntries; i++ {
		acct.Metadata[fmt.Sprintf("k%d", i)] = "v"
	}
	if _, _, err := applyAction(acct, &Action{Kind: ActionSetMeta, Key: "overflow", Value: "v"}); !errors.Is(err, ErrAction) {
		t.Fatalf("budget overflow error = %v, want ErrAction", err)
	}
	// Overwriting an existing key stays within budget.
	if _, _, err := applyAction(acct, &Action{Kind: ActionSetMeta, Key: "k0", Value: "new"}); err != nil {
		t.Fatalf("overwrite within budget failed: %v", err)
	}
}

func TestApplyActionDeactivate(t *testing.T) {
	acct := Account{Identity: "alice"}
	next, effect, err := applyAction(acct, &Action{Kind: ActionDeactivate})
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if effect != "deactivated" || !next.Deactivated {
		t.Fatalf("deactivate outcome = (%q, %v)", effect, next.Deactivated)
	}

	// A deactivated account refuses further actions, including ping.
	if _, _, err := applyAction(next, &Action{Kind: ActionPing}); !errors.Is(err, ErrAction) {
		t.Fatalf("action on deactivated account error = %v, want ErrAction", err)
	}
}

func TestApplyActionUnsupported(t *testing.T) {
	acct := Account{Identity: "alice"}
	if _, _, err := applyAction(acct, nil); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("nil action error = %v, want ErrUnsupportedAction", err)
	}
	if _, _, err := applyAction(acct, &Action{Kind: 99}); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("unknown kind error = %v, want ErrUnsupportedAction", err)
	}
}
