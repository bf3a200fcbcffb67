package services

import (
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// FundsPolicy selects the account kinds on which an expense may not exceed
// the available balance.
type FundsPolicy struct {
	Debit  bool
	Credit bool
	Cash   bool
}

// DefaultFundsPolicy checks debit accounts only.
func DefaultFundsPolicy() FundsPolicy {
	return FundsPolicy{Debit: true}
}

// ParseFundsPolicy reads a comma separated list of kinds such as
// "debit,cash". "none" and the empty string disable every check.
func ParseFundsPolicy(s string) (FundsPolicy, error) {
	var p FundsPolicy
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "", "none":
		case string(core.Debit):
			p.Debit = true
		case string(core.Credit):
			p.Credit = true
		case string(core.Cash):
			p.Cash = true
		default:
			return FundsPolicy{}, fmt.Errorf("unknown account kind %q in funds policy", part)
		}
	}
	return p, nil
}

// Checks reports whether expenses on kind are balance-checked.
func (p FundsPolicy) Checks(kind core.AccountKind) bool {
	switch kind {
	case core.Debit:
		return p.Debit
	case core.Credit:
		return p.Credit
	case core.Cash:
		return p.Cash
	}
	return false
}

func (p FundsPolicy) String() string {
	var kinds []string
	if p.Debit {
		kinds = append(kinds, string(core.Debit))
	}
	if p.Credit {
		kinds = append(kinds, string(core.Credit))
	}
	if p.Cash {
		kinds = append(kinds, string(core.Cash))
	}
	if len(kinds) == 0 {
		return "none"
	}
	return strings.Join(kinds, ",")
}
