package memory

import (
	"context"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/ports"
	"finanzas/internal/storage/storetest"

	"github.com/shopspring/decimal"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return New() })
}

func TestGetReturnsCopies(t *testing.T) {
	s := New()
	limit := decimal.NewFromInt(100)
	a, err := s.CreateAccount(context.Background(), core.Account{OwnerID: "u1", Name: "Visa", Kind: core.Credit, CreditLimit: &limit})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := s.GetAccount(context.Background(), a.ID)
	*got.CreditLimit = decimal.NewFromInt(1)

	again, _ := s.GetAccount(context.Background(), a.ID)
	if !again.CreditLimit.Equal(limit) {
		t.Fatalf("stored credit limit was mutated through a returned value")
	}
}
