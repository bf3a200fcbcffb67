package backend

import (
	"context"
	"path/filepath"
	"testing"

	"finanzas/internal/config"
	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config must fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("unknown backend must fail")
	}
	got, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresDSN: "postgres://x", AMQPQueue: "q"})
	if err != nil || got.Type != PostgresBackend || got.PostgresDSN != "postgres://x" || got.AMQPQueue != "q" {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite needs path", Config{Type: SQLiteBackend}, true},
		{"postgres needs dsn", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "finanzas.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			defer res.Cleanup()
			if res.Publisher != nil {
				t.Error("no publisher without AMQP_URL")
			}
			a, err := res.Store.CreateAccount(ctx, core.Account{OwnerID: "u1", Name: "Main", Kind: core.Debit, Balance: decimal.NewFromInt(5)})
			if err != nil {
				t.Fatalf("create account: %v", err)
			}
			if _, err := res.Store.GetAccount(ctx, a.ID); err != nil {
				t.Fatalf("get account: %v", err)
			}
		})
	}
}
