package memory

import (
	"context"
	"testing"

	"finanzas/internal/sheets"

	"github.com/shopspring/decimal"
)

func TestUpsertKeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	s := New()

	applied, err := s.Upsert(ctx, sheets.Row{ID: "a", Description: "v2", Amount: decimal.NewFromInt(2), Version: 2})
	if err != nil || !applied {
		t.Fatalf("first upsert: applied=%v err=%v", applied, err)
	}
	if applied, _ := s.Upsert(ctx, sheets.Row{ID: "a", Description: "v1", Version: 1}); applied {
		t.Fatal("older version must be ignored")
	}
	if applied, _ := s.Upsert(ctx, sheets.Row{ID: "a", Description: "v2 again", Version: 2}); applied {
		t.Fatal("same version must be ignored")
	}
	if applied, _ := s.Upsert(ctx, sheets.Row{ID: "a", Description: "v3", Version: 3}); !applied {
		t.Fatal("newer version must be written")
	}

	rows, _ := s.Rows(ctx)
	if len(rows) != 1 || rows[0].Description != "v3" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestDeletePreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, id := range []string{"a", "b", "c"} {
		s.Upsert(ctx, sheets.Row{ID: id, Version: int64(i + 1)})
	}
	if applied, err := s.Delete(ctx, "b", 10); err != nil || !applied {
		t.Fatalf("delete: applied=%v err=%v", applied, err)
	}
	if _, err := s.Delete(ctx, "missing", 10); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	rows, _ := s.Rows(ctx)
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "c" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestTombstoneRefusesLateWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Upsert(ctx, sheets.Row{ID: "a", Version: 1})

	if applied, _ := s.Delete(ctx, "a", 5); !applied {
		t.Fatal("delete should apply")
	}
	// A requeued update from before the delete arrives late.
	if applied, _ := s.Upsert(ctx, sheets.Row{ID: "a", Description: "stale", Version: 3}); applied {
		t.Fatal("write older than the tombstone must be refused")
	}
	if applied, _ := s.Delete(ctx, "a", 5); applied {
		t.Fatal("redelivered delete should be a no-op")
	}
	rows, _ := s.Rows(ctx)
	if len(rows) != 0 {
		t.Fatalf("deleted row came back: %+v", rows)
	}

	// Deleting an id that was never mirrored still guards it.
	s.Delete(ctx, "b", 7)
	if applied, _ := s.Upsert(ctx, sheets.Row{ID: "b", Version: 6}); applied {
		t.Fatal("create delivered after its delete must be refused")
	}
}

func TestDeleteKeepsNewerRow(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Upsert(ctx, sheets.Row{ID: "a", Version: 9})
	if applied, _ := s.Delete(ctx, "a", 4); applied {
		t.Fatal("delete older than the row must not apply")
	}
	if rows, _ := s.Rows(ctx); len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
}
