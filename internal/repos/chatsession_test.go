package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/pagechat-org/pagechat-backend/internal/types"
)

func TestCompilePatch(t *testing.T) {
	page := "/pricing"

	t.Run("page only", func(t *testing.T) {
		cols := compilePatch(types.SessionPatch{CurrentPage: &page})
		if len(cols) != 1 {
			t.Fatalf("compilePatch touched %d columns, want 1: %v", len(cols), cols)
		}
		if got, ok := cols["current_page"]; !ok || got != page {
			t.Errorf("current_page = %v, want %q", got, page)
		}
	})

	t.Run("metadata only", func(t *testing.T) {
		cols := compilePatch(types.SessionPatch{Metadata: datatypes.JSONMap{"a": 1}})
		if len(cols) != 1 {
			t.Fatalf("compilePatch touched %d columns, want 1: %v", len(cols), cols)
		}
		expr, ok := cols["metadata"].(clause.Expr)
		if !ok {
			t.Fatalf("metadata column is %T, want clause.Expr", cols["metadata"])
		}
		if expr.SQL != "metadata || ?::jsonb" {
			t.Errorf("metadata expr SQL = %q, want jsonb concatenation", expr.SQL)
		}
	})

	t.Run("both fields", func(t *testing.T) {
		cols := compilePatch(types.SessionPatch{CurrentPage: &page, Metadata: datatypes.JSONMap{"a": 1}})
		if len(cols) != 2 {
			t.Fatalf("compilePatch touched %d columns, want 2: %v", len(cols), cols)
		}
	})

	t.Run("empty metadata map still merges", func(t *testing.T) {
		cols := compilePatch(types.SessionPatch{Metadata: datatypes.JSONMap{}})
		if len(cols) != 1 {
			t.Fatalf("compilePatch touched %d columns, want 1: %v", len(cols), cols)
		}
		if _, ok := cols["metadata"].(clause.Expr); !ok {
			t.Fatalf("metadata column is %T, want clause.Expr", cols["metadata"])
		}
	})

	t.Run("empty patch", func(t *testing.T) {
		if cols := compilePatch(types.SessionPatch{}); len(cols) != 0 {
			t.Fatalf("compilePatch touched %d columns, want 0: %v", len(cols), cols)
		}
	})
}

func TestSessionRoundTrip(t *testing.T) {
	gdb, log := setupTestDB(t)
	repo := NewChatSessionRepo(gdb, log)
	ctx := context.Background()

	ua := "Mozilla/5.0 (integration)"
	page := "https://example.com/docs/setup"
	created, err := repo.Create(ctx, nil, &types.ChatSession{UserAgent: &ua, CurrentPage: &page})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	cleanupSession(t, gdb, created.SessionID)
	if created.SessionID == uuid.Nil {
		t.Fatal("Create left SessionID unset")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create did not read the database-stamped timestamps back")
	}

	got, err := repo.GetByID(ctx, nil, created.SessionID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for a session just created")
	}
	if got.UserAgent == nil || *got.UserAgent != ua {
		t.Errorf("UserAgent = %v, want %q", got.UserAgent, ua)
	}
	if got.CurrentPage == nil || *got.CurrentPage != page {
		t.Errorf("CurrentPage = %v, want %q", got.CurrentPage, page)
	}
	if got.Metadata == nil {
		t.Error("Metadata is nil, want empty map")
	}
	if len(got.Metadata) != 0 {
		t.Errorf("Metadata = %v, want empty", got.Metadata)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on created session")
	}
	if !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("fresh session has CreatedAt %v but UpdatedAt %v; both columns default to the same NOW()", got.CreatedAt, got.UpdatedAt)
	}
}

func TestSessionGetAbsent(t *testing.T) {
	gdb, log := setupTestDB(t)
	repo := NewChatSessionRepo(gdb, log)

	got, err := repo.GetByID(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("GetByID returned error for absent row: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID = %+v for absent row, want nil", got)
	}
}

func TestSessionUpdate(t *testing.T) {
	gdb, log := setupTestDB(t)
	repo := NewChatSessionRepo(gdb, log)
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &types.ChatSession{})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	cleanupSession(t, gdb, created.SessionID)

	t.Run("metadata merges across updates", func(t *testing.T) {
		ok, err := repo.Update(ctx, nil, created.SessionID, types.SessionPatch{Metadata: datatypes.JSONMap{"a": 1}})
		if err != nil {
			t.Fatalf("first Update returned error: %v", err)
		}
		if !ok {
			t.Fatal("first Update matched no row")
		}
		ok, err = repo.Update(ctx, nil, created.SessionID, types.SessionPatch{Metadata: datatypes.JSONMap{"b": 2}})
		if err != nil {
			t.Fatalf("second Update returned error: %v", err)
		}
		if !ok {
			t.Fatal("second Update matched no row")
		}

		got, err := repo.GetByID(ctx, nil, created.SessionID)
		if err != nil {
			t.Fatalf("GetByID returned error: %v", err)
		}
		if got.Metadata["a"] != float64(1) || got.Metadata["b"] != float64(2) {
			t.Errorf("Metadata = %v, want both a and b present", got.Metadata)
		}
	})

	t.Run("later metadata values win", func(t *testing.T) {
		if _, err := repo.Update(ctx, nil, created.SessionID, types.SessionPatch{Metadata: datatypes.JSONMap{"a": 9}}); err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		got, err := repo.GetByID(ctx, nil, created.SessionID)
		if err != nil {
			t.Fatalf("GetByID returned error: %v", err)
		}
		if got.Metadata["a"] != float64(9) {
			t.Errorf("Metadata[a] = %v, want 9", got.Metadata["a"])
		}
		if got.Metadata["b"] != float64(2) {
			t.Errorf("Metadata[b] = %v, want 2 to survive the merge", got.Metadata["b"])
		}
	})

	t.Run("current page only", func(t *testing.T) {
		page := "https://example.com/pricing"
		ok, err := repo.Update(ctx, nil, created.SessionID, types.SessionPatch{CurrentPage: &page})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if !ok {
			t.Fatal("Update matched no row")
		}
		got, err := repo.GetByID(ctx, nil, created.SessionID)
		if err != nil {
			t.Fatalf("GetByID returned error: %v", err)
		}
		if got.CurrentPage == nil || *got.CurrentPage != page {
			t.Errorf("CurrentPage = %v, want %q", got.CurrentPage, page)
		}
		if got.Metadata["a"] != float64(9) {
			t.Errorf("Metadata[a] = %v; a page-only patch must not touch metadata", got.Metadata["a"])
		}
	})

	t.Run("empty metadata map still matches the row", func(t *testing.T) {
		ok, err := repo.Update(ctx, nil, created.SessionID, types.SessionPatch{Metadata: datatypes.JSONMap{}})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if !ok {
			t.Fatal("empty-map patch reported no matched row, want true")
		}
		got, err := repo.GetByID(ctx, nil, created.SessionID)
		if err != nil {
			t.Fatalf("GetByID returned error: %v", err)
		}
		if got.Metadata["a"] != float64(9) || got.Metadata["b"] != float64(2) {
			t.Errorf("Metadata = %v, want contents unchanged by the empty merge", got.Metadata)
		}
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		ok, err := repo.Update(ctx, nil, created.SessionID, types.SessionPatch{})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if ok {
			t.Fatal("empty patch reported a matched row, want false")
		}
	})

	t.Run("absent session reports false", func(t *testing.T) {
		page := "/nowhere"
		ok, err := repo.Update(ctx, nil, uuid.New(), types.SessionPatch{CurrentPage: &page})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if ok {
			t.Fatal("Update against an absent session reported true")
		}
	})
}

func TestSessionTouch(t *testing.T) {
	gdb, log := setupTestDB(t)
	repo := NewChatSessionRepo(gdb, log)
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &types.ChatSession{})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	cleanupSession(t, gdb, created.SessionID)

	before, err := repo.GetByID(ctx, nil, created.SessionID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := repo.Touch(ctx, nil, created.SessionID); err != nil {
		t.Fatalf("Touch returned error: %v", err)
	}
	after, err := repo.GetByID(ctx, nil, created.SessionID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}
