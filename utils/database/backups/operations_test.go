package backups

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"admin-bot/model"
	"admin-bot/utils/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "g", "u"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing backup: got %v", err)
	}

	b := &model.MemberBackup{GuildID: "g", UserID: "u", Roles: model.RoleList{"a", "b"}, Mute: true,
		Nick: sql.NullString{String: "nick", Valid: true}}
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, "g", "u")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Roles) != 2 || got.Nick.String != "nick" || !got.Mute || got.Deaf {
		t.Fatalf("unexpected backup: %+v", got)
	}

	b.Roles = model.RoleList{"c"}
	b.Nick = sql.NullString{}
	b.Mute = false
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = s.Get(ctx, "g", "u")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "c" || got.Nick.Valid || got.Mute {
		t.Fatalf("backup not replaced: %+v", got)
	}
}

func TestRemoveRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RemoveRole(ctx, "g", "nobody", "muted"); err != nil {
		t.Fatalf("missing backup should be ignored: %v", err)
	}

	if err := s.Save(ctx, &model.MemberBackup{GuildID: "g", UserID: "u", Roles: model.RoleList{"a", "muted"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.RemoveRole(ctx, "g", "u", "muted"); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	got, err := s.Get(ctx, "g", "u")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "a" {
		t.Fatalf("roles = %v", got.Roles)
	}
}
