package infractions

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

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

func tempMute(guildID, userID string, expires time.Time) *model.Infraction {
	inf := &model.Infraction{
		GuildID:  guildID,
		UserID:   userID,
		Type:     model.InfractionTempMute,
		Metadata: model.Metadata{model.MetadataRole: "muted"},
	}
	inf.SetExpiry(expires)
	return inf
}

func TestCreate_ValidatesExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	undated := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionTempBan}
	if err := s.Create(ctx, undated); !errors.Is(err, ErrInvalidInfraction) {
		t.Fatalf("tempban without expiry: got %v", err)
	}

	warn := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionWarn}
	warn.SetExpiry(time.Now())
	if err := s.Create(ctx, warn); !errors.Is(err, ErrInvalidInfraction) {
		t.Fatalf("warn with expiry: got %v", err)
	}

	bogus := &model.Infraction{GuildID: "g", UserID: "u", Type: "nope"}
	if err := s.Create(ctx, bogus); !errors.Is(err, ErrInvalidInfraction) {
		t.Fatalf("unknown type: got %v", err)
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	inf := tempMute("g", "u", expires)
	inf.ActorID = sql.NullString{String: "mod", Valid: true}
	inf.Reason = sql.NullString{String: "spam", Valid: true}
	if err := s.Create(ctx, inf); err != nil {
		t.Fatalf("create: %v", err)
	}
	if inf.ID == 0 || inf.CreatedAt == 0 || !inf.Active {
		t.Fatalf("create did not fill fields: %+v", inf)
	}

	got, err := s.Get(ctx, inf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MuteRole() != "muted" || got.Reason.String != "spam" || !got.Active {
		t.Fatalf("unexpected record: %+v", got)
	}
	if e, ok := got.Expiry(); !ok || !e.Equal(expires) {
		t.Fatalf("expiry = %v, want %v", e, expires)
	}

	kick := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionKick}
	if err := s.Create(ctx, kick); err != nil {
		t.Fatalf("create kick: %v", err)
	}
	if kick.Active {
		t.Fatalf("kick should be recorded closed")
	}

	if _, err := s.Get(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: got %v", err)
	}
}

func TestFindEarliestActiveDated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.FindEarliestActiveDated(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty store: got %v, %v", got, err)
	}

	now := time.Now()
	later := tempMute("g", "a", now.Add(2*time.Hour))
	sooner := tempMute("g", "b", now.Add(time.Hour))
	for _, inf := range []*model.Infraction{later, sooner} {
		if err := s.Create(ctx, inf); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	// Undated active records never influence the schedule.
	if err := s.Create(ctx, &model.Infraction{GuildID: "g", UserID: "c", Type: model.InfractionBan}); err != nil {
		t.Fatalf("create ban: %v", err)
	}

	got, err = s.FindEarliestActiveDated(ctx)
	if err != nil {
		t.Fatalf("find earliest: %v", err)
	}
	if got == nil || got.ID != sooner.ID {
		t.Fatalf("earliest = %+v, want id %d", got, sooner.ID)
	}

	if _, err := s.CompareAndClose(ctx, sooner.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err = s.FindEarliestActiveDated(ctx)
	if err != nil || got == nil || got.ID != later.ID {
		t.Fatalf("after close earliest = %+v, %v; want id %d", got, err, later.ID)
	}
}

func TestFindEarliestActiveDatedAfter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	due := tempMute("g", "a", now.Add(-time.Minute))
	next := tempMute("g", "b", now.Add(time.Minute))
	for _, inf := range []*model.Infraction{due, next} {
		if err := s.Create(ctx, inf); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.FindEarliestActiveDatedAfter(ctx, now)
	if err != nil || got == nil || got.ID != next.ID {
		t.Fatalf("next after now = %+v, %v; want id %d", got, err, next.ID)
	}
	got, err = s.FindEarliestActiveDatedAfter(ctx, now.Add(time.Hour))
	if err != nil || got != nil {
		t.Fatalf("nothing after an hour: %+v, %v", got, err)
	}
}

func TestFindAllDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	past := tempMute("g", "a", now.Add(-time.Minute))
	exact := tempMute("g", "b", now)
	future := tempMute("g", "c", now.Add(time.Minute))
	for _, inf := range []*model.Infraction{past, exact, future} {
		if err := s.Create(ctx, inf); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	due, err := s.FindAllDue(ctx, now)
	if err != nil {
		t.Fatalf("find due: %v", err)
	}
	if len(due) != 2 || due[0].ID != past.ID || due[1].ID != exact.ID {
		t.Fatalf("due = %+v", due)
	}
}

func TestCompareAndClose_SingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inf := tempMute("g", "u", time.Now())
	if err := s.Create(ctx, inf); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			closed, err := s.CompareAndClose(ctx, inf.ID)
			if err != nil {
				t.Errorf("close: %v", err)
				return
			}
			if closed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
	got, err := s.Get(ctx, inf.ID)
	if err != nil || got.Active {
		t.Fatalf("record should be closed: %+v, %v", got, err)
	}
}

func TestCloseActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mute := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionMute}
	temp := tempMute("g", "u", time.Now().Add(time.Hour))
	ban := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionBan}
	other := tempMute("g", "v", time.Now().Add(time.Hour))
	for _, inf := range []*model.Infraction{mute, temp, ban, other} {
		if err := s.Create(ctx, inf); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := s.CloseActive(ctx, "g", "u", model.InfractionMute, model.InfractionTempMute)
	if err != nil {
		t.Fatalf("close active: %v", err)
	}
	if n != 2 {
		t.Fatalf("closed %d, want 2", n)
	}
	if got, _ := s.Get(ctx, ban.ID); !got.Active {
		t.Fatalf("ban must stay active")
	}
	if got, _ := s.Get(ctx, other.ID); !got.Active {
		t.Fatalf("other member's mute must stay active")
	}

	n, err = s.CloseActive(ctx, "g", "u", model.InfractionMute, model.InfractionTempMute)
	if err != nil || n != 0 {
		t.Fatalf("second close: %d, %v", n, err)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.Infraction{GuildID: "g", UserID: "111", Type: model.InfractionWarn,
		Reason: sql.NullString{String: "spamming links", Valid: true}}
	second := &model.Infraction{GuildID: "g", UserID: "222", Type: model.InfractionKick,
		ActorID: sql.NullString{String: "111", Valid: true},
		Reason:  sql.NullString{String: "rude", Valid: true}}
	elsewhere := &model.Infraction{GuildID: "h", UserID: "111", Type: model.InfractionWarn}
	for _, inf := range []*model.Infraction{first, second, elsewhere} {
		if err := s.Create(ctx, inf); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	byUser, err := s.Search(ctx, "g", "111", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byUser) != 2 || byUser[0].ID != second.ID {
		t.Fatalf("search by id = %+v", byUser)
	}

	byReason, err := s.Search(ctx, "g", "links", 10)
	if err != nil || len(byReason) != 1 || byReason[0].ID != first.ID {
		t.Fatalf("search by reason = %+v, %v", byReason, err)
	}

	all, err := s.Search(ctx, "g", "", 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("search all = %+v, %v", all, err)
	}
}

func TestUpdateReason(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owned := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionWarn,
		ActorID: sql.NullString{String: "mod1", Valid: true}}
	system := &model.Infraction{GuildID: "g", UserID: "u", Type: model.InfractionWarn}
	for _, inf := range []*model.Infraction{owned, system} {
		if err := s.Create(ctx, inf); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := s.UpdateReason(ctx, "g", owned.ID, "mod2", "x"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign edit: got %v", err)
	}
	if err := s.UpdateReason(ctx, "h", owned.ID, "mod1", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-guild edit: got %v", err)
	}
	if err := s.UpdateReason(ctx, "g", owned.ID, "mod1", "updated"); err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	got, _ := s.Get(ctx, owned.ID)
	if got.Reason.String != "updated" {
		t.Fatalf("reason = %q", got.Reason.String)
	}

	if err := s.UpdateReason(ctx, "g", system.ID, "mod2", "claimed"); err != nil {
		t.Fatalf("claim edit: %v", err)
	}
	got, _ = s.Get(ctx, system.ID)
	if got.ActorID.String != "mod2" || got.Reason.String != "claimed" {
		t.Fatalf("claimed record = %+v", got)
	}
}
