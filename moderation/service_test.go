package moderation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"admin-bot/model"
	"admin-bot/utils"
	"admin-bot/utils/database"
	"admin-bot/utils/database/backups"
	"admin-bot/utils/database/infractions"
	"admin-bot/utils/guildtest"

	"go.uber.org/zap/zaptest"
)

type logged struct {
	guildID string
	action  utils.Action
	entry   utils.Entry
}

type fakeModLog struct {
	mu        sync.Mutex
	entries   []logged
	debounces []utils.Action
}

func (f *fakeModLog) Log(_ context.Context, guildID string, action utils.Action, entry utils.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, logged{guildID, action, entry})
}

func (f *fakeModLog) CreateDebounce(_, _ string, action utils.Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debounces = append(f.debounces, action)
}

func (f *fakeModLog) ConsumeDebounce(_, _ string, action utils.Action) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.debounces {
		if a == action {
			f.debounces = append(f.debounces[:i], f.debounces[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns how many entries of the given actions were logged for userID.
func (f *fakeModLog) Count(userID string, actions ...utils.Action) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.entry.UserID != userID {
			continue
		}
		for _, a := range actions {
			if e.action == a {
				n++
			}
		}
	}
	return n
}

type fakeRescheduler struct {
	mu    sync.Mutex
	times []time.Time
}

func (f *fakeRescheduler) Reschedule(t time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.times = append(f.times, t)
	return true
}

type fixture struct {
	svc       *Service
	store     *infractions.Store
	backups   *backups.Store
	api       *guildtest.API
	guard     *utils.OpGuard
	modlog    *fakeModLog
	scheduler *fakeRescheduler
	members   *utils.KeyedMutex[string]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		store:     infractions.NewStore(db),
		backups:   backups.NewStore(db),
		api:       guildtest.New(),
		guard:     utils.NewOpGuard(),
		modlog:    &fakeModLog{},
		scheduler: &fakeRescheduler{},
		members:   utils.NewKeyedMutex[string](),
	}
	f.svc = New(Deps{
		Store:     f.store,
		Backups:   f.backups,
		API:       f.api,
		Guard:     f.guard,
		ModLog:    f.modlog,
		Scheduler: f.scheduler,
		Members:   f.members,
		Logger:    zaptest.NewLogger(t),
	})
	return f
}

func (f *fixture) active(t *testing.T, id int64) bool {
	t.Helper()
	inf, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}
	return inf.Active
}

var testGuild = model.GuildConfig{
	ConfirmActions: true,
	MuteRole:       "muted",
	TempMuteRole:   "tempmuted",
}

func target(userID string) Target {
	return Target{GuildID: "g", UserID: userID, ActorID: "mod", Reason: "testing"}
}
