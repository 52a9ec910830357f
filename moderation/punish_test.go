package moderation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"admin-bot/model"
	"admin-bot/tasks/expiry"
	"admin-bot/utils"

	"go.uber.org/zap/zaptest"
)

func TestMuteAndUnmute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.AddMember("g", "u", "member")

	inf, err := f.svc.Mute(ctx, testGuild, target("u"))
	if err != nil {
		t.Fatalf("mute: %v", err)
	}
	if !slices.Contains(f.api.Member("g", "u").Roles, "muted") {
		t.Fatalf("mute role not applied")
	}
	if !f.active(t, inf.ID) || inf.MuteRole() != "muted" {
		t.Fatalf("unexpected infraction: %+v", inf)
	}
	if _, err := f.svc.Mute(ctx, testGuild, target("u")); !errors.Is(err, ErrAlreadyMuted) {
		t.Fatalf("second mute: got %v", err)
	}

	if err := f.svc.Unmute(ctx, testGuild, target("u")); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if slices.Contains(f.api.Member("g", "u").Roles, "muted") {
		t.Fatalf("mute role still held")
	}
	if f.active(t, inf.ID) {
		t.Fatalf("mute infraction still active")
	}
	if n := f.modlog.Count("u", utils.ActionUnmuted); n != 1 {
		t.Fatalf("unmuted entries = %d, want 1", n)
	}

	if err := f.svc.Unmute(ctx, testGuild, target("u")); !errors.Is(err, ErrNotMuted) {
		t.Fatalf("second unmute: got %v", err)
	}
}

func TestMute_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Mute(ctx, model.GuildConfig{}, target("u")); !errors.Is(err, ErrMuteNotSetup) {
		t.Fatalf("no mute role: got %v", err)
	}
	if _, err := f.svc.Mute(ctx, testGuild, target("ghost")); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("unknown member: got %v", err)
	}
	if err := f.svc.Unmute(ctx, model.GuildConfig{}, target("u")); !errors.Is(err, ErrMuteNotSetup) {
		t.Fatalf("unmute without mute role: got %v", err)
	}
}

func TestMute_RoleFailureClosesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.AddMember("g", "u")
	f.api.Fail("AddRole", fmt.Errorf("%w: missing permissions", utils.ErrForbidden))

	if _, err := f.svc.TempMute(ctx, testGuild, target("u"), time.Hour); !errors.Is(err, utils.ErrForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}
	records, err := f.store.Search(ctx, "g", "", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	for _, r := range records {
		if r.Active {
			t.Fatalf("infraction %d left active after the role could not be applied", r.ID)
		}
	}
	if len(f.scheduler.times) != 0 {
		t.Fatalf("abandoned mute was scheduled")
	}
}

func TestTempMute_SchedulesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.AddMember("g", "u")

	before := time.Now()
	inf, err := f.svc.TempMute(ctx, testGuild, target("u"), time.Hour)
	if err != nil {
		t.Fatalf("tempmute: %v", err)
	}
	if inf.MuteRole() != "tempmuted" {
		t.Fatalf("tempmute role = %q, want tempmuted", inf.MuteRole())
	}
	expires, ok := inf.Expiry()
	if !ok || expires.Before(before.Add(time.Hour).Add(-time.Millisecond)) || expires.After(time.Now().Add(time.Hour)) {
		t.Fatalf("expiry = %v, want now+1h", expires)
	}
	if len(f.scheduler.times) != 1 || !f.scheduler.times[0].Equal(expires) {
		t.Fatalf("rescheduled %v, want [%v]", f.scheduler.times, expires)
	}
	if _, err := f.svc.TempMute(ctx, testGuild, target("u"), 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero duration: got %v", err)
	}
}

// Manual unmutes racing the expiry of the same mute must produce exactly one
// role removal and one modlog entry per member.
func TestUnmuteRacesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	reverser := expiry.NewReverser(f.api, f.backups, f.members, logger)
	sched := expiry.NewScheduler(f.store, reverser, f.modlog, logger, expiry.Options{})
	f.svc.scheduler = sched
	sched.Start(ctx)
	defer sched.Stop()

	const members = 12
	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		userID := fmt.Sprintf("u%d", i)
		f.api.AddMember("g", userID)
		if _, err := f.svc.TempMute(ctx, testGuild, target(userID), 30*time.Millisecond); err != nil {
			t.Fatalf("tempmute %s: %v", userID, err)
		}
		wg.Add(1)
		go func(delay time.Duration) {
			defer wg.Done()
			time.Sleep(delay)
			err := f.svc.Unmute(ctx, testGuild, target(userID))
			if err != nil && !errors.Is(err, ErrNotMuted) {
				t.Errorf("unmute %s: %v", userID, err)
			}
		}(time.Duration(i*5) * time.Millisecond)
	}
	wg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, armed := sched.ArmedAt(); !armed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scheduler never went idle")
		}
		time.Sleep(10 * time.Millisecond)
	}
	sched.Stop()

	calls := f.api.Calls()
	for i := 0; i < members; i++ {
		userID := fmt.Sprintf("u%d", i)
		removals := 0
		for _, c := range calls {
			if c == "RemoveRole g "+userID+" tempmuted" {
				removals++
			}
		}
		if removals != 1 {
			t.Errorf("%s: %d role removals, want 1", userID, removals)
		}
		if n := f.modlog.Count(userID, utils.ActionUnmuted, utils.ActionExpired); n != 1 {
			t.Errorf("%s: %d modlog entries, want 1", userID, n)
		}
		if slices.Contains(f.api.Member("g", userID).Roles, "tempmuted") {
			t.Errorf("%s still muted", userID)
		}
	}
}

func TestBanAndUnban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Unban(ctx, target("u")); !errors.Is(err, ErrNotBanned) {
		t.Fatalf("unban of unbanned user: got %v", err)
	}
	if _, err := f.svc.Ban(ctx, target("u")); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("ban of non-member: got %v", err)
	}

	ban, err := f.svc.ForceBan(ctx, target("u"))
	if err != nil {
		t.Fatalf("forceban: %v", err)
	}
	if !f.api.Banned("g", "u") || !f.active(t, ban.ID) {
		t.Fatalf("forceban did not ban or record")
	}

	unban, err := f.svc.Unban(ctx, target("u"))
	if err != nil {
		t.Fatalf("unban: %v", err)
	}
	if f.api.Banned("g", "u") {
		t.Fatalf("user still banned")
	}
	if f.active(t, ban.ID) {
		t.Fatalf("ban infraction still active after unban")
	}
	if unban.Type != model.InfractionUnban || unban.Active {
		t.Fatalf("unexpected unban record: %+v", unban)
	}
	if n := f.modlog.Count("u", utils.ActionUnbanned); n != 1 {
		t.Fatalf("unbanned entries = %d, want 1", n)
	}
}

func TestTempBan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.AddMember("g", "u")

	inf, err := f.svc.TempBan(ctx, target("u"), 24*time.Hour)
	if err != nil {
		t.Fatalf("tempban: %v", err)
	}
	if !f.api.Banned("g", "u") || !f.active(t, inf.ID) {
		t.Fatalf("tempban did not ban or record")
	}
	if len(f.scheduler.times) != 1 {
		t.Fatalf("tempban not scheduled")
	}

	if err := f.svc.BanRemoved(ctx, "g", "u"); err != nil {
		t.Fatalf("ban removed: %v", err)
	}
	if f.active(t, inf.ID) {
		t.Fatalf("tempban still active after the ban was lifted")
	}
}

func TestSoftBanKickWarn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.AddMember("g", "a")
	f.api.AddMember("g", "b")
	f.api.AddMember("g", "c")

	soft, err := f.svc.SoftBan(ctx, target("a"))
	if err != nil {
		t.Fatalf("softban: %v", err)
	}
	if f.api.Banned("g", "a") || soft.Active {
		t.Fatalf("softban must leave no ban and a closed record")
	}
	if !slices.Contains(f.api.Calls(), fmt.Sprintf("Ban g a %d", softBanDeleteDays)) {
		t.Fatalf("softban did not delete messages: %v", f.api.Calls())
	}

	if _, err := f.svc.Kick(ctx, target("b")); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if f.api.Member("g", "b") != nil {
		t.Fatalf("member not kicked")
	}

	warn, err := f.svc.Warn(ctx, target("c"))
	if err != nil {
		t.Fatalf("warn: %v", err)
	}
	if warn.Active || warn.Reason.String != "testing" || warn.ActorID.String != "mod" {
		t.Fatalf("unexpected warn record: %+v", warn)
	}
	if n := f.modlog.Count("c", utils.ActionInfraction); n != 1 {
		t.Fatalf("infraction entries = %d, want 1", n)
	}
}
