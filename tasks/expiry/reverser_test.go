package expiry

import (
	"context"
	"errors"
	"slices"
	"testing"

	"admin-bot/model"
	"admin-bot/utils/guildtest"

	"go.uber.org/zap/zaptest"
)

type strippedRole struct{ guildID, userID, roleID string }

type recordingStripper struct{ removed []strippedRole }

func (r *recordingStripper) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	r.removed = append(r.removed, strippedRole{guildID, userID, roleID})
	return nil
}

func TestReverse_TempBanIsIdempotent(t *testing.T) {
	api := guildtest.New()
	api.AddBan("g", "u")
	r := NewReverser(api, nil, nil, zaptest.NewLogger(t))
	inf := &model.Infraction{ID: 1, GuildID: "g", UserID: "u", Type: model.InfractionTempBan}

	for i := 0; i < 2; i++ {
		if err := r.Reverse(context.Background(), inf); err != nil {
			t.Fatalf("reverse #%d: %v", i+1, err)
		}
	}
	if api.Banned("g", "u") {
		t.Fatalf("user still banned")
	}
	if n := api.CallCount("RemoveBan"); n != 1 {
		t.Fatalf("RemoveBan succeeded %d times, want 1", n)
	}
}

func TestReverse_TempMuteIsIdempotent(t *testing.T) {
	api := guildtest.New()
	api.AddMember("g", "u", "member", "muted")
	r := NewReverser(api, nil, nil, zaptest.NewLogger(t))
	inf := &model.Infraction{ID: 1, GuildID: "g", UserID: "u", Type: model.InfractionTempMute,
		Metadata: model.Metadata{model.MetadataRole: "muted"}}

	for i := 0; i < 2; i++ {
		if err := r.Reverse(context.Background(), inf); err != nil {
			t.Fatalf("reverse #%d: %v", i+1, err)
		}
	}
	if roles := api.Member("g", "u").Roles; !slices.Equal(roles, []string{"member"}) {
		t.Fatalf("roles = %v", roles)
	}
	if n := api.CallCount("RemoveRole"); n != 1 {
		t.Fatalf("RemoveRole called %d times, want 1", n)
	}
}

func TestReverse_TempMuteMemberGone(t *testing.T) {
	api := guildtest.New()
	stripper := &recordingStripper{}
	r := NewReverser(api, stripper, nil, zaptest.NewLogger(t))
	inf := &model.Infraction{ID: 1, GuildID: "g", UserID: "u", Type: model.InfractionTempMute,
		Metadata: model.Metadata{model.MetadataRole: "muted"}}

	if err := r.Reverse(context.Background(), inf); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("unexpected calls: %v", api.Calls())
	}
	want := []strippedRole{{"g", "u", "muted"}}
	if !slices.Equal(stripper.removed, want) {
		t.Fatalf("stripped = %v, want %v", stripper.removed, want)
	}
}

func TestReverse_TransientErrorPropagates(t *testing.T) {
	api := guildtest.New()
	api.AddBan("g", "u")
	api.Fail("RemoveBan", context.DeadlineExceeded)
	r := NewReverser(api, nil, nil, zaptest.NewLogger(t))

	err := r.Reverse(context.Background(), &model.Infraction{ID: 1, GuildID: "g", UserID: "u", Type: model.InfractionTempBan})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestReverse_LogicErrors(t *testing.T) {
	r := NewReverser(guildtest.New(), nil, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	if err := r.Reverse(ctx, &model.Infraction{ID: 1, Type: model.InfractionWarn}); !errors.Is(err, ErrNotDated) {
		t.Fatalf("warn: got %v", err)
	}
	if err := r.Reverse(ctx, &model.Infraction{ID: 2, Type: model.InfractionTempMute}); !errors.Is(err, ErrNoMuteRole) {
		t.Fatalf("tempmute without role: got %v", err)
	}
}
