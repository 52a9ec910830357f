package handlers

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"admin-bot/bot"
	"admin-bot/model"
	"admin-bot/moderation"
	"admin-bot/utils"
	"admin-bot/utils/database"
	"admin-bot/utils/database/backups"
	"admin-bot/utils/database/infractions"
	"admin-bot/utils/guildtest"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap/zaptest"
)

func newEventBot(t *testing.T, api *guildtest.API, guild model.GuildConfig) (*bot.Bot, *backups.Store) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zaptest.NewLogger(t)
	backupStore := backups.NewStore(db)
	b := &bot.Bot{Logger: logger}
	b.SetConfig(&model.Config{Guilds: map[string]model.GuildConfig{"g": guild}})
	b.Moderation = moderation.New(moderation.Deps{
		Store:   infractions.NewStore(db),
		Backups: backupStore,
		API:     api,
		Guard:   utils.NewOpGuard(),
		ModLog:  utils.NewModLog(nil, func(string) string { return "" }, logger),
		Logger:  logger,
	})
	return b, backupStore
}

func TestMemberFromGuildCreateRestoredOnRejoin(t *testing.T) {
	api := guildtest.New()
	api.SetRoles("g", "A", "B")
	b, _ := newEventBot(t, api, model.GuildConfig{Persist: &model.PersistConfig{Roles: true, Nickname: true}})

	requested := onGuildCreate(b, &discordgo.GuildCreate{Guild: &discordgo.Guild{
		ID: "g",
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "u"}, Roles: []string{"A", "B"}, Nick: "nick"},
		},
	}})
	if !requested {
		t.Fatalf("configured guild did not request its member list")
	}

	// The member leaves and rejoins without roles, never having been updated.
	api.AddMember("g", "u")
	onMemberAdd(b, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g", User: &discordgo.User{ID: "u"}}})

	member := api.Member("g", "u")
	if !slices.Equal(member.Roles, []string{"A", "B"}) || member.Nick != "nick" {
		t.Fatalf("member after rejoin = %+v", member)
	}
}

func TestMembersChunkReplacesBackup(t *testing.T) {
	api := guildtest.New()
	b, store := newEventBot(t, api, model.GuildConfig{Persist: &model.PersistConfig{Roles: true}})
	ctx := context.Background()

	if err := store.Save(ctx, &model.MemberBackup{GuildID: "g", UserID: "u", Roles: model.RoleList{"old"}}); err != nil {
		t.Fatalf("save backup: %v", err)
	}
	onMembersChunk(b, &discordgo.GuildMembersChunk{
		GuildID: "g",
		Members: []*discordgo.Member{{User: &discordgo.User{ID: "u"}, Roles: []string{"new"}}},
	})

	got, err := store.Get(ctx, "g", "u")
	if err != nil || !slices.Equal([]string(got.Roles), []string{"new"}) {
		t.Fatalf("backup after chunk = %+v, %v", got, err)
	}
}

func TestGuildCreateIgnoresGuildWithoutPersist(t *testing.T) {
	api := guildtest.New()
	b, store := newEventBot(t, api, model.GuildConfig{})

	if onGuildCreate(b, &discordgo.GuildCreate{Guild: &discordgo.Guild{
		ID:      "g",
		Members: []*discordgo.Member{{User: &discordgo.User{ID: "u"}}},
	}}) {
		t.Fatalf("guild without persist settings requested members")
	}
	if _, err := store.Get(context.Background(), "g", "u"); err == nil {
		t.Fatalf("member backed up without persist settings")
	}
}
