package utils

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Action is a moderation log entry kind.
type Action string

const (
	ActionInfraction   Action = "infraction"
	ActionExpired      Action = "expired"
	ActionUnmuted      Action = "unmuted"
	ActionUnbanned     Action = "unbanned"
	ActionRestore      Action = "restore"
	ActionClean        Action = "clean"
	ActionRolesUpdated Action = "roles_updated"
)

func getColor(action Action) int {
	switch action {
	case ActionInfraction:
		return 15158332 // Red
	case ActionExpired, ActionUnmuted, ActionUnbanned:
		return 3066993 // Green
	case ActionClean:
		return 15105570 // Orange
	default:
		return 3447003 // Blue
	}
}

const sendTimeout = 10 * time.Second

// EmbedSender is satisfied by *discordgo.Session.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Entry is the content of one moderation log line.
type Entry struct {
	UserID  string
	ActorID string // empty for automatic actions
	Reason  string
	Fields  map[string]string
}

// ModLog posts moderation actions to each guild's modlog channel.
// Debounces let a code path that changes a member announce the change itself
// and suppress the generic entry the resulting gateway event would produce.
type ModLog struct {
	sender  EmbedSender
	channel func(guildID string) string
	logger  *zap.Logger
	ttl     time.Duration

	mu        sync.Mutex
	debounces map[string]time.Time
}

func NewModLog(sender EmbedSender, channel func(guildID string) string, logger *zap.Logger) *ModLog {
	return &ModLog{
		sender:    sender,
		channel:   channel,
		logger:    logger.With(zap.String("component", "modlog")),
		ttl:       10 * time.Second,
		debounces: make(map[string]time.Time),
	}
}

func debounceKey(guildID, userID string, action Action) string {
	return guildID + ":" + userID + ":" + string(action)
}

// CreateDebounce marks (guild, user, action) as already logged for a short while.
func (l *ModLog) CreateDebounce(guildID, userID string, action Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debounces[debounceKey(guildID, userID, action)] = time.Now().Add(l.ttl)
}

// ConsumeDebounce reports whether a live debounce exists and removes it.
func (l *ModLog) ConsumeDebounce(guildID, userID string, action Action) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := debounceKey(guildID, userID, action)
	until, ok := l.debounces[key]
	if !ok {
		return false
	}
	delete(l.debounces, key)
	return time.Now().Before(until)
}

// CleanupDebounces drops expired debounces.
func (l *ModLog) CleanupDebounces() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for key, until := range l.debounces {
		if now.After(until) {
			delete(l.debounces, key)
		}
	}
}

// Log posts one entry. Guilds without a modlog channel are skipped.
func (l *ModLog) Log(ctx context.Context, guildID string, action Action, entry Entry) {
	channelID := l.channel(guildID)
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Moderation: %s", action),
		Color:     getColor(action),
		Timestamp: time.Now().Format(time.RFC3339),
		Fields:    []*discordgo.MessageEmbedField{},
	}
	if entry.UserID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "User", Value: "<@" + entry.UserID + ">", Inline: true})
	}
	actor := "automatic"
	if entry.ActorID != "" {
		actor = "<@" + entry.ActorID + ">"
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Moderator", Value: actor, Inline: true})
	if entry.Reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: entry.Reason})
	}
	for _, name := range slices.Sorted(maps.Keys(entry.Fields)) {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: entry.Fields[name], Inline: true})
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, err := l.sender.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		l.logger.Warn("failed to send modlog entry",
			zap.String("guild_id", guildID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
