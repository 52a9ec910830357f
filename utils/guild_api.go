package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrNotFound means the guild, member, ban, role, channel or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the bot lacks permission for the call.
	ErrForbidden = errors.New("forbidden")
)

// MemberUpdate is a partial member edit. Nil fields are left untouched.
type MemberUpdate struct {
	Roles *[]string
	Nick  *string
	Mute  *bool
	Deaf  *bool
}

func (u MemberUpdate) Empty() bool {
	return u.Roles == nil && u.Nick == nil && u.Mute == nil && u.Deaf == nil
}

// GuildAPI is the subset of the Discord REST API the admin features need.
// Every call is bounded by a per-call timeout.
type GuildAPI interface {
	GetMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	ModifyMember(ctx context.Context, guildID, userID string, update MemberUpdate, reason string) error
	GetBan(ctx context.Context, guildID, userID string) (*discordgo.GuildBan, error)
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	RemoveBan(ctx context.Context, guildID, userID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
	DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error
}

// SessionAPI implements GuildAPI on top of a discordgo session.
type SessionAPI struct {
	session *discordgo.Session
	timeout time.Duration
}

func NewSessionAPI(s *discordgo.Session, timeout time.Duration) *SessionAPI {
	return &SessionAPI{session: s, timeout: timeout}
}

func (a *SessionAPI) opts(ctx context.Context, reason string) (context.CancelFunc, []discordgo.RequestOption) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return cancel, opts
}

func (a *SessionAPI) GetMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	m, err := a.session.GuildMember(guildID, userID, opts...)
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

func (a *SessionAPI) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	roles, err := a.session.GuildRoles(guildID, opts...)
	if err != nil {
		return nil, classify(err)
	}
	return roles, nil
}

func (a *SessionAPI) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	cancel, opts := a.opts(ctx, reason)
	defer cancel()
	return classify(a.session.GuildMemberRoleAdd(guildID, userID, roleID, opts...))
}

func (a *SessionAPI) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	cancel, opts := a.opts(ctx, reason)
	defer cancel()
	return classify(a.session.GuildMemberRoleRemove(guildID, userID, roleID, opts...))
}

func (a *SessionAPI) ModifyMember(ctx context.Context, guildID, userID string, update MemberUpdate, reason string) error {
	params := &discordgo.GuildMemberParams{
		Roles: update.Roles,
		Mute:  update.Mute,
		Deaf:  update.Deaf,
	}
	if update.Nick != nil {
		params.Nick = *update.Nick
	}
	cancel, opts := a.opts(ctx, reason)
	defer cancel()
	_, err := a.session.GuildMemberEdit(guildID, userID, params, opts...)
	return classify(err)
}

func (a *SessionAPI) GetBan(ctx context.Context, guildID, userID string) (*discordgo.GuildBan, error) {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	ban, err := a.session.GuildBan(guildID, userID, opts...)
	if err != nil {
		return nil, classify(err)
	}
	return ban, nil
}

func (a *SessionAPI) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	return classify(a.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, opts...))
}

func (a *SessionAPI) RemoveBan(ctx context.Context, guildID, userID, reason string) error {
	cancel, opts := a.opts(ctx, reason)
	defer cancel()
	return classify(a.session.GuildBanDelete(guildID, userID, opts...))
}

func (a *SessionAPI) Kick(ctx context.Context, guildID, userID, reason string) error {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	return classify(a.session.GuildMemberDeleteWithReason(guildID, userID, reason, opts...))
}

func (a *SessionAPI) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	msgs, err := a.session.ChannelMessages(channelID, limit, beforeID, "", "", opts...)
	if err != nil {
		return nil, classify(err)
	}
	return msgs, nil
}

// DeleteMessages deletes up to 100 messages. Discord's bulk endpoint needs at
// least two IDs, so a single message goes through the single delete route.
func (a *SessionAPI) DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	cancel, opts := a.opts(ctx, "")
	defer cancel()
	switch len(messageIDs) {
	case 0:
		return nil
	case 1:
		return classify(a.session.ChannelMessageDelete(channelID, messageIDs[0], opts...))
	default:
		return classify(a.session.ChannelMessagesBulkDelete(channelID, messageIDs, opts...))
	}
}

// classify maps Discord REST failures onto ErrNotFound and ErrForbidden.
// Anything else is left as is and treated as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownBan,
			discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}

// IsTransient reports whether a GuildAPI error is worth retrying later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrForbidden)
}
