// Package moderation implements the admin actions of the bot: punishments,
// their manual reversal, member restore and channel cleanup.
package moderation

import (
	"context"
	"errors"
	"time"

	"admin-bot/model"
	"admin-bot/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidUser     = errors.New("invalid user")
	ErrMuteNotSetup    = errors.New("mute is not set up on this server")
	ErrAlreadyMuted    = errors.New("user is already muted")
	ErrNotMuted        = errors.New("user is not muted")
	ErrNotBanned       = errors.New("user is not banned")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidSize     = errors.New("size out of range")
	ErrCleanRunning    = errors.New("a clean is already running on this channel")
)

type InfractionStore interface {
	Create(ctx context.Context, inf *model.Infraction) error
	Get(ctx context.Context, id int64) (*model.Infraction, error)
	CompareAndClose(ctx context.Context, id int64) (bool, error)
	CloseActive(ctx context.Context, guildID, userID string, types ...model.InfractionType) (int64, error)
	Search(ctx context.Context, guildID, query string, limit int) ([]model.Infraction, error)
	UpdateReason(ctx context.Context, guildID string, id int64, actorID, reason string) error
}

type BackupStore interface {
	Get(ctx context.Context, guildID, userID string) (*model.MemberBackup, error)
	Save(ctx context.Context, b *model.MemberBackup) error
}

type ModLogger interface {
	Log(ctx context.Context, guildID string, action utils.Action, entry utils.Entry)
	CreateDebounce(guildID, userID string, action utils.Action)
	ConsumeDebounce(guildID, userID string, action utils.Action) bool
}

// Rescheduler is told about every new expiry.
type Rescheduler interface {
	Reschedule(t time.Time) bool
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store     InfractionStore
	Backups   BackupStore
	API       utils.GuildAPI
	Guard     utils.Guard
	ModLog    ModLogger
	Scheduler Rescheduler
	// Members is shared with the expiry reverser.
	Members *utils.KeyedMutex[string]
	Logger  *zap.Logger
}

type Service struct {
	store     InfractionStore
	backups   BackupStore
	api       utils.GuildAPI
	guard     utils.Guard
	modlog    ModLogger
	scheduler Rescheduler
	members   *utils.KeyedMutex[string]
	logger    *zap.Logger
	now       func() time.Time
}

func New(d Deps) *Service {
	members := d.Members
	if members == nil {
		members = utils.NewKeyedMutex[string]()
	}
	return &Service{
		store:     d.Store,
		backups:   d.Backups,
		api:       d.API,
		guard:     d.Guard,
		modlog:    d.ModLog,
		scheduler: d.Scheduler,
		members:   members,
		logger:    d.Logger.With(zap.String("component", "moderation")),
		now:       time.Now,
	}
}

// Target is the subject of a moderation action.
type Target struct {
	GuildID string
	UserID  string
	ActorID string
	Reason  string
}

func (t Target) log() []zap.Field {
	return []zap.Field{
		zap.String("guild_id", t.GuildID),
		zap.String("user_id", t.UserID),
		zap.String("actor_id", t.ActorID),
	}
}
