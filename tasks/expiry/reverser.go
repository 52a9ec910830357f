package expiry

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"admin-bot/model"
	"admin-bot/utils"

	"go.uber.org/zap"
)

var (
	// ErrNotDated is returned for an infraction kind that never expires.
	ErrNotDated = errors.New("infraction type is not dated")
	// ErrNoMuteRole is returned for a mute whose metadata lost its role.
	ErrNoMuteRole = errors.New("mute infraction has no role recorded")
)

const reverseReason = "Punishment expired"

// RoleStripper removes a role from a stored member backup.
type RoleStripper interface {
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// Reverser undoes expired punishments. Every outcome that leaves the member
// in the unpunished state is a success, so reversing twice is harmless.
type Reverser struct {
	api     utils.GuildAPI
	backups RoleStripper
	members *utils.KeyedMutex[string]
	logger  *zap.Logger
}

// NewReverser builds a Reverser. backups may be nil. members is shared with
// the manual unmute path so that only one of them removes a mute role.
func NewReverser(api utils.GuildAPI, backups RoleStripper, members *utils.KeyedMutex[string], logger *zap.Logger) *Reverser {
	if members == nil {
		members = utils.NewKeyedMutex[string]()
	}
	return &Reverser{api: api, backups: backups, members: members, logger: logger}
}

// Reverse performs the reversal for inf. It does not close the record.
func (r *Reverser) Reverse(ctx context.Context, inf *model.Infraction) error {
	switch inf.Type {
	case model.InfractionTempBan:
		return r.unban(ctx, inf)
	case model.InfractionTempMute:
		return r.unmute(ctx, inf)
	default:
		return fmt.Errorf("%w: infraction %d is %s", ErrNotDated, inf.ID, inf.Type)
	}
}

func (r *Reverser) unban(ctx context.Context, inf *model.Infraction) error {
	err := r.api.RemoveBan(ctx, inf.GuildID, inf.UserID, reverseReason)
	if errors.Is(err, utils.ErrNotFound) {
		r.logger.Debug("user already unbanned", zap.Int64("infraction_id", inf.ID), zap.String("user_id", inf.UserID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove ban for user %s in guild %s: %w", inf.UserID, inf.GuildID, err)
	}
	return nil
}

func (r *Reverser) unmute(ctx context.Context, inf *model.Infraction) error {
	roleID := inf.MuteRole()
	if roleID == "" {
		return fmt.Errorf("%w: infraction %d", ErrNoMuteRole, inf.ID)
	}

	unlock := r.members.Lock(utils.MemberKey(inf.GuildID, inf.UserID))
	defer unlock()

	member, err := r.api.GetMember(ctx, inf.GuildID, inf.UserID)
	if errors.Is(err, utils.ErrNotFound) {
		// The member left; make sure a rejoin does not bring the role back.
		if r.backups != nil {
			if err := r.backups.RemoveRole(ctx, inf.GuildID, inf.UserID, roleID); err != nil {
				r.logger.Warn("failed to strip mute role from backup",
					zap.Int64("infraction_id", inf.ID), zap.Error(err))
			}
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get member %s in guild %s: %w", inf.UserID, inf.GuildID, err)
	}

	if !slices.Contains(member.Roles, roleID) {
		return nil
	}
	err = r.api.RemoveRole(ctx, inf.GuildID, inf.UserID, roleID, reverseReason)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return fmt.Errorf("failed to remove role %s from user %s in guild %s: %w", roleID, inf.UserID, inf.GuildID, err)
	}
	return nil
}
