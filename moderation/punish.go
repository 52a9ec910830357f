package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"admin-bot/model"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const softBanDeleteDays = 7

// Mute gives the member the guild's mute role until Unmute is called.
func (s *Service) Mute(ctx context.Context, cfg model.GuildConfig, t Target) (*model.Infraction, error) {
	if cfg.MuteRole == "" {
		return nil, ErrMuteNotSetup
	}
	return s.mute(ctx, cfg, t, model.InfractionMute, cfg.MuteRole, time.Time{})
}

// TempMute mutes the member for d. The temp mute role is preferred over the
// permanent one when both are configured.
func (s *Service) TempMute(ctx context.Context, cfg model.GuildConfig, t Target, d time.Duration) (*model.Infraction, error) {
	role := cfg.TempMuteRole
	if role == "" {
		role = cfg.MuteRole
	}
	if role == "" {
		return nil, ErrMuteNotSetup
	}
	if d <= 0 {
		return nil, ErrInvalidDuration
	}
	return s.mute(ctx, cfg, t, model.InfractionTempMute, role, s.now().Add(d))
}

func (s *Service) mute(ctx context.Context, cfg model.GuildConfig, t Target, typ model.InfractionType, roleID string, expires time.Time) (*model.Infraction, error) {
	unlock := s.members.Lock(utils.MemberKey(t.GuildID, t.UserID))
	defer unlock()

	member, err := s.member(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(heldMuteRoles(cfg, member)) > 0 {
		return nil, ErrAlreadyMuted
	}

	inf := newInfraction(t, typ)
	inf.Metadata[model.MetadataRole] = roleID
	if !expires.IsZero() {
		inf.SetExpiry(expires)
	}
	if err := s.store.Create(ctx, inf); err != nil {
		return nil, err
	}

	s.modlog.CreateDebounce(t.GuildID, t.UserID, utils.ActionRolesUpdated)
	if err := s.api.AddRole(ctx, t.GuildID, t.UserID, roleID, auditReason(t)); err != nil {
		s.abandon(ctx, inf)
		return nil, fmt.Errorf("failed to add mute role: %w", err)
	}

	s.scheduleExpiry(inf)
	s.logInfraction(ctx, inf)
	return inf, nil
}

// Unmute lifts every active mute of the member and removes any mute role
// they hold. It returns ErrNotMuted when there was nothing to lift, which is
// also the outcome when the expiry scheduler got there first.
func (s *Service) Unmute(ctx context.Context, cfg model.GuildConfig, t Target) error {
	muteRoles := cfg.MuteRoles()
	if len(muteRoles) == 0 {
		return ErrMuteNotSetup
	}

	unlock := s.members.Lock(utils.MemberKey(t.GuildID, t.UserID))
	defer unlock()

	member, err := s.member(ctx, t)
	if err != nil {
		return err
	}
	closed, err := s.store.CloseActive(ctx, t.GuildID, t.UserID, model.InfractionMute, model.InfractionTempMute)
	if err != nil {
		return err
	}
	held := heldMuteRoles(cfg, member)
	if closed == 0 && len(held) == 0 {
		return ErrNotMuted
	}

	if len(held) > 0 {
		s.modlog.CreateDebounce(t.GuildID, t.UserID, utils.ActionRolesUpdated)
	}
	for _, roleID := range held {
		err := s.api.RemoveRole(ctx, t.GuildID, t.UserID, roleID, auditReason(t))
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			return fmt.Errorf("failed to remove mute role %s: %w", roleID, err)
		}
	}

	s.logger.Info("member unmuted", append(t.log(), zap.Int64("closed", closed))...)
	s.modlog.Log(ctx, t.GuildID, utils.ActionUnmuted, utils.Entry{
		UserID:  t.UserID,
		ActorID: t.ActorID,
		Reason:  t.Reason,
	})
	return nil
}

func (s *Service) Kick(ctx context.Context, t Target) (*model.Infraction, error) {
	if _, err := s.member(ctx, t); err != nil {
		return nil, err
	}
	if err := s.api.Kick(ctx, t.GuildID, t.UserID, auditReason(t)); err != nil {
		return nil, fmt.Errorf("failed to kick: %w", err)
	}
	return s.record(ctx, newInfraction(t, model.InfractionKick))
}

// Ban bans a current member of the guild.
func (s *Service) Ban(ctx context.Context, t Target) (*model.Infraction, error) {
	if _, err := s.member(ctx, t); err != nil {
		return nil, err
	}
	return s.ForceBan(ctx, t)
}

// ForceBan bans a user ID whether or not it is in the guild.
func (s *Service) ForceBan(ctx context.Context, t Target) (*model.Infraction, error) {
	if err := s.api.Ban(ctx, t.GuildID, t.UserID, auditReason(t), 0); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, ErrInvalidUser
		}
		return nil, fmt.Errorf("failed to ban: %w", err)
	}
	return s.record(ctx, newInfraction(t, model.InfractionBan))
}

// SoftBan bans and immediately unbans the member to delete their recent
// messages.
func (s *Service) SoftBan(ctx context.Context, t Target) (*model.Infraction, error) {
	if _, err := s.member(ctx, t); err != nil {
		return nil, err
	}
	if err := s.api.Ban(ctx, t.GuildID, t.UserID, auditReason(t), softBanDeleteDays); err != nil {
		return nil, fmt.Errorf("failed to ban: %w", err)
	}
	if err := s.api.RemoveBan(ctx, t.GuildID, t.UserID, auditReason(t)); err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, fmt.Errorf("failed to lift soft ban: %w", err)
	}
	return s.record(ctx, newInfraction(t, model.InfractionSoftBan))
}

func (s *Service) TempBan(ctx context.Context, t Target, d time.Duration) (*model.Infraction, error) {
	if d <= 0 {
		return nil, ErrInvalidDuration
	}
	if _, err := s.member(ctx, t); err != nil {
		return nil, err
	}

	inf := newInfraction(t, model.InfractionTempBan)
	inf.SetExpiry(s.now().Add(d))
	if err := s.store.Create(ctx, inf); err != nil {
		return nil, err
	}
	if err := s.api.Ban(ctx, t.GuildID, t.UserID, auditReason(t), 0); err != nil {
		s.abandon(ctx, inf)
		return nil, fmt.Errorf("failed to ban: %w", err)
	}

	s.scheduleExpiry(inf)
	s.logInfraction(ctx, inf)
	return inf, nil
}

// Unban lifts a ban and closes the ban infractions it ends.
func (s *Service) Unban(ctx context.Context, t Target) (*model.Infraction, error) {
	if _, err := s.api.GetBan(ctx, t.GuildID, t.UserID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, ErrNotBanned
		}
		return nil, fmt.Errorf("failed to get ban: %w", err)
	}
	if err := s.api.RemoveBan(ctx, t.GuildID, t.UserID, auditReason(t)); err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, fmt.Errorf("failed to remove ban: %w", err)
	}
	if _, err := s.store.CloseActive(ctx, t.GuildID, t.UserID, model.InfractionBan, model.InfractionTempBan); err != nil {
		return nil, err
	}

	inf := newInfraction(t, model.InfractionUnban)
	if err := s.store.Create(ctx, inf); err != nil {
		return nil, err
	}
	s.modlog.Log(ctx, t.GuildID, utils.ActionUnbanned, utils.Entry{
		UserID:  t.UserID,
		ActorID: t.ActorID,
		Reason:  t.Reason,
		Fields:  map[string]string{"Infraction": fmt.Sprintf("#%d", inf.ID)},
	})
	return inf, nil
}

func (s *Service) Warn(ctx context.Context, t Target) (*model.Infraction, error) {
	if _, err := s.member(ctx, t); err != nil {
		return nil, err
	}
	return s.record(ctx, newInfraction(t, model.InfractionWarn))
}

// BanRemoved closes the ban infractions of a user whose ban was lifted
// outside the bot.
func (s *Service) BanRemoved(ctx context.Context, guildID, userID string) error {
	n, err := s.store.CloseActive(ctx, guildID, userID, model.InfractionBan, model.InfractionTempBan)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("closed ban infractions after unban",
			zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Int64("closed", n))
	}
	return nil
}

func (s *Service) member(ctx context.Context, t Target) (*discordgo.Member, error) {
	member, err := s.api.GetMember(ctx, t.GuildID, t.UserID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, ErrInvalidUser
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func (s *Service) record(ctx context.Context, inf *model.Infraction) (*model.Infraction, error) {
	if err := s.store.Create(ctx, inf); err != nil {
		return nil, err
	}
	s.logInfraction(ctx, inf)
	return inf, nil
}

// abandon closes an infraction whose platform action failed.
func (s *Service) abandon(ctx context.Context, inf *model.Infraction) {
	if _, err := s.store.CompareAndClose(context.WithoutCancel(ctx), inf.ID); err != nil {
		s.logger.Error("failed to close abandoned infraction", zap.Int64("infraction_id", inf.ID), zap.Error(err))
	}
}

func (s *Service) scheduleExpiry(inf *model.Infraction) {
	if expires, ok := inf.Expiry(); ok {
		s.scheduler.Reschedule(expires)
	}
}

func (s *Service) logInfraction(ctx context.Context, inf *model.Infraction) {
	fields := map[string]string{
		"Infraction": fmt.Sprintf("#%d", inf.ID),
		"Type":       string(inf.Type),
	}
	if expires, ok := inf.Expiry(); ok {
		fields["Expires"] = humanize.Time(expires)
	}
	s.logger.Info("infraction created",
		zap.Int64("infraction_id", inf.ID),
		zap.String("type", string(inf.Type)),
		zap.String("guild_id", inf.GuildID),
		zap.String("user_id", inf.UserID))
	s.modlog.Log(ctx, inf.GuildID, utils.ActionInfraction, utils.Entry{
		UserID:  inf.UserID,
		ActorID: inf.ActorID.String,
		Reason:  inf.Reason.String,
		Fields:  fields,
	})
}

func newInfraction(t Target, typ model.InfractionType) *model.Infraction {
	inf := &model.Infraction{
		GuildID:  t.GuildID,
		UserID:   t.UserID,
		Type:     typ,
		Metadata: model.Metadata{},
	}
	if t.ActorID != "" {
		inf.ActorID = sql.NullString{String: t.ActorID, Valid: true}
	}
	if t.Reason != "" {
		inf.Reason = sql.NullString{String: t.Reason, Valid: true}
	}
	return inf
}

func heldMuteRoles(cfg model.GuildConfig, member *discordgo.Member) []string {
	var held []string
	for _, roleID := range cfg.MuteRoles() {
		if slices.Contains(member.Roles, roleID) {
			held = append(held, roleID)
		}
	}
	return held
}

func auditReason(t Target) string {
	if t.Reason == "" {
		return fmt.Sprintf("By %s", t.ActorID)
	}
	return fmt.Sprintf("By %s: %s", t.ActorID, t.Reason)
}
