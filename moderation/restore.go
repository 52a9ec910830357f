package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"admin-bot/model"
	"admin-bot/utils"
	"admin-bot/utils/database/backups"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const restoreReason = "Automatic restore"

// RestorePlan is the minimal member edit that brings back a backup.
// Nil fields are left alone.
type RestorePlan struct {
	Roles []string
	Nick  *string
	Mute  *bool
	Deaf  *bool
}

func (p RestorePlan) Empty() bool {
	return p.Roles == nil && p.Nick == nil && p.Mute == nil && p.Deaf == nil
}

func (p RestorePlan) Update() utils.MemberUpdate {
	u := utils.MemberUpdate{Nick: p.Nick, Mute: p.Mute, Deaf: p.Deaf}
	if p.Roles != nil {
		roles := slices.Clone(p.Roles)
		u.Roles = &roles
	}
	return u
}

// ComputeRestore works out what of backup should be re-applied to member.
// Roles are limited to roles that still exist in the guild and, when set,
// to the persist allow-list. Fields that already match are left out.
func ComputeRestore(persist model.PersistConfig, backup *model.MemberBackup, guildRoleIDs []string, member *discordgo.Member) RestorePlan {
	var plan RestorePlan
	if backup == nil {
		return plan
	}

	if persist.Roles {
		var roles []string
		for _, roleID := range backup.Roles {
			if !slices.Contains(guildRoleIDs, roleID) {
				continue
			}
			if len(persist.RoleIDs) > 0 && !slices.Contains(persist.RoleIDs, roleID) {
				continue
			}
			if !slices.Contains(roles, roleID) {
				roles = append(roles, roleID)
			}
		}
		if len(roles) > 0 && !sameSet(roles, member.Roles) {
			plan.Roles = roles
		}
	}

	if persist.Nickname && backup.Nick.Valid && backup.Nick.String != "" && backup.Nick.String != member.Nick {
		nick := backup.Nick.String
		plan.Nick = &nick
	}

	if persist.Voice && (backup.Mute || backup.Deaf) && (backup.Mute != member.Mute || backup.Deaf != member.Deaf) {
		mute, deaf := backup.Mute, backup.Deaf
		plan.Mute = &mute
		plan.Deaf = &deaf
	}
	return plan
}

// Restore re-applies the member's backup according to the guild's persist
// settings. It reports whether anything was changed.
func (s *Service) Restore(ctx context.Context, cfg model.GuildConfig, guildID, userID string) (bool, error) {
	if cfg.Persist == nil {
		return false, nil
	}
	backup, err := s.backups.Get(ctx, guildID, userID)
	if errors.Is(err, backups.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	member, err := s.member(ctx, Target{GuildID: guildID, UserID: userID})
	if err != nil {
		return false, err
	}
	roles, err := s.api.GuildRoles(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to get guild roles: %w", err)
	}
	roleIDs := make([]string, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	plan := ComputeRestore(*cfg.Persist, backup, roleIDs, member)
	if plan.Empty() {
		return false, nil
	}

	s.modlog.CreateDebounce(guildID, userID, utils.ActionRolesUpdated)
	if err := s.api.ModifyMember(ctx, guildID, userID, plan.Update(), restoreReason); err != nil {
		return false, fmt.Errorf("failed to restore member: %w", err)
	}

	s.logger.Info("member restored", zap.String("guild_id", guildID), zap.String("user_id", userID))
	s.modlog.Log(ctx, guildID, utils.ActionRestore, utils.Entry{
		UserID: userID,
		Fields: plan.fields(),
	})
	return true, nil
}

func (p RestorePlan) fields() map[string]string {
	fields := make(map[string]string)
	if p.Roles != nil {
		fields["Roles"] = roleMentions(p.Roles)
	}
	if p.Nick != nil {
		fields["Nickname"] = *p.Nick
	}
	if p.Mute != nil {
		fields["Voice"] = fmt.Sprintf("mute=%t deaf=%t", *p.Mute, *p.Deaf)
	}
	return fields
}

// MemberJoined restores a rejoining member and records the resulting state
// as the new backup. A failed restore leaves the old backup in place.
func (s *Service) MemberJoined(ctx context.Context, cfg model.GuildConfig, guildID, userID string) (bool, error) {
	restored, err := s.Restore(ctx, cfg, guildID, userID)
	if err != nil {
		return false, err
	}
	member, err := s.member(ctx, Target{GuildID: guildID, UserID: userID})
	if err != nil {
		return restored, err
	}
	m := *member
	m.GuildID = guildID
	return restored, s.SnapshotMember(ctx, &m)
}

// SnapshotMembers stores a backup for every member of a guild sync and
// returns how many were saved.
func (s *Service) SnapshotMembers(ctx context.Context, guildID string, members []*discordgo.Member) (int, error) {
	var errs []error
	saved := 0
	for _, member := range members {
		if member == nil || member.User == nil || member.User.Bot {
			continue
		}
		m := *member
		m.GuildID = guildID
		if err := s.SnapshotMember(ctx, &m); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", m.User.ID, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// SnapshotMember stores the member's current roles, nickname and voice state.
func (s *Service) SnapshotMember(ctx context.Context, member *discordgo.Member) error {
	if member == nil || member.User == nil {
		return ErrInvalidUser
	}
	b := &model.MemberBackup{
		GuildID: member.GuildID,
		UserID:  member.User.ID,
		Roles:   model.RoleList(slices.Clone(member.Roles)),
		Mute:    member.Mute,
		Deaf:    member.Deaf,
	}
	if member.Nick != "" {
		b.Nick = sql.NullString{String: member.Nick, Valid: true}
	}
	return s.backups.Save(ctx, b)
}

// MemberUpdated snapshots a member after a gateway update and logs role
// changes that no bot action has already announced.
func (s *Service) MemberUpdated(ctx context.Context, member *discordgo.Member) error {
	if member == nil || member.User == nil {
		return ErrInvalidUser
	}
	previous, err := s.backups.Get(ctx, member.GuildID, member.User.ID)
	if err != nil && !errors.Is(err, backups.ErrNotFound) {
		return err
	}
	if err := s.SnapshotMember(ctx, member); err != nil {
		return err
	}
	if previous == nil {
		return nil
	}

	added, removed := diffRoles(previous.Roles, member.Roles)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	if s.modlog.ConsumeDebounce(member.GuildID, member.User.ID, utils.ActionRolesUpdated) {
		return nil
	}
	fields := make(map[string]string)
	if len(added) > 0 {
		fields["Added"] = roleMentions(added)
	}
	if len(removed) > 0 {
		fields["Removed"] = roleMentions(removed)
	}
	s.modlog.Log(ctx, member.GuildID, utils.ActionRolesUpdated, utils.Entry{
		UserID: member.User.ID,
		Fields: fields,
	})
	return nil
}

// SnapshotVoice updates only the voice state of a member's backup.
func (s *Service) SnapshotVoice(ctx context.Context, guildID, userID string, mute, deaf bool) error {
	b, err := s.backups.Get(ctx, guildID, userID)
	if errors.Is(err, backups.ErrNotFound) {
		b = &model.MemberBackup{GuildID: guildID, UserID: userID}
	} else if err != nil {
		return err
	}
	if b.Mute == mute && b.Deaf == deaf {
		return nil
	}
	b.Mute, b.Deaf = mute, deaf
	return s.backups.Save(ctx, b)
}

func roleMentions(ids []string) string {
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<@&"+id+">")
	}
	return strings.Join(mentions, " ")
}

func diffRoles(before, after []string) (added, removed []string) {
	for _, id := range after {
		if !slices.Contains(before, id) {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !slices.Contains(after, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func sameSet(a, b []string) bool {
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			return false
		}
	}
	return true
}
