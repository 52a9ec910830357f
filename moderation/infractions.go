package moderation

import (
	"context"
	"fmt"
	"sort"

	"admin-bot/model"
	"admin-bot/utils/database/infractions"

	"github.com/bwmarrin/discordgo"
)

// Info returns an infraction of guildID.
func (s *Service) Info(ctx context.Context, guildID string, id int64) (*model.Infraction, error) {
	inf, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inf.GuildID != guildID {
		return nil, fmt.Errorf("%w: %d", infractions.ErrNotFound, id)
	}
	return inf, nil
}

func (s *Service) Search(ctx context.Context, guildID, query string, limit int) ([]model.Infraction, error) {
	return s.store.Search(ctx, guildID, query, limit)
}

// Reason replaces the reason of one of the actor's infractions.
func (s *Service) Reason(ctx context.Context, guildID string, id int64, actorID, reason string) error {
	return s.store.UpdateReason(ctx, guildID, id, actorID, reason)
}

// Roles lists the guild's roles, highest first.
func (s *Service) Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	roles, err := s.api.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild roles: %w", err)
	}
	sort.Slice(roles, func(i, j int) bool {
		return roles[i].Position > roles[j].Position
	})
	return roles, nil
}
