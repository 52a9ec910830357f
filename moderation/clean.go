package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	MaxCleanSize     = 10000
	DefaultCleanSize = 25

	cleanPageSize = 100
	// Discord refuses to bulk delete messages older than two weeks.
	bulkDeleteMaxAge = 14 * 24 * time.Hour
)

type CleanMode string

const (
	CleanAll  CleanMode = "all"
	CleanBots CleanMode = "bots"
	CleanUser CleanMode = "user"
)

type CleanRequest struct {
	GuildID   string
	ChannelID string
	ActorID   string
	Mode      CleanMode
	UserID    string // for CleanUser
	Size      int
}

// Clean deletes up to Size of the newest matching messages in a channel.
// Only one clean runs per channel at a time; a second one gets
// ErrCleanRunning instead of waiting.
func (s *Service) Clean(ctx context.Context, req CleanRequest) (int, error) {
	if req.Size < 1 || req.Size > MaxCleanSize {
		return 0, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidSize, MaxCleanSize)
	}
	if req.Mode == CleanUser && req.UserID == "" {
		return 0, ErrInvalidUser
	}

	var deleted int
	ran, err := utils.WithGuard(ctx, s.guard, "clean-"+req.ChannelID, func() error {
		var err error
		deleted, err = s.clean(ctx, req)
		return err
	})
	if !ran && err == nil {
		return 0, ErrCleanRunning
	}

	if deleted > 0 {
		s.logger.Info("channel cleaned",
			zap.String("channel_id", req.ChannelID),
			zap.String("mode", string(req.Mode)),
			zap.Int("deleted", deleted))
		s.modlog.Log(ctx, req.GuildID, utils.ActionClean, utils.Entry{
			ActorID: req.ActorID,
			Fields: map[string]string{
				"Channel": "<#" + req.ChannelID + ">",
				"Mode":    string(req.Mode),
				"Deleted": strconv.Itoa(deleted),
			},
		})
	}
	return deleted, err
}

func (s *Service) clean(ctx context.Context, req CleanRequest) (int, error) {
	ids, err := s.collect(ctx, req)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(ids); start += cleanPageSize {
		end := min(start+cleanPageSize, len(ids))
		if err := s.api.DeleteMessages(ctx, req.ChannelID, ids[start:end]); err != nil {
			return deleted, fmt.Errorf("failed to delete messages: %w", err)
		}
		deleted += end - start
	}
	return deleted, nil
}

// collect pages back through the channel, newest first, until it has enough
// matching messages or reaches ones too old to bulk delete.
func (s *Service) collect(ctx context.Context, req CleanRequest) ([]string, error) {
	cutoff := s.now().Add(-bulkDeleteMaxAge)
	var ids []string
	before := ""
	for scanned := 0; scanned < MaxCleanSize; {
		msgs, err := s.api.ChannelMessages(ctx, req.ChannelID, cleanPageSize, before)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}
		for _, m := range msgs {
			if m.Timestamp.Before(cutoff) {
				return ids, nil
			}
			if matchesClean(req, m) {
				ids = append(ids, m.ID)
				if len(ids) == req.Size {
					return ids, nil
				}
			}
		}
		if len(msgs) < cleanPageSize {
			break
		}
		scanned += len(msgs)
		before = msgs[len(msgs)-1].ID
	}
	return ids, nil
}

func matchesClean(req CleanRequest, m *discordgo.Message) bool {
	switch req.Mode {
	case CleanBots:
		return m.Author != nil && m.Author.Bot
	case CleanUser:
		return m.Author != nil && m.Author.ID == req.UserID
	default:
		return true
	}
}
