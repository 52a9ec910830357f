package backups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"admin-bot/model"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("member backup not found")

// Store keeps the last known state of every member seen in a guild.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Save inserts or replaces the backup for (GuildID, UserID).
func (s *Store) Save(ctx context.Context, b *model.MemberBackup) error {
	if b.Roles == nil {
		b.Roles = model.RoleList{}
	}
	b.UpdatedAt = time.Now().UnixMilli()
	query := `INSERT INTO member_backups (guild_id, user_id, nick, roles, mute, deaf, updated_at)
			  VALUES (:guild_id, :user_id, :nick, :roles, :mute, :deaf, :updated_at)
			  ON CONFLICT(guild_id, user_id) DO UPDATE SET
				nick = excluded.nick,
				roles = excluded.roles,
				mute = excluded.mute,
				deaf = excluded.deaf,
				updated_at = excluded.updated_at`
	if _, err := s.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("failed to save backup for user %s in guild %s: %w", b.UserID, b.GuildID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, guildID, userID string) (*model.MemberBackup, error) {
	return get(ctx, s.db, guildID, userID)
}

func get(ctx context.Context, q sqlx.QueryerContext, guildID, userID string) (*model.MemberBackup, error) {
	var b model.MemberBackup
	err := sqlx.GetContext(ctx, q, &b, "SELECT * FROM member_backups WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backup for user %s in guild %s: %w", userID, guildID, err)
	}
	return &b, nil
}

// RemoveRole drops roleID from a member's stored roles so that a rejoin does
// not bring it back. A missing backup is not an error.
func (s *Store) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	b, err := get(ctx, tx, guildID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	kept := make(model.RoleList, 0, len(b.Roles))
	for _, r := range b.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(b.Roles) {
		return nil
	}

	query := "UPDATE member_backups SET roles = ?, updated_at = ? WHERE guild_id = ? AND user_id = ?"
	if _, err := tx.ExecContext(ctx, query, kept, time.Now().UnixMilli(), guildID, userID); err != nil {
		return fmt.Errorf("failed to update roles for user %s in guild %s: %w", userID, guildID, err)
	}
	return tx.Commit()
}
