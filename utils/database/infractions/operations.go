package infractions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"admin-bot/model"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound          = errors.New("infraction not found")
	ErrNotOwner          = errors.New("infraction belongs to another moderator")
	ErrInvalidInfraction = errors.New("invalid infraction")
)

// Store is the durable record of infractions. It is the only code that
// flips the active flag.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create inserts inf and fills in its ID, CreatedAt and Active fields.
func (s *Store) Create(ctx context.Context, inf *model.Infraction) error {
	if !inf.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInfraction, inf.Type)
	}
	if inf.Type.Dated() && !inf.ExpiresAt.Valid {
		return fmt.Errorf("%w: %s requires an expiry", ErrInvalidInfraction, inf.Type)
	}
	if !inf.Type.Dated() && inf.ExpiresAt.Valid {
		return fmt.Errorf("%w: %s cannot expire", ErrInvalidInfraction, inf.Type)
	}
	if inf.Metadata == nil {
		inf.Metadata = model.Metadata{}
	}
	inf.CreatedAt = s.now().UnixMilli()
	// Permanent bans and mutes stay active until lifted; other undated
	// types are recorded closed.
	inf.Active = inf.Type.Dated() || inf.Type == model.InfractionBan || inf.Type == model.InfractionMute

	query := `INSERT INTO infractions (guild_id, user_id, actor_id, type, reason, metadata, active, expires_at, created_at)
			  VALUES (:guild_id, :user_id, :actor_id, :type, :reason, :metadata, :active, :expires_at, :created_at)`
	result, err := s.db.NamedExecContext(ctx, query, inf)
	if err != nil {
		return fmt.Errorf("failed to insert infraction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	inf.ID = id
	return nil
}

// Get retrieves a single infraction by its primary key.
func (s *Store) Get(ctx context.Context, id int64) (*model.Infraction, error) {
	var inf model.Infraction
	err := s.db.GetContext(ctx, &inf, "SELECT * FROM infractions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get infraction %d: %w", id, err)
	}
	return &inf, nil
}

// FindEarliestActiveDated returns the active infraction with the earliest
// expiry, or nil if there is none.
func (s *Store) FindEarliestActiveDated(ctx context.Context) (*model.Infraction, error) {
	var inf model.Infraction
	query := `SELECT * FROM infractions
			  WHERE active = 1 AND expires_at IS NOT NULL
			  ORDER BY expires_at ASC, id ASC LIMIT 1`
	err := s.db.GetContext(ctx, &inf, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest active infraction: %w", err)
	}
	return &inf, nil
}

// FindEarliestActiveDatedAfter is FindEarliestActiveDated restricted to
// expiries strictly after t.
func (s *Store) FindEarliestActiveDatedAfter(ctx context.Context, t time.Time) (*model.Infraction, error) {
	var inf model.Infraction
	query := `SELECT * FROM infractions
			  WHERE active = 1 AND expires_at IS NOT NULL AND expires_at > ?
			  ORDER BY expires_at ASC, id ASC LIMIT 1`
	err := s.db.GetContext(ctx, &inf, query, t.UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next active infraction: %w", err)
	}
	return &inf, nil
}

// FindAllDue returns every active infraction whose expiry is at or before now.
func (s *Store) FindAllDue(ctx context.Context, now time.Time) ([]model.Infraction, error) {
	var records []model.Infraction
	query := `SELECT * FROM infractions
			  WHERE active = 1 AND expires_at IS NOT NULL AND expires_at <= ?
			  ORDER BY expires_at ASC, id ASC`
	if err := s.db.SelectContext(ctx, &records, query, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to get due infractions: %w", err)
	}
	return records, nil
}

// CompareAndClose flips active from true to false for id. It reports whether
// this call did the flip; false means the record was already closed.
func (s *Store) CompareAndClose(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE infractions SET active = 0 WHERE id = ? AND active = 1", id)
	if err != nil {
		return false, fmt.Errorf("failed to close infraction %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for infraction %d: %w", id, err)
	}
	return rowsAffected == 1, nil
}

// CloseActive closes every active infraction of the given types for a member
// and returns how many were closed.
func (s *Store) CloseActive(ctx context.Context, guildID, userID string, types ...model.InfractionType) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`UPDATE infractions SET active = 0
			  WHERE guild_id = ? AND user_id = ? AND active = 1 AND type IN (?)`, guildID, userID, types)
	if err != nil {
		return 0, fmt.Errorf("failed to build close query: %w", err)
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to close infractions for user %s in guild %s: %w", userID, guildID, err)
	}
	return result.RowsAffected()
}

// Search returns the newest infractions of a guild matching query. A numeric
// query matches the infraction, user or actor ID; anything else matches the
// reason text.
func (s *Store) Search(ctx context.Context, guildID, query string, limit int) ([]model.Infraction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	sqlQuery := "SELECT * FROM infractions WHERE guild_id = ?"
	args := []interface{}{guildID}

	query = strings.TrimSpace(query)
	if query != "" {
		if n, err := strconv.ParseInt(query, 10, 64); err == nil {
			sqlQuery += " AND (id = ? OR user_id = ? OR actor_id = ?)"
			args = append(args, n, query, query)
		} else {
			sqlQuery += " AND reason LIKE ?"
			args = append(args, "%"+query+"%")
		}
	}
	sqlQuery += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var records []model.Infraction
	if err := s.db.SelectContext(ctx, &records, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search infractions for guild %s: %w", guildID, err)
	}
	return records, nil
}

// UpdateReason changes the reason of an infraction of guildID. Only the
// infraction's moderator may do so; a system-issued infraction is claimed
// by the editor.
func (s *Store) UpdateReason(ctx context.Context, guildID string, id int64, actorID, reason string) error {
	inf, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if inf.GuildID != guildID {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if inf.ActorID.Valid && inf.ActorID.String != actorID {
		return fmt.Errorf("%w: %d", ErrNotOwner, id)
	}

	query := `UPDATE infractions SET reason = ?, actor_id = ?
			  WHERE id = ? AND (actor_id IS NULL OR actor_id = ?)`
	result, err := s.db.ExecContext(ctx, query, reason, actorID, id, actorID)
	if err != nil {
		return fmt.Errorf("failed to update reason for infraction %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for infraction %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotOwner, id)
	}
	return nil
}
