package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// InfractionType is stored as text in the infractions.type column.
type InfractionType string

const (
	InfractionBan      InfractionType = "ban"
	InfractionSoftBan  InfractionType = "softban"
	InfractionKick     InfractionType = "kick"
	InfractionMute     InfractionType = "mute"
	InfractionTempMute InfractionType = "tempmute"
	InfractionTempBan  InfractionType = "tempban"
	InfractionUnban    InfractionType = "unban"
	InfractionWarn     InfractionType = "warn"
)

// Dated reports whether infractions of this type carry an expiry.
func (t InfractionType) Dated() bool {
	return t == InfractionTempMute || t == InfractionTempBan
}

func (t InfractionType) Valid() bool {
	switch t {
	case InfractionBan, InfractionSoftBan, InfractionKick, InfractionMute,
		InfractionTempMute, InfractionTempBan, InfractionUnban, InfractionWarn:
		return true
	}
	return false
}

// Metadata is a small JSON object kept alongside an infraction,
// e.g. the role that was applied for a mute.
type Metadata map[string]string

// MetadataRole is the key holding the role applied by a mute.
const MetadataRole = "role"

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to decode infraction metadata: %w", err)
		}
	}
	*m = out
	return nil
}

// Infraction represents a single moderation action in the 'infractions' table.
// Records are never deleted; Active is cleared when the punishment ends.
type Infraction struct {
	ID        int64          `db:"id"`
	GuildID   string         `db:"guild_id"`
	UserID    string         `db:"user_id"`
	ActorID   sql.NullString `db:"actor_id"` // NULL for system-issued infractions
	Type      InfractionType `db:"type"`
	Reason    sql.NullString `db:"reason"`
	Metadata  Metadata       `db:"metadata"`
	Active    bool           `db:"active"`
	ExpiresAt sql.NullInt64  `db:"expires_at"` // unix milliseconds
	CreatedAt int64          `db:"created_at"` // unix milliseconds
}

// Expiry returns the deadline of a dated infraction.
func (i *Infraction) Expiry() (time.Time, bool) {
	if !i.ExpiresAt.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(i.ExpiresAt.Int64), true
}

func (i *Infraction) SetExpiry(t time.Time) {
	i.ExpiresAt = sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func (i *Infraction) Created() time.Time {
	return time.UnixMilli(i.CreatedAt)
}

// MuteRole returns the role recorded by a mute or tempmute.
func (i *Infraction) MuteRole() string {
	return i.Metadata[MetadataRole]
}
