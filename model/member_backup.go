package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RoleList is a JSON encoded list of role IDs.
type RoleList []string

func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *RoleList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = RoleList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into RoleList", src)
	}
	out := RoleList{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to decode role list: %w", err)
		}
	}
	*r = out
	return nil
}

// MemberBackup is the last known guild-specific state of a member,
// consulted when they rejoin.
type MemberBackup struct {
	GuildID   string         `db:"guild_id"`
	UserID    string         `db:"user_id"`
	Nick      sql.NullString `db:"nick"`
	Roles     RoleList       `db:"roles"`
	Mute      bool           `db:"mute"`
	Deaf      bool           `db:"deaf"`
	UpdatedAt int64          `db:"updated_at"`
}
