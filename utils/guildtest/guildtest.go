// Package guildtest provides an in-memory utils.GuildAPI for tests.
package guildtest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// API is an in-memory guild. Members, bans and messages mutate as calls are
// made, so repeated calls observe the effect of earlier ones.
type API struct {
	mu       sync.Mutex
	members  map[string]*discordgo.Member
	bans     map[string]string
	roles    map[string][]*discordgo.Role
	messages map[string][]*discordgo.Message
	failures map[string][]error
	calls    []string
}

func New() *API {
	return &API{
		members:  make(map[string]*discordgo.Member),
		bans:     make(map[string]string),
		roles:    make(map[string][]*discordgo.Role),
		messages: make(map[string][]*discordgo.Message),
		failures: make(map[string][]error),
	}
}

func key(guildID, userID string) string { return guildID + "/" + userID }

// AddMember puts a member with the given roles in the guild.
func (a *API) AddMember(guildID, userID string, roles ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.members[key(guildID, userID)] = &discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID},
		Roles:   slices.Clone(roles),
	}
}

// RemoveMember makes the member leave the guild.
func (a *API) RemoveMember(guildID, userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.members, key(guildID, userID))
}

// Member returns a copy of the member, or nil.
func (a *API) Member(guildID, userID string) *discordgo.Member {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.members[key(guildID, userID)]
	if !ok {
		return nil
	}
	cp := *m
	cp.Roles = slices.Clone(m.Roles)
	return &cp
}

// SetRoles replaces the guild's role list.
func (a *API) SetRoles(guildID string, roleIDs ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	roles := make([]*discordgo.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		roles = append(roles, &discordgo.Role{ID: id, Name: id})
	}
	a.roles[guildID] = roles
}

// AddBan bans a user without going through Ban.
func (a *API) AddBan(guildID, userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bans[key(guildID, userID)] = ""
}

func (a *API) Banned(guildID, userID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.bans[key(guildID, userID)]
	return ok
}

// SetMessages replaces a channel's history, newest first.
func (a *API) SetMessages(channelID string, msgs []*discordgo.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages[channelID] = msgs
}

func (a *API) Messages(channelID string) []*discordgo.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.messages[channelID])
}

// Fail makes the next call of method return err.
func (a *API) Fail(method string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[method] = append(a.failures[method], err)
}

// Calls returns the mutating calls made so far, e.g. "RemoveRole g u r".
func (a *API) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.calls)
}

// CallCount counts calls to method.
func (a *API) CallCount(method string) int {
	n := 0
	for _, c := range a.Calls() {
		if c == method || strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

func (a *API) record(format string, args ...interface{}) {
	a.calls = append(a.calls, fmt.Sprintf(format, args...))
}

func (a *API) failure(method string) error {
	queue := a.failures[method]
	if len(queue) == 0 {
		return nil
	}
	a.failures[method] = queue[1:]
	return queue[0]
}

func (a *API) GetMember(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	a.mu.Lock()
	err := a.failure("GetMember")
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m := a.Member(guildID, userID)
	if m == nil {
		return nil, fmt.Errorf("%w: member %s", utils.ErrNotFound, userID)
	}
	return m, nil
}

func (a *API) GuildRoles(_ context.Context, guildID string) ([]*discordgo.Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("GuildRoles"); err != nil {
		return nil, err
	}
	return slices.Clone(a.roles[guildID]), nil
}

func (a *API) AddRole(_ context.Context, guildID, userID, roleID, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("AddRole"); err != nil {
		return err
	}
	m, ok := a.members[key(guildID, userID)]
	if !ok {
		return fmt.Errorf("%w: member %s", utils.ErrNotFound, userID)
	}
	a.record("AddRole %s %s %s", guildID, userID, roleID)
	if !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (a *API) RemoveRole(_ context.Context, guildID, userID, roleID, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("RemoveRole"); err != nil {
		return err
	}
	m, ok := a.members[key(guildID, userID)]
	if !ok {
		return fmt.Errorf("%w: member %s", utils.ErrNotFound, userID)
	}
	a.record("RemoveRole %s %s %s", guildID, userID, roleID)
	m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	return nil
}

func (a *API) ModifyMember(_ context.Context, guildID, userID string, update utils.MemberUpdate, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("ModifyMember"); err != nil {
		return err
	}
	m, ok := a.members[key(guildID, userID)]
	if !ok {
		return fmt.Errorf("%w: member %s", utils.ErrNotFound, userID)
	}
	a.record("ModifyMember %s %s", guildID, userID)
	if update.Roles != nil {
		m.Roles = slices.Clone(*update.Roles)
	}
	if update.Nick != nil {
		m.Nick = *update.Nick
	}
	if update.Mute != nil {
		m.Mute = *update.Mute
	}
	if update.Deaf != nil {
		m.Deaf = *update.Deaf
	}
	return nil
}

func (a *API) GetBan(_ context.Context, guildID, userID string) (*discordgo.GuildBan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("GetBan"); err != nil {
		return nil, err
	}
	reason, ok := a.bans[key(guildID, userID)]
	if !ok {
		return nil, fmt.Errorf("%w: ban %s", utils.ErrNotFound, userID)
	}
	return &discordgo.GuildBan{Reason: reason, User: &discordgo.User{ID: userID}}, nil
}

func (a *API) Ban(_ context.Context, guildID, userID, reason string, deleteDays int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("Ban"); err != nil {
		return err
	}
	a.record("Ban %s %s %d", guildID, userID, deleteDays)
	a.bans[key(guildID, userID)] = reason
	delete(a.members, key(guildID, userID))
	return nil
}

func (a *API) RemoveBan(_ context.Context, guildID, userID, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("RemoveBan"); err != nil {
		return err
	}
	if _, ok := a.bans[key(guildID, userID)]; !ok {
		return fmt.Errorf("%w: ban %s", utils.ErrNotFound, userID)
	}
	a.record("RemoveBan %s %s", guildID, userID)
	delete(a.bans, key(guildID, userID))
	return nil
}

func (a *API) Kick(_ context.Context, guildID, userID, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("Kick"); err != nil {
		return err
	}
	if _, ok := a.members[key(guildID, userID)]; !ok {
		return fmt.Errorf("%w: member %s", utils.ErrNotFound, userID)
	}
	a.record("Kick %s %s", guildID, userID)
	delete(a.members, key(guildID, userID))
	return nil
}

// ChannelMessages pages through the channel history the way Discord does:
// newest first, strictly older than beforeID when it is set.
func (a *API) ChannelMessages(_ context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("ChannelMessages"); err != nil {
		return nil, err
	}
	msgs := a.messages[channelID]
	start := 0
	if beforeID != "" {
		start = len(msgs)
		for i, m := range msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(msgs))
	return slices.Clone(msgs[start:end]), nil
}

func (a *API) DeleteMessages(_ context.Context, channelID string, messageIDs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("DeleteMessages"); err != nil {
		return err
	}
	if len(messageIDs) == 0 {
		return nil
	}
	a.record("DeleteMessages %s %d", channelID, len(messageIDs))
	a.messages[channelID] = slices.DeleteFunc(a.messages[channelID], func(m *discordgo.Message) bool {
		return slices.Contains(messageIDs, m.ID)
	})
	return nil
}

var _ utils.GuildAPI = (*API)(nil)
