package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// guildCommands tracks the commands registered in each guild. A refresh
// replaces the guild's entry.
type guildCommands struct {
	mu     sync.RWMutex
	guilds map[string][]*discordgo.ApplicationCommand
}

func (g *guildCommands) set(guildID string, cmds []*discordgo.ApplicationCommand) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.guilds == nil {
		g.guilds = make(map[string][]*discordgo.ApplicationCommand)
	}
	g.guilds[guildID] = cmds
}

func (g *guildCommands) count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, cmds := range g.guilds {
		n += len(cmds)
	}
	return n
}
