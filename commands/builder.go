package commands

import (
	"admin-bot/commands/defs"
	"admin-bot/model"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns the slash commands available in a guild.
// Mute commands need a mute role and restore needs persistence enabled.
func GenerateCommands(guildCfg model.GuildConfig) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		defs.Kick,
		defs.Ban,
		defs.ForceBan,
		defs.SoftBan,
		defs.TempBan,
		defs.Unban,
		defs.Warn,
		defs.Infraction,
		defs.Reason,
		defs.Roles,
		defs.Clean,
		defs.SystemInfo,
		defs.ReloadConfig,
	}
	if guildCfg.MuteRole != "" {
		cmds = append(cmds, defs.Mute)
	}
	if len(guildCfg.MuteRoles()) > 0 {
		cmds = append(cmds, defs.TempMute, defs.Unmute)
	}
	if guildCfg.Persist != nil {
		cmds = append(cmds, defs.Restore)
	}
	return cmds
}
