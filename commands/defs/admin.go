package defs

import "github.com/bwmarrin/discordgo"

var (
	userOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "目标用户",
		Required:    true,
	}
	userIDOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "user_id",
		Description: "目标用户 ID",
		Required:    true,
	}
	durationOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: "时长，例如 30m、2h、1d12h",
		Required:    true,
	}
	reasonOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "原因",
		Required:    false,
	}
	sizeOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "size",
		Description: "最多检查的消息数量 (默认 25)",
		Required:    false,
		MinValue:    &minCleanSize,
		MaxValue:    10000,
	}
)

var minCleanSize = 1.0

func localized(cn, tw string) *map[discordgo.Locale]string {
	return &map[discordgo.Locale]string{
		discordgo.ChineseCN: cn,
		discordgo.ChineseTW: tw,
	}
}

var Mute = &discordgo.ApplicationCommand{
	Name:                     "mute",
	Description:              "Mute a member until unmuted",
	DescriptionLocalizations: localized("禁言成员直到手动解除", "禁言成員直到手動解除"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, reasonOption},
}

var TempMute = &discordgo.ApplicationCommand{
	Name:                     "tempmute",
	Description:              "Mute a member for a duration",
	DescriptionLocalizations: localized("限时禁言成员", "限時禁言成員"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, durationOption, reasonOption},
}

var Unmute = &discordgo.ApplicationCommand{
	Name:                     "unmute",
	Description:              "Lift a member's mute",
	DescriptionLocalizations: localized("解除成员禁言", "解除成員禁言"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, reasonOption},
}

var Kick = &discordgo.ApplicationCommand{
	Name:                     "kick",
	Description:              "Kick a member",
	DescriptionLocalizations: localized("踢出成员", "踢出成員"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, reasonOption},
}

var Ban = &discordgo.ApplicationCommand{
	Name:                     "ban",
	Description:              "Ban a member",
	DescriptionLocalizations: localized("封禁成员", "封禁成員"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, reasonOption},
}

var ForceBan = &discordgo.ApplicationCommand{
	Name:                     "forceban",
	Description:              "Ban a user ID that may not be in the server",
	DescriptionLocalizations: localized("按 ID 封禁用户 (无需在服务器内)", "按 ID 封禁用戶 (無需在伺服器內)"),
	Options:                  []*discordgo.ApplicationCommandOption{userIDOption, reasonOption},
}

var SoftBan = &discordgo.ApplicationCommand{
	Name:                     "softban",
	Description:              "Ban and unban a member to delete their recent messages",
	DescriptionLocalizations: localized("封禁后立即解封以删除近期消息", "封禁後立即解封以刪除近期訊息"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, reasonOption},
}

var TempBan = &discordgo.ApplicationCommand{
	Name:                     "tempban",
	Description:              "Ban a member for a duration",
	DescriptionLocalizations: localized("限时封禁成员", "限時封禁成員"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, durationOption, reasonOption},
}

var Unban = &discordgo.ApplicationCommand{
	Name:                     "unban",
	Description:              "Lift a ban",
	DescriptionLocalizations: localized("解除封禁", "解除封禁"),
	Options:                  []*discordgo.ApplicationCommandOption{userIDOption, reasonOption},
}

var Warn = &discordgo.ApplicationCommand{
	Name:                     "warn",
	Description:              "Warn a member",
	DescriptionLocalizations: localized("警告成员", "警告成員"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption, reasonOption},
}

var Infraction = &discordgo.ApplicationCommand{
	Name:                     "infraction",
	Description:              "Look up infractions",
	DescriptionLocalizations: localized("查询处罚记录", "查詢處罰記錄"),
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "info",
			Description: "查看单条处罚记录",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "处罚 ID",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "search",
			Description: "按 ID 或原因搜索处罚记录",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "处罚 ID、用户 ID 或原因关键字",
					Required:    false,
				},
			},
		},
	},
}

var Reason = &discordgo.ApplicationCommand{
	Name:                     "reason",
	Description:              "Set the reason of an infraction",
	DescriptionLocalizations: localized("修改处罚原因", "修改處罰原因"),
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "id",
			Description: "处罚 ID",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "新的原因",
			Required:    true,
		},
	},
}

var Roles = &discordgo.ApplicationCommand{
	Name:                     "roles",
	Description:              "List the server's roles and their IDs",
	DescriptionLocalizations: localized("列出服务器身份组及其 ID", "列出伺服器身份組及其 ID"),
}

var Restore = &discordgo.ApplicationCommand{
	Name:                     "restore",
	Description:              "Restore a member's saved roles, nickname and voice state",
	DescriptionLocalizations: localized("恢复成员保存的身份组与昵称", "恢復成員保存的身份組與暱稱"),
	Options:                  []*discordgo.ApplicationCommandOption{userOption},
}

var Clean = &discordgo.ApplicationCommand{
	Name:                     "clean",
	Description:              "Bulk delete recent messages in this channel",
	DescriptionLocalizations: localized("批量删除本频道的近期消息", "批量刪除本頻道的近期訊息"),
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "all",
			Description: "删除所有消息",
			Options:     []*discordgo.ApplicationCommandOption{sizeOption},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "bots",
			Description: "只删除机器人的消息",
			Options:     []*discordgo.ApplicationCommandOption{sizeOption},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "user",
			Description: "只删除指定用户的消息",
			Options:     []*discordgo.ApplicationCommandOption{userOption, sizeOption},
		},
	},
}

var SystemInfo = &discordgo.ApplicationCommand{
	Name:        "system-info",
	Description: "Display bot and system status information",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "系统信息",
		discordgo.ChineseTW: "系統信息",
	},
	DescriptionLocalizations: localized("显示机器人和系统的状态信息", "顯示機器人和系統的狀態信息"),
}

var ReloadConfig = &discordgo.ApplicationCommand{
	Name:        "reload-config",
	Description: "Reload bot configuration file (developers only)",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "重载配置",
		discordgo.ChineseTW: "重載配置",
	},
	DescriptionLocalizations: localized("重新加载机器人配置文件 (仅限开发者)", "重新加載機器人配置文件 (僅限開發者)"),
}
