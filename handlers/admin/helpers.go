package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"admin-bot/model"
	"admin-bot/moderation"
	"admin-bot/utils"
	"admin-bot/utils/database/infractions"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

// commandOptions returns the options of the command, or of its subcommand
// together with the subcommand's name.
func commandOptions(i *discordgo.InteractionCreate) (string, options) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 1 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Options[0].Name, optionMap(data.Options[0].Options)
	}
	return "", optionMap(data.Options)
}

func (o options) string(name string) string {
	if opt, ok := o[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (o options) int(name string) (int64, bool) {
	if opt, ok := o[name]; ok {
		return opt.IntValue(), true
	}
	return 0, false
}

// userID reads a user option, falling back to a raw ID string option.
func (o options) userID(s *discordgo.Session) string {
	if opt, ok := o["user"]; ok {
		if v, ok := opt.Value.(string); ok {
			return v
		}
		if u := opt.UserValue(s); u != nil {
			return u.ID
		}
	}
	return strings.Trim(o.string("user_id"), "<@!>")
}

func actorID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func target(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) moderation.Target {
	return moderation.Target{
		GuildID: i.GuildID,
		UserID:  opts.userID(s),
		ActorID: actorID(i),
		Reason:  opts.string("reason"),
	}
}

// errorMessage turns a moderation error into a reply for the moderator.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrInvalidUser):
		return "找不到该用户。"
	case errors.Is(err, moderation.ErrMuteNotSetup):
		return "此服务器未配置禁言身份组。"
	case errors.Is(err, moderation.ErrAlreadyMuted):
		return "该用户已被禁言。"
	case errors.Is(err, moderation.ErrNotMuted):
		return "该用户未被禁言。"
	case errors.Is(err, moderation.ErrNotBanned):
		return "该用户未被封禁。"
	case errors.Is(err, moderation.ErrInvalidDuration):
		return "时长必须大于零。"
	case errors.Is(err, moderation.ErrInvalidSize):
		return fmt.Sprintf("数量必须在 1 到 %d 之间。", moderation.MaxCleanSize)
	case errors.Is(err, moderation.ErrCleanRunning):
		return "本频道已有清理任务在运行，请稍后再试。"
	case errors.Is(err, infractions.ErrNotFound):
		return "找不到该处罚记录。"
	case errors.Is(err, infractions.ErrNotOwner):
		return "只能修改自己创建的处罚记录。"
	case errors.Is(err, utils.ErrForbidden):
		return "机器人没有执行此操作的权限。"
	default:
		return "操作失败，请稍后再试。"
	}
}

func infractionLine(inf model.Infraction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`#%d` **%s** <@%s>", inf.ID, inf.Type, inf.UserID)
	if inf.ActorID.Valid {
		fmt.Fprintf(&b, " by <@%s>", inf.ActorID.String)
	}
	b.WriteString(" " + humanize.Time(inf.Created()))
	if inf.Reason.Valid {
		b.WriteString(": " + truncate(inf.Reason.String, 80))
	}
	return b.String()
}

func infractionEmbed(inf *model.Infraction) *discordgo.MessageEmbed {
	status := "已结束"
	if inf.Active {
		status = "生效中"
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("处罚 #%d", inf.ID),
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "类型", Value: string(inf.Type), Inline: true},
			{Name: "用户", Value: "<@" + inf.UserID + ">", Inline: true},
			{Name: "状态", Value: status, Inline: true},
		},
		Timestamp: inf.Created().Format(time.RFC3339),
	}
	if inf.ActorID.Valid {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "执行者", Value: "<@" + inf.ActorID.String + ">", Inline: true})
	}
	if expires, ok := inf.Expiry(); ok {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "到期",
			Value:  fmt.Sprintf("<t:%d:F> (%s)", expires.Unix(), humanize.Time(expires)),
			Inline: true,
		})
	}
	if inf.Reason.Valid {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "原因", Value: truncate(inf.Reason.String, 1024)})
	}
	return embed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
