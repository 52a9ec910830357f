package admin

import (
	"context"
	"fmt"
	"strings"

	"admin-bot/bot"
	"admin-bot/model"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	searchLimit      = 100
	searchPerPage    = 10
	searchPagePrefix = "infraction_page"
	// Custom IDs are limited to 100 characters.
	maxQueryInButton = 60
)

func HandleInfraction(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("command", "infraction"), zap.String("guild_id", i.GuildID))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sub, opts := commandOptions(i)
	switch sub {
	case "info":
		id, _ := opts.int("id")
		inf, err := b.Moderation.Info(ctx, i.GuildID, id)
		if err != nil {
			logger.Info("infraction lookup failed", zap.Int64("infraction_id", id), zap.Error(err))
			respondError(s, i, logger, errorMessage(err))
			return
		}
		if err := utils.SendEmbedResponse(s, i, infractionEmbed(inf)); err != nil {
			logger.Warn("failed to respond", zap.Error(err))
		}
	case "search":
		if err := utils.DeferResponse(s, i, true); err != nil {
			logger.Warn("failed to defer interaction", zap.Error(err))
			return
		}
		showSearchPage(ctx, s, i.Interaction, b, logger, opts.string("query"), 1)
	default:
		respondError(s, i, logger, "未知的子命令。")
	}
}

// HandleInfractionPage turns the page of an infraction search result.
func HandleInfractionPage(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("component", searchPagePrefix), zap.String("guild_id", i.GuildID))
	page, args, ok := utils.ParsePaginationID(i.MessageComponentData().CustomID, searchPagePrefix, 1)
	if !ok {
		logger.Warn("invalid pagination id", zap.String("custom_id", i.MessageComponentData().CustomID))
		return
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		logger.Warn("failed to defer pagination interaction", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	showSearchPage(ctx, s, i.Interaction, b, logger, args[0], page)
}

func showSearchPage(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction, b *bot.Bot, logger *zap.Logger, query string, page int) {
	if r := []rune(query); len(r) > maxQueryInButton {
		query = string(r[:maxQueryInButton])
	}
	results, err := b.Moderation.Search(ctx, i.GuildID, query, searchLimit)
	if err != nil {
		logger.Error("infraction search failed", zap.Error(err))
		if err := utils.SendFollowUpError(s, i, errorMessage(err)); err != nil {
			logger.Warn("failed to send follow-up error", zap.Error(err))
		}
		return
	}

	embed, components := searchPage(results, query, page)
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	}); err != nil {
		logger.Warn("failed to edit search results", zap.Error(err))
	}
}

func searchPage(results []model.Infraction, query string, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	start, end, page, totalPages := utils.PageBounds(len(results), page, searchPerPage)
	title := "处罚记录"
	if query != "" {
		title = fmt.Sprintf("处罚记录: %s", query)
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: "没有找到匹配的处罚记录。",
		Color:       0x5865F2,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("第 %d 页，共 %d 页", page, totalPages),
		},
	}
	if len(results) > 0 {
		lines := make([]string, 0, end-start)
		for _, inf := range results[start:end] {
			lines = append(lines, infractionLine(inf))
		}
		embed.Description = strings.Join(lines, "\n")
	}
	components := utils.CreatePaginationComponents(page, totalPages, searchPagePrefix, query)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return embed, components
}

func HandleReason(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("command", "reason"), zap.String("guild_id", i.GuildID))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_, opts := commandOptions(i)
	id, _ := opts.int("id")
	reason := opts.string("reason")
	if err := b.Moderation.Reason(ctx, i.GuildID, id, actorID(i), reason); err != nil {
		logger.Info("reason update failed", zap.Int64("infraction_id", id), zap.Error(err))
		respondError(s, i, logger, errorMessage(err))
		return
	}
	respondSimple(s, i, logger, fmt.Sprintf("✅ 已更新处罚 #%d 的原因。", id))
}

func HandleRoles(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("command", "roles"), zap.String("guild_id", i.GuildID))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	roles, err := b.Moderation.Roles(ctx, i.GuildID)
	if err != nil {
		logger.Error("failed to list roles", zap.Error(err))
		respondError(s, i, logger, errorMessage(err))
		return
	}
	var sb strings.Builder
	for _, r := range roles {
		line := fmt.Sprintf("`%s` %s\n", r.ID, r.Name)
		if sb.Len()+len(line) > 1900 {
			sb.WriteString("…")
			break
		}
		sb.WriteString(line)
	}
	respondSimple(s, i, logger, sb.String())
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger, msg string) {
	if err := utils.SendErrorResponse(s, i, msg); err != nil {
		logger.Warn("failed to send error response", zap.Error(err))
	}
}

func respondSimple(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger, msg string) {
	if err := utils.SendSimpleResponse(s, i, msg); err != nil {
		logger.Warn("failed to respond", zap.Error(err))
	}
}
