package utils

import (
	"github.com/bwmarrin/discordgo"
)

// Responder answers interactions. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SendErrorResponse sends an ephemeral error message.
func SendErrorResponse(s Responder, i *discordgo.InteractionCreate, message string) error {
	return respond(s, i, "❌ "+message, true)
}

// SendPublicResponse sends a message everyone in the channel can see.
func SendPublicResponse(s Responder, i *discordgo.InteractionCreate, message string) error {
	return respond(s, i, message, false)
}

// SendSimpleResponse sends a simple ephemeral message.
func SendSimpleResponse(s Responder, i *discordgo.InteractionCreate, message string) error {
	return respond(s, i, message, true)
}

// SendEmbedResponse sends an ephemeral embed.
func SendEmbedResponse(s Responder, i *discordgo.InteractionCreate, embeds ...*discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: embeds,
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func respond(s Responder, i *discordgo.InteractionCreate, message string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: message}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// SendFollowUp replaces the deferred response of an interaction.
func SendFollowUp(s Responder, i *discordgo.Interaction, message string) error {
	_, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content: &message,
	})
	return err
}

// SendFollowUpError replaces the deferred response with an error message.
func SendFollowUpError(s Responder, i *discordgo.Interaction, message string) error {
	return SendFollowUp(s, i, "❌ "+message)
}

// DeferResponse defers an interaction response, optionally making it ephemeral.
func DeferResponse(s Responder, i *discordgo.InteractionCreate, ephemeral bool) error {
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		response.Data = &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		}
	}
	return s.InteractionRespond(i.Interaction, response)
}
