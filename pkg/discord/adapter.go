// Package discord connects the button-flow router to Discord through
// discordgo. Adapter implements dicebutton.ChatAdapter for a single
// component interaction; ClickFromInteraction converts the incoming
// event into the router's click shape.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// Adapter scopes a discordgo session to one interaction event. A nil
// interaction is allowed; Acknowledge and Reply then fail, the
// message-level operations still work. That covers slash-command start
// paths where there is no component interaction yet.
type Adapter struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

var _ dicebutton.ChatAdapter = (*Adapter)(nil)

func NewAdapter(session *discordgo.Session, interaction *discordgo.Interaction) *Adapter {
	return &Adapter{session: session, interaction: interaction}
}

func (a *Adapter) Acknowledge(ctx context.Context) error {
	if a.interaction == nil {
		return fmt.Errorf("acknowledge without an interaction")
	}
	err := a.session.InteractionRespond(a.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("acknowledge interaction: %w", err)
	}
	return nil
}

func (a *Adapter) Reply(ctx context.Context, text string) error {
	if a.interaction == nil {
		return fmt.Errorf("reply without an interaction")
	}
	err := a.session.InteractionRespond(a.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply to interaction: %w", err)
	}
	return nil
}

func (a *Adapter) EditMessage(ctx context.Context, ref record.MessageRef, content string, controls [][]dicebutton.Button) error {
	edit := &discordgo.MessageEdit{
		Channel: formatID(ref.ChannelID),
		ID:      formatID(ref.MessageID),
	}
	if content != "" {
		edit.Content = &content
	}
	if controls != nil {
		components := toComponents(controls)
		edit.Components = &components
	}
	if _, err := a.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", ref, err)
	}
	return nil
}

func (a *Adapter) SendMessage(ctx context.Context, channelID int64, msg dicebutton.Message) (int64, error) {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: toComponents(msg.Controls),
	}
	if msg.Image != nil {
		send.Files = []*discordgo.File{{
			Name:        "roll.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(msg.Image),
		}}
	}
	sent, err := a.session.ChannelMessageSendComplex(formatID(channelID), send, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("send message to channel %d: %w", channelID, err)
	}
	id, err := parseID(sent.ID)
	if err != nil {
		return 0, fmt.Errorf("sent message id: %w", err)
	}
	return id, nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, ref record.MessageRef) error {
	err := a.session.ChannelMessageDelete(formatID(ref.ChannelID), formatID(ref.MessageID), discordgo.WithContext(ctx))
	if err != nil && !isUnknownMessage(err) {
		return fmt.Errorf("delete message %s: %w", ref, err)
	}
	return nil
}

// ClickFromInteraction maps a component interaction event onto the
// router's click shape.
func ClickFromInteraction(i *discordgo.Interaction) (dicebutton.Click, error) {
	if i.Type != discordgo.InteractionMessageComponent || i.Message == nil {
		return dicebutton.Click{}, fmt.Errorf("interaction %s is not a component click", i.ID)
	}
	channelID, err := parseID(i.ChannelID)
	if err != nil {
		return dicebutton.Click{}, fmt.Errorf("channel id: %w", err)
	}
	messageID, err := parseID(i.Message.ID)
	if err != nil {
		return dicebutton.Click{}, fmt.Errorf("message id: %w", err)
	}
	var guildID int64
	if i.GuildID != "" {
		if guildID, err = parseID(i.GuildID); err != nil {
			return dicebutton.Click{}, fmt.Errorf("guild id: %w", err)
		}
	}
	return dicebutton.Click{
		CustomID:       i.MessageComponentData().CustomID,
		Message:        record.MessageRef{ChannelID: channelID, MessageID: messageID},
		GuildID:        guildID,
		Invoker:        invokerName(i),
		MessageContent: i.Message.Content,
		MessageButtons: messageButtons(i.Message),
		Pinned:         i.Message.Pinned,
	}, nil
}

func invokerName(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

func messageButtons(msg *discordgo.Message) []dicebutton.Button {
	var buttons []dicebutton.Button
	for _, component := range msg.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			b, ok := inner.(*discordgo.Button)
			if !ok {
				continue
			}
			buttons = append(buttons, dicebutton.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    fromStyle(b.Style),
				Disabled: b.Disabled,
			})
		}
	}
	return buttons
}

func toComponents(controls [][]dicebutton.Button) []discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(controls))
	for _, row := range controls {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    toStyle(b.Style),
				Disabled: b.Disabled,
			})
		}
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components
}

func toStyle(style dicebutton.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case dicebutton.StyleSecondary:
		return discordgo.SecondaryButton
	case dicebutton.StyleSuccess:
		return discordgo.SuccessButton
	case dicebutton.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func fromStyle(style discordgo.ButtonStyle) dicebutton.ButtonStyle {
	switch style {
	case discordgo.SecondaryButton:
		return dicebutton.StyleSecondary
	case discordgo.SuccessButton:
		return dicebutton.StyleSuccess
	case discordgo.DangerButton:
		return dicebutton.StyleDanger
	default:
		return dicebutton.StylePrimary
	}
}

// isUnknownMessage reports a delete of an already deleted message,
// which is not an error for the router's best-effort cleanup.
func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownMessage
	}
	return false
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(id string) (int64, error) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("snowflake %q: %w", id, err)
	}
	return v, nil
}
