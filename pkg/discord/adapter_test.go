package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

func componentInteraction() *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "1",
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "100",
		GuildID:   "200",
		Member: &discordgo.Member{
			User: &discordgo.User{Username: "alice"},
		},
		Data: discordgo.MessageComponentInteractionData{
			CustomID: "hold_reroll\x1ereroll\x1e00000000-0000-0000-0000-000000000000",
		},
		Message: &discordgo.Message{
			ID:      "300",
			Content: "current text",
			Pinned:  true,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.Button{CustomID: "a", Label: "Reroll", Style: discordgo.SuccessButton},
					&discordgo.Button{CustomID: "b", Label: "Clear", Style: discordgo.DangerButton, Disabled: true},
				}},
			},
		},
	}
}

func TestClickFromInteraction(t *testing.T) {
	click, err := ClickFromInteraction(componentInteraction())
	require.NoError(t, err)

	assert.Equal(t, "hold_reroll\x1ereroll\x1e00000000-0000-0000-0000-000000000000", click.CustomID)
	assert.Equal(t, record.MessageRef{ChannelID: 100, MessageID: 300}, click.Message)
	assert.Equal(t, int64(200), click.GuildID)
	assert.Equal(t, "alice", click.Invoker)
	assert.Equal(t, "current text", click.MessageContent)
	assert.True(t, click.Pinned)

	require.Len(t, click.MessageButtons, 2)
	assert.Equal(t, dicebutton.Button{CustomID: "a", Label: "Reroll", Style: dicebutton.StyleSuccess}, click.MessageButtons[0])
	assert.True(t, click.MessageButtons[1].Disabled)
}

func TestClickFromInteraction_DirectMessage(t *testing.T) {
	i := componentInteraction()
	i.GuildID = ""
	i.Member = nil
	i.User = &discordgo.User{Username: "bob"}

	click, err := ClickFromInteraction(i)
	require.NoError(t, err)
	assert.Zero(t, click.GuildID)
	assert.Equal(t, "bob", click.Invoker)
}

func TestClickFromInteraction_NotAComponentClick(t *testing.T) {
	i := componentInteraction()
	i.Type = discordgo.InteractionApplicationCommand
	i.Message = nil

	_, err := ClickFromInteraction(i)
	assert.Error(t, err)
}

func TestToComponents(t *testing.T) {
	controls := [][]dicebutton.Button{
		dicebutton.Row(
			dicebutton.Button{CustomID: "x", Label: "Roll", Style: dicebutton.StyleSuccess},
			dicebutton.Button{CustomID: "y", Label: "Back", Style: dicebutton.StyleSecondary, Disabled: true},
		),
	}

	components := toComponents(controls)

	require.Len(t, components, 1)
	row := components[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 2)

	first := row.Components[0].(discordgo.Button)
	assert.Equal(t, "x", first.CustomID)
	assert.Equal(t, discordgo.SuccessButton, first.Style)

	second := row.Components[1].(discordgo.Button)
	assert.Equal(t, discordgo.SecondaryButton, second.Style)
	assert.True(t, second.Disabled)
}

func TestStyleRoundTrip(t *testing.T) {
	for _, style := range []dicebutton.ButtonStyle{
		dicebutton.StylePrimary,
		dicebutton.StyleSecondary,
		dicebutton.StyleSuccess,
		dicebutton.StyleDanger,
	} {
		assert.Equal(t, style, fromStyle(toStyle(style)))
	}
}

func TestIsUnknownMessage(t *testing.T) {
	assert.True(t, isUnknownMessage(&discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}))
	assert.False(t, isUnknownMessage(&discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess},
	}))
	assert.False(t, isUnknownMessage(assert.AnError))
}
