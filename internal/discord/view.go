package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// messageView backs one interactive flow with a single Discord message. It
// implements domain.SessionView and domain.SearchView. The first Show call
// sends the message and registers it for reaction routing; the owning
// command handler must call release when the flow ends.
type messageView struct {
	bot        *Bot
	channelID  string
	messageID  string
	authorName string
	authorIcon string
	events     chan domain.InputEvent
}

func (v *messageView) Events() <-chan domain.InputEvent {
	return v.events
}

func (v *messageView) ShowFetching(_ context.Context) error {
	embed := &discordgo.MessageEmbed{
		Color:       colorFetching,
		Description: "Fetching data...",
		Author:      &discordgo.MessageEmbedAuthor{Name: v.authorName, IconURL: v.authorIcon},
	}
	return v.show(embed)
}

func (v *messageView) ShowPage(ctx context.Context, pv domain.PageView, symbols []string) error {
	if err := v.show(pageEmbed(pv, v.authorName, v.authorIcon)); err != nil {
		return err
	}
	return v.offer(symbols)
}

func (v *messageView) ShowNoOutdated(_ context.Context) error {
	return v.show(errorEmbed("You have no outdated applications!", v.authorName, v.authorIcon))
}

func (v *messageView) ShowClosed(_ context.Context) error {
	return v.show(errorEmbed("Watch-List Closed", v.authorName, v.authorIcon))
}

func (v *messageView) ShowExpired(_ context.Context) error {
	return v.show(errorEmbed("Watch-List Session Expired", v.authorName, v.authorIcon))
}

func (v *messageView) ShowResult(_ context.Context, entry domain.CatalogEntry, symbols []string) error {
	if err := v.show(searchResultEmbed(entry)); err != nil {
		return err
	}
	return v.offer(symbols)
}

// Revert removes a rejected reaction so the offered set stays readable.
func (v *messageView) Revert(_ context.Context, ev domain.InputEvent) {
	if v.messageID == "" {
		return
	}
	if err := v.bot.session.MessageReactionRemove(v.channelID, v.messageID, ev.Symbol, ev.Actor); err != nil {
		slog.Warn("Removing rejected reaction failed", "channel_id", v.channelID, "error", err)
	}
}

func (v *messageView) ClearSymbols(_ context.Context) error {
	if v.messageID == "" {
		return nil
	}
	if err := v.bot.session.MessageReactionsRemoveAll(v.channelID, v.messageID); err != nil {
		return fmt.Errorf("clearing reactions: %w", err)
	}
	return nil
}

// RevokeOffer withdraws the bot's own confirm reaction after a timeout.
func (v *messageView) RevokeOffer(_ context.Context) error {
	if v.messageID == "" {
		return nil
	}
	botID := v.bot.session.State.User.ID
	if err := v.bot.session.MessageReactionRemove(v.channelID, v.messageID, domain.SymbolConfirm, botID); err != nil {
		return fmt.Errorf("revoking offer: %w", err)
	}
	return nil
}

func (v *messageView) show(embed *discordgo.MessageEmbed) error {
	if v.messageID == "" {
		msg, err := v.bot.session.ChannelMessageSendEmbed(v.channelID, embed)
		if err != nil {
			return fmt.Errorf("sending view message: %w", err)
		}
		v.messageID = msg.ID
		v.bot.registerView(v)
		return nil
	}
	if _, err := v.bot.session.ChannelMessageEditEmbed(v.channelID, v.messageID, embed); err != nil {
		return fmt.Errorf("editing view message: %w", err)
	}
	return nil
}

func (v *messageView) offer(symbols []string) error {
	for _, symbol := range symbols {
		if err := v.bot.session.MessageReactionAdd(v.channelID, v.messageID, symbol); err != nil {
			return fmt.Errorf("offering symbol %q: %w", symbol, err)
		}
	}
	return nil
}

// normalizeSymbol strips the emoji variation selector Discord appends to
// some unicode reactions, so routed symbols compare equal to the offered
// constants.
func normalizeSymbol(name string) string {
	return strings.TrimSuffix(name, "\ufe0f")
}
