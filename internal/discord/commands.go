package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
	"github.com/KevinIssaDev/AppMonitor/internal/metrics"
	"github.com/KevinIssaDev/AppMonitor/internal/platform/correlation"
	"github.com/KevinIssaDev/AppMonitor/internal/watchlist"
)

type command struct {
	name        string
	aliases     []string
	description string
	usage       string
	handler     func(b *Bot, ctx context.Context, m *discordgo.MessageCreate, args []string)
}

var commands = []command{
	{
		name:        "watch-list",
		aliases:     []string{"watch", "watchlist", "wl"},
		description: "Your personal watch-list, can be sorted by sort_keys: 'name', 'version' or 'bundle_id'. Or 'o' for only outdated applications.",
		usage:       ".watch *<sort_key>",
		handler:     (*Bot).handleWatch,
	},
	{
		name:        "add",
		aliases:     []string{"a"},
		description: "Adds an application to your watch-list",
		usage:       ".add <bundle identifier> *<country>",
		handler:     (*Bot).handleAdd,
	},
	{
		name:        "update",
		aliases:     []string{"u"},
		description: "Updates an application's version in your watch-list to the latest version",
		usage:       ".update <bundle identifier>",
		handler:     (*Bot).handleUpdate,
	},
	{
		name:        "remove",
		aliases:     []string{"r"},
		description: "Removes an application from your watch-list",
		usage:       ".remove <bundle identifier>",
		handler:     (*Bot).handleRemove,
	},
	{
		name:        "search",
		aliases:     []string{"s", "find"},
		description: "Search the App Store for an application",
		usage:       ".search <name> *<country>",
		handler:     (*Bot).handleSearch,
	},
	{
		name:        "help",
		aliases:     []string{"?"},
		description: "Returns a list of all commands and a brief description",
		usage:       ".help",
	},
	{
		name:        "more",
		aliases:     []string{"man"},
		description: "Returns information about a command",
		usage:       ".more <command>",
	},
	{
		name:        "uptime",
		aliases:     []string{"up"},
		description: "How long the bot has been online for since its last reboot",
		usage:       ".uptime",
		handler:     (*Bot).handleUptime,
	},
	{
		name:        "invite",
		aliases:     []string{"inv"},
		description: "A link for you to invite the bot to your server with!",
		usage:       ".invite",
		handler:     (*Bot).handleInvite,
	},
	{
		name:        "source",
		aliases:     []string{"src", "donate"},
		description: "Information about the bot & author",
		usage:       ".source",
		handler:     (*Bot).handleSource,
	},
}

// help and more reference the commands table themselves, so their handlers
// are wired up here to avoid an initialization cycle.
func init() {
	for i := range commands {
		switch commands[i].name {
		case "help":
			commands[i].handler = (*Bot).handleHelp
		case "more":
			commands[i].handler = (*Bot).handleMore
		}
	}
}

func findCommand(name string) *command {
	for i := range commands {
		if commands[i].name == name || slices.Contains(commands[i].aliases, name) {
			return &commands[i]
		}
	}
	return nil
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	body, ok := b.stripPrefix(m.Content)
	if !ok {
		return
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}

	cmd := findCommand(strings.ToLower(fields[0]))
	if cmd == nil {
		return
	}

	ctx := correlation.WithID(b.runCtx, correlation.NewID())
	go func() {
		slog.InfoContext(ctx, "Command received", "command", cmd.name, "user", m.Author.ID)
		cmd.handler(b, ctx, m, fields[1:])
	}()
}

// stripPrefix accepts the configured prefix or a leading bot mention.
func (b *Bot) stripPrefix(content string) (string, bool) {
	if rest, ok := strings.CutPrefix(content, b.opts.CommandPrefix); ok {
		return rest, true
	}
	botID := b.session.State.User.ID
	for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if rest, ok := strings.CutPrefix(content, mention); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func (b *Bot) handleAdd(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 || len(args) > domain.MaxBatchSize {
		metrics.CommandsTotal.WithLabelValues("add", "user_error").Inc()
		return
	}
	user := m.Author.ID

	if err := b.manager.EnsureCollection(ctx, user); err != nil {
		b.replyError(ctx, m, err)
		return
	}

	added, err := b.manager.AddBatch(ctx, user, args)
	if err != nil {
		b.replyError(ctx, m, err)
		return
	}

	metrics.CommandsTotal.WithLabelValues("add", "ok").Inc()
	b.reply(ctx, m, batchAddedEmbed(added, m.Author.Username))
}

func (b *Bot) handleRemove(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		metrics.CommandsTotal.WithLabelValues("remove", "user_error").Inc()
		return
	}

	rec, err := b.manager.Remove(ctx, m.Author.ID, args[0])
	if err != nil {
		b.replyError(ctx, m, err)
		return
	}

	metrics.CommandsTotal.WithLabelValues("remove", "ok").Inc()
	b.reply(ctx, m, removedEmbed(*rec, m.Author.Username))
}

func (b *Bot) handleUpdate(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		metrics.CommandsTotal.WithLabelValues("update", "user_error").Inc()
		return
	}

	rec, err := b.manager.RefreshOne(ctx, m.Author.ID, args[0])
	if err != nil {
		b.replyError(ctx, m, err)
		return
	}

	metrics.CommandsTotal.WithLabelValues("update", "ok").Inc()
	b.reply(ctx, m, refreshedEmbed(*rec, m.Author.Username))
}

func (b *Bot) handleWatch(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	user := m.Author.ID
	if !b.limiter(user).Allow() {
		metrics.CommandsTotal.WithLabelValues("watch", "cooldown").Inc()
		b.replyText(ctx, m, "Hold on! You're on cooldown.")
		return
	}

	if err := b.manager.EnsureCollection(ctx, user); err != nil {
		b.replyError(ctx, m, err)
		return
	}

	records, err := b.manager.Records(ctx, user)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		b.replyError(ctx, m, err)
		return
	}
	if len(records) == 0 {
		metrics.CommandsTotal.WithLabelValues("watch", "user_error").Inc()
		b.reply(ctx, m, errorEmbed("You have not added any applications!", m.Author.Username, m.Author.AvatarURL("")))
		return
	}

	sortKey := ""
	if len(args) > 0 {
		sortKey = strings.ToLower(args[0])
	}

	view := b.newView(m.ChannelID, m.Author.Username, m.Author.AvatarURL(""))
	defer b.releaseView(view)

	session := watchlist.NewSession(user, records, sortKey, view, b.catalog, b.opts.SessionTimeout, b.clock)
	if err := session.Run(ctx); err != nil {
		metrics.CommandsTotal.WithLabelValues("watch", "error").Inc()
		slog.ErrorContext(ctx, "Watch-list session failed", "user", user, "error", err)
		return
	}
	metrics.CommandsTotal.WithLabelValues("watch", "ok").Inc()
}

func (b *Bot) handleSearch(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		metrics.CommandsTotal.WithLabelValues("search", "user_error").Inc()
		return
	}
	user := m.Author.ID

	region := domain.DefaultRegion
	if len(args) > 1 {
		region = b.manager.ResolveRegion(ctx, args[1])
	}

	if err := b.manager.EnsureCollection(ctx, user); err != nil {
		b.replyError(ctx, m, err)
		return
	}

	view := b.newView(m.ChannelID, m.Author.Username, m.Author.AvatarURL(""))
	defer b.releaseView(view)

	flow := watchlist.NewSearchFlow(user, view, b.catalog, b.manager, b.opts.SearchTimeout, b.clock)
	added, err := flow.Run(ctx, args[0], region)
	if err != nil {
		b.replyError(ctx, m, err)
		return
	}

	metrics.CommandsTotal.WithLabelValues("search", "ok").Inc()
	if added != nil {
		b.reply(ctx, m, addedEmbed(*added, m.Author.Username))
	}
}

func (b *Bot) handleHelp(ctx context.Context, m *discordgo.MessageCreate, _ []string) {
	embed := &discordgo.MessageEmbed{
		Color:       colorHelp,
		Description: fmt.Sprintf("For more information, refer to [this](%s).", docsURL),
		Author:      &discordgo.MessageEmbedAuthor{Name: "Help"},
		Footer:      &discordgo.MessageEmbedFooter{Text: "Use \".more <command>\" for the syntax of a command."},
	}
	for _, cmd := range commands {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  cmd.name,
			Value: cmd.description,
		})
	}
	metrics.CommandsTotal.WithLabelValues("help", "ok").Inc()
	b.reply(ctx, m, embed)
}

func (b *Bot) handleMore(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		metrics.CommandsTotal.WithLabelValues("more", "user_error").Inc()
		return
	}
	cmd := findCommand(strings.ToLower(args[0]))
	if cmd == nil {
		metrics.CommandsTotal.WithLabelValues("more", "user_error").Inc()
		return
	}

	embed := &discordgo.MessageEmbed{
		Color:       colorHelp,
		Description: fmt.Sprintf("For more information, refer to [this](%s).", docsURL),
		Author:      &discordgo.MessageEmbedAuthor{Name: cmd.name},
		Footer:      &discordgo.MessageEmbedFooter{Text: cmd.description},
	}
	if len(cmd.aliases) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Alias", Value: strings.Join(cmd.aliases, "/"), Inline: true,
		})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "Usage", Value: cmd.usage, Inline: true,
	})

	metrics.CommandsTotal.WithLabelValues("more", "ok").Inc()
	b.reply(ctx, m, embed)
}

func (b *Bot) handleUptime(ctx context.Context, m *discordgo.MessageCreate, _ []string) {
	metrics.CommandsTotal.WithLabelValues("uptime", "ok").Inc()
	b.replyText(ctx, m, b.clock.Since(b.startedAt).Round(time.Second).String())
}

func (b *Bot) handleInvite(ctx context.Context, m *discordgo.MessageCreate, _ []string) {
	metrics.CommandsTotal.WithLabelValues("invite", "ok").Inc()
	b.replyText(ctx, m, inviteURL)
}

func (b *Bot) handleSource(ctx context.Context, m *discordgo.MessageCreate, _ []string) {
	embed := &discordgo.MessageEmbed{
		Color:       0x3498db,
		Description: "This bot was coded in Go by Kevin Issa.",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Donate", Value: "[You can donate to me here ❤](https://www.paypal.me/issa741)", Inline: true},
			{Name: "Twitter", Value: "[Follow me on Twitter! 😄](https://twitter.com/KevinIssaDev)", Inline: true},
		},
	}
	metrics.CommandsTotal.WithLabelValues("source", "ok").Inc()
	b.reply(ctx, m, embed)
}

func (b *Bot) reply(ctx context.Context, m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		slog.ErrorContext(ctx, "Sending reply failed", "channel_id", m.ChannelID, "error", err)
	}
}

func (b *Bot) replyText(ctx context.Context, m *discordgo.MessageCreate, text string) {
	if _, err := b.session.ChannelMessageSend(m.ChannelID, text); err != nil {
		slog.ErrorContext(ctx, "Sending reply failed", "channel_id", m.ChannelID, "error", err)
	}
}

// replyError translates core errors into user-facing status embeds.
func (b *Bot) replyError(ctx context.Context, m *discordgo.MessageCreate, err error) {
	var description string
	result := "user_error"
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		description = "You've exceeded the maximum amount of applications!"
	case errors.Is(err, domain.ErrDuplicateEntry):
		description = "You've already added that application!"
	case errors.Is(err, domain.ErrNotFound):
		description = "Application not found!"
	case errors.Is(err, domain.ErrBatchTooLarge):
		description = "That's too many applications for one command!"
	case errors.Is(err, domain.ErrLookupFailed):
		description = "The App Store is not responding right now, try again later."
		result = "error"
	default:
		description = "Something went wrong, try again later."
		result = "error"
		slog.ErrorContext(ctx, "Command failed", "error", err)
	}

	metrics.CommandsTotal.WithLabelValues("any", result).Inc()
	b.reply(ctx, m, errorEmbed(description, m.Author.Username, m.Author.AvatarURL("")))
}
