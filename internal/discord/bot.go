// Package discord adapts the watch-list core to the Discord transport:
// command parsing, embed rendering, reaction routing, and update DMs.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
	"github.com/KevinIssaDev/AppMonitor/internal/watchlist"
)

const (
	// watchCooldown throttles the watch command per user.
	watchCooldown = 5 * time.Second

	inviteURL = "https://discordapp.com/oauth2/authorize?client_id=593029590205726735&scope=bot&permissions=8"
	docsURL   = "https://kevinissa.dev/appmonitor.html"
)

// Options carries the adapter's tunables from the configuration.
type Options struct {
	CommandPrefix  string
	SessionTimeout time.Duration
	SearchTimeout  time.Duration
}

// Bot owns the Discord session, routes commands to the watch-list core, and
// delivers drift notifications as direct messages.
type Bot struct {
	session *discordgo.Session
	manager *watchlist.Manager
	catalog domain.CatalogClient
	opts    Options
	clock   clockwork.Clock

	startedAt time.Time

	mu       sync.Mutex
	views    map[string]*messageView // message ID -> active view
	limiters map[string]*rate.Limiter

	runCtx context.Context
	cancel context.CancelFunc
}

func NewBot(token string, manager *watchlist.Manager, catalog domain.CatalogClient, opts Options, clock clockwork.Clock) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions

	bot := &Bot{
		session:  session,
		manager:  manager,
		catalog:  catalog,
		opts:     opts,
		clock:    clock,
		views:    make(map[string]*messageView),
		limiters: make(map[string]*rate.Limiter),
	}
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onReactionAdd)
	return bot, nil
}

// Start opens the gateway connection. Interactive flows started afterwards
// are bounded by ctx.
func (b *Bot) Start(ctx context.Context) error {
	b.runCtx, b.cancel = context.WithCancel(ctx)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	b.startedAt = b.clock.Now()
	slog.Info("Discord session open", "bot_user", b.session.State.User.Username)
	return nil
}

// Stop cancels in-flight interactive flows and closes the gateway.
func (b *Bot) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	return nil
}

// NotifyUpdate implements domain.NotificationSink by DMing the user.
func (b *Bot) NotifyUpdate(_ context.Context, user string, app domain.TrackedApplication, latestVersion string) error {
	channel, err := b.session.UserChannelCreate(user)
	if err != nil {
		return fmt.Errorf("opening DM channel for %q: %w", user, err)
	}
	if _, err := b.session.ChannelMessageSendEmbed(channel.ID, updateEmbed(app, latestVersion)); err != nil {
		return fmt.Errorf("sending update DM to %q: %w", user, err)
	}
	return nil
}

func (b *Bot) newView(channelID, authorName, authorIcon string) *messageView {
	return &messageView{
		bot:        b,
		channelID:  channelID,
		authorName: authorName,
		authorIcon: authorIcon,
		events:     make(chan domain.InputEvent, 16),
	}
}

func (b *Bot) registerView(v *messageView) {
	b.mu.Lock()
	b.views[v.messageID] = v
	b.mu.Unlock()
}

func (b *Bot) releaseView(v *messageView) {
	if v.messageID == "" {
		return
	}
	b.mu.Lock()
	delete(b.views, v.messageID)
	b.mu.Unlock()
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == b.session.State.User.ID {
		return
	}

	b.mu.Lock()
	view, ok := b.views[r.MessageID]
	b.mu.Unlock()
	if !ok {
		return
	}

	ev := domain.InputEvent{Symbol: normalizeSymbol(r.Emoji.Name), Actor: r.UserID}
	select {
	case view.events <- ev:
	default:
		slog.Warn("Dropping reaction event, view channel full", "message_id", r.MessageID)
	}
}

// limiter returns the per-user cooldown limiter, creating it on first use.
func (b *Bot) limiter(user string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	lim, ok := b.limiters[user]
	if !ok {
		lim = rate.NewLimiter(rate.Every(watchCooldown), 1)
		b.limiters[user] = lim
	}
	return lim
}
