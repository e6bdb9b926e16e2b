// Package telegram connects the bot to the Telegram Bot API by long polling.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	"github.com/tiv91/intimshopbot/internal/chat"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

// Dispatcher handles one decoded event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev chat.Event) error
}

type Config struct {
	Token string
	// Endpoint overrides tgbotapi.APIEndpoint; it must contain two %s verbs.
	Endpoint             string
	PollTimeout          int
	MaxConcurrentUpdates int64
	Debug                bool
	HTTPClient           *http.Client
}

// NewBotAPI authenticates against Telegram (getMe).
func NewBotAPI(cfg Config) (*tgbotapi.BotAPI, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// Gateway feeds polled updates to a Dispatcher. Each active user gets one
// worker that handles their events in arrival order; workers of different
// users run concurrently, at most MaxConcurrentUpdates at a time.
type Gateway struct {
	bot         *tgbotapi.BotAPI
	dispatcher  Dispatcher
	sem         *semaphore.Weighted
	mu          sync.Mutex
	mailboxes   map[int64][]chat.Event
	maxInFlight int64
	pollTimeout int
	logger      *logger.Logger
}

func NewGateway(bot *tgbotapi.BotAPI, dispatcher Dispatcher, cfg Config, log *logger.Logger) *Gateway {
	maxInFlight := cfg.MaxConcurrentUpdates
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	return &Gateway{
		bot:         bot,
		dispatcher:  dispatcher,
		sem:         semaphore.NewWeighted(maxInFlight),
		mailboxes:   make(map[int64][]chat.Event),
		maxInFlight: maxInFlight,
		pollTimeout: pollTimeout,
		logger:      log.WithComponent("telegram_gateway"),
	}
}

// Run polls updates until ctx is cancelled, then waits for in-flight events.
func (g *Gateway) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = g.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := g.bot.GetUpdatesChan(u)
	g.logger.Info("Polling for updates", "bot", g.bot.Self.UserName, "max_in_flight", g.maxInFlight)

	g.consume(ctx, updates)

	g.bot.StopReceivingUpdates()
	g.logger.Info("Stopped polling, waiting for in-flight updates")
	if err := g.sem.Acquire(context.Background(), g.maxInFlight); err != nil {
		return err
	}
	g.sem.Release(g.maxInFlight)
	return nil
}

func (g *Gateway) consume(ctx context.Context, updates <-chan tgbotapi.Update) {
	// In-flight events finish even after shutdown starts.
	handleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := ToEvent(update)
			if !ok {
				g.logger.Debug("Skipping unsupported update", "update_id", update.UpdateID)
				continue
			}
			if !g.enqueue(ctx, handleCtx, ev) {
				return
			}
		}
	}
}

// enqueue appends ev to its user's mailbox, starting a worker when the user
// has none. It reports false once ctx is cancelled.
func (g *Gateway) enqueue(ctx, handleCtx context.Context, ev chat.Event) bool {
	g.mu.Lock()
	if queue, active := g.mailboxes[ev.UserID]; active {
		g.mailboxes[ev.UserID] = append(queue, ev)
		g.mu.Unlock()
		return true
	}
	g.mailboxes[ev.UserID] = []chat.Event{}
	g.mu.Unlock()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		g.mu.Lock()
		delete(g.mailboxes, ev.UserID)
		g.mu.Unlock()
		return false
	}
	go g.drain(handleCtx, ev)
	return true
}

// drain handles first and then everything queued behind it for the same user.
func (g *Gateway) drain(ctx context.Context, first chat.Event) {
	defer g.sem.Release(1)

	userID := first.UserID
	ev := first
	for {
		// Failures are already logged and counted by the dispatcher.
		_ = g.dispatcher.Dispatch(ctx, ev)

		g.mu.Lock()
		queue := g.mailboxes[userID]
		if len(queue) == 0 {
			delete(g.mailboxes, userID)
			g.mu.Unlock()
			return
		}
		ev = queue[0]
		g.mailboxes[userID] = queue[1:]
		g.mu.Unlock()
	}
}

// ToEvent converts an update into a chat event. Updates other than
// messages and callback queries are not supported.
func ToEvent(update tgbotapi.Update) (chat.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			UpdateID:   update.UpdateID,
			Kind:       chat.KindCallback,
			UserID:     q.From.ID,
			ChatID:     q.From.ID,
			Data:       q.Data,
			CallbackID: q.ID,
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
		}
		return ev, true

	case update.Message != nil:
		m := update.Message
		if m.From == nil || m.Chat == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			UpdateID: update.UpdateID,
			UserID:   m.From.ID,
			ChatID:   m.Chat.ID,
			Text:     m.Text,
		}
		switch {
		case m.IsCommand():
			ev.Kind = chat.KindCommand
			ev.Command = m.Command()
		case m.Text != "":
			ev.Kind = chat.KindText
		default:
			return chat.Event{}, false
		}
		return ev, true
	}
	return chat.Event{}, false
}
