package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/tiv91/intimshopbot/internal/chat"
	"github.com/tiv91/intimshopbot/internal/handler"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

// Telegram allows about 30 outgoing messages per second per bot.
const messagesPerSecond = 30

// Messenger implements chat.Messenger on top of the Bot API.
type Messenger struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *logger.Logger
}

func NewMessenger(bot *tgbotapi.BotAPI, log *logger.Logger) *Messenger {
	return &Messenger{
		bot:     bot,
		limiter: rate.NewLimiter(messagesPerSecond, messagesPerSecond),
		logger:  log.WithComponent("telegram_messenger"),
	}
}

func (m *Messenger) SendText(ctx context.Context, msg chat.Message) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if markup, ok := m.markup(msg.Keyboard); ok {
		out.ReplyMarkup = markup
	}

	if _, err := m.bot.Send(out); err != nil {
		return fmt.Errorf("send message to %d: %w", msg.ChatID, err)
	}
	return nil
}

// SendPhoto lets Telegram fetch the photo by URL.
func (m *Messenger) SendPhoto(ctx context.Context, photo chat.Photo) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	out := tgbotapi.NewPhoto(photo.ChatID, tgbotapi.FileURL(photo.URL))
	out.Caption = photo.Caption
	if photo.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if markup, ok := m.markup(photo.Keyboard); ok {
		out.ReplyMarkup = markup
	}

	if _, err := m.bot.Send(out); err != nil {
		return fmt.Errorf("send photo to %d: %w", photo.ChatID, err)
	}
	return nil
}

func (m *Messenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	if _, err := m.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// InlineKeyboard converts a chat keyboard into Telegram markup. Telegram
// rejects the whole message if any button carries more than
// handler.MaxCallbackData bytes, so such buttons are dropped and counted.
func InlineKeyboard(kb chat.Keyboard) (tgbotapi.InlineKeyboardMarkup, int) {
	dropped := 0
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if len(b.Data) > handler.MaxCallbackData {
				dropped++
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		if len(buttons) > 0 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), dropped
}

func (m *Messenger) markup(kb chat.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	markup, dropped := InlineKeyboard(kb)
	if dropped > 0 {
		m.logger.Warn("Dropped buttons with oversized callback data", "dropped", dropped)
	}
	return markup, len(markup.InlineKeyboard) > 0
}
