package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// TelegramBot is the subset of the bot API used here, so tests can fake it.
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram forwards staff notifications to an operations chat. Events
// addressed to individual users are ignored.
type Telegram struct {
	bot    TelegramBot
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return NewTelegramWithBot(bot, chatID), nil
}

func NewTelegramWithBot(bot TelegramBot, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Notify(_ context.Context, ev Event) error {
	if ev.Role != RoleAdmin {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("[%s] %s\n%s", ev.Type, ev.Title, ev.Message))
	_, err := t.bot.Send(msg)
	return errors.Wrap(err, "send telegram notification")
}
