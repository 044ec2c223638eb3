package notify

import (
	"context"
	"fmt"
	"strconv"

	domainNotify "repguard/internal/domain/notify"

	"gopkg.in/telebot.v3"
)

// TelegramNotifier delivers in-app notifications through a Telegram bot.
// The recipient is the client's chat id, stored on the client record.
// A bot send is acknowledged synchronously, so success reports delivered.
type TelegramNotifier struct {
	bot *telebot.Bot
}

func NewTelegramNotifier(bot *telebot.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) Send(ctx context.Context, msg domainNotify.Notification) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	chatID, err := strconv.ParseInt(msg.Recipient, 10, 64)
	if err != nil {
		return false, fmt.Errorf("telegram recipient %q is not a chat id: %w", msg.Recipient, err)
	}
	_, err = n.bot.Send(telebot.ChatID(chatID), Render(msg), &telebot.SendOptions{ParseMode: telebot.ModeDefault})
	if err != nil {
		return false, fmt.Errorf("telegram send failed: %w", err)
	}
	return true, nil
}
