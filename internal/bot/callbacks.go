package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	id, ok := parseRedeem(cb.Data)
	if !ok || cb.Message == nil || cb.From == nil {
		b.answerCallback(cb, "Неизвестное действие", false)
		return
	}
	staff, err := b.staff.RequireStaffByTelegram(ctx, cb.From.ID)
	if err != nil {
		b.answerCallback(cb, b.errText(err), true)
		return
	}

	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	b.redeem(ctx, chatID, msgID, id, staff, &msgID)
	b.answerCallback(cb, "", false)
}
