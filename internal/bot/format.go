package bot

import (
	"fmt"
	"strings"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
)

func (b *Bot) card(s *subscriptions.Subscription) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Подписка %s\n", s.ID)
	fmt.Fprintf(&sb, "Клиент: %s\n", s.UserID)
	fmt.Fprintf(&sb, "Осталось сегодня: %d из %d\n", s.DailyDrinksRemaining, subscriptions.DailyDrinks)
	fmt.Fprintf(&sb, "Квота обновлена: %s", s.LastResetDate.In(b.loc).Format("02.01.2006 15:04"))
	return sb.String()
}

// errText: ответ сотруднику по коду ошибки.
func (b *Bot) errText(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		return "Подписка не найдена."
	case apperr.CodeQuotaExhausted:
		return "Лимит на сегодня исчерпан."
	case apperr.CodeForbidden, apperr.CodeUnauthorized:
		return "Доступ запрещён."
	case apperr.CodeInvalid:
		return "Некорректный запрос."
	default:
		b.log.Error("staff console failed", "err", err)
		return "Ошибка, попробуйте позже."
	}
}

func idempotencyKey(chatID int64, messageID int) string {
	return fmt.Sprintf("tg:%d:%d", chatID, messageID)
}
