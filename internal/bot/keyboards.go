package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const cbRedeem = "redeem:"

func redeemKeyboard(subscriptionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("☕ Списать напиток", cbRedeem+subscriptionID),
		),
	)
}

// parseRedeem разбирает callback "redeem:<subscriptionID>".
func parseRedeem(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, cbRedeem)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
