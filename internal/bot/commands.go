package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/coffee-club/internal/domain/redemption"
	"github.com/Spok95/coffee-club/internal/domain/users"
	"github.com/Spok95/coffee-club/internal/report"
)

const helpText = "Команды:\n" +
	"/verify <id> — проверить подписку по коду из QR\n" +
	"/user <user_id> — найти подписку клиента\n" +
	"/redeem <id> — списать напиток без подтверждения\n" +
	"/ledger <user_id> — выгрузить журнал в Excel\n" +
	"/help — помощь"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	arg := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
		return
	case "verify", "user", "redeem", "ledger":
	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
		return
	}

	if msg.From == nil {
		return
	}
	staff, err := b.staff.RequireStaffByTelegram(ctx, msg.From.ID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.errText(err)))
		return
	}
	if arg == "" {
		b.send(tgbotapi.NewMessage(chatID, "Укажите идентификатор: /"+msg.Command()+" <id>"))
		return
	}

	switch msg.Command() {
	case "verify":
		v, err := b.flow.VerifyByID(ctx, arg)
		b.showVerification(chatID, v, err)
	case "user":
		v, err := b.flow.VerifyByUser(ctx, arg)
		b.showVerification(chatID, v, err)
	case "redeem":
		b.redeem(ctx, chatID, msg.MessageID, arg, staff, nil)
	case "ledger":
		b.sendLedger(ctx, chatID, arg)
	}
}

func (b *Bot) showVerification(chatID int64, v redemption.Verification, err error) {
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.errText(err)))
		return
	}
	s := v.Subscription
	m := tgbotapi.NewMessage(chatID, b.card(s))
	if s.DailyDrinksRemaining > 0 {
		m.ReplyMarkup = redeemKeyboard(s.ID)
	}
	b.send(m)
}

// redeem списывает напиток; ключ привязан к сообщению, поэтому повторное
// нажатие той же кнопки не спишет второй раз.
func (b *Bot) redeem(ctx context.Context, chatID int64, messageID int, subscriptionID string, staff *users.User, editMsgID *int) {
	out, err := b.flow.Redeem(ctx, redemption.Request{
		SubscriptionID: subscriptionID,
		IdempotencyKey: idempotencyKey(chatID, messageID),
		RedeemedBy:     staff.UserID,
	})
	var text string
	if err != nil {
		text = b.errText(err)
	} else {
		text = "✅ Напиток списан.\n\n" + b.card(out.Subscription)
		if out.Replayed {
			text = "Уже списано по этой карточке.\n\n" + b.card(out.Subscription)
		}
	}

	if editMsgID != nil {
		edit := tgbotapi.NewEditMessageText(chatID, *editMsgID, text)
		b.send(edit)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendLedger(ctx context.Context, chatID int64, userID string) {
	v, err := b.flow.VerifyByUser(ctx, userID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.errText(err)))
		return
	}
	rows, err := b.flow.History(ctx, v.Subscription.ID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.errText(err)))
		return
	}
	data, err := report.LedgerXLSX(v.Subscription, rows, b.loc)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, b.errText(err)))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  report.LedgerFileName(userID, b.now().In(b.loc)),
		Bytes: data,
	})
	doc.Caption = "Журнал погашений клиента " + userID
	b.send(doc)
}
