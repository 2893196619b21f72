// Package bot реализует консоль бариста в Telegram: проверку подписки
// по id из QR-кода и списание напитка кнопкой.
package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/coffee-club/internal/domain/redemption"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
	"github.com/Spok95/coffee-club/internal/domain/users"
)

// API: часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Flow interface {
	VerifyByID(ctx context.Context, subscriptionID string) (redemption.Verification, error)
	VerifyByUser(ctx context.Context, userID string) (redemption.Verification, error)
	Redeem(ctx context.Context, req redemption.Request) (redemption.Outcome, error)
	History(ctx context.Context, subscriptionID string) ([]subscriptions.Redemption, error)
}

type Staff interface {
	RequireStaffByTelegram(ctx context.Context, tgID int64) (*users.User, error)
}

type Bot struct {
	api   API
	log   *slog.Logger
	flow  Flow
	staff Staff
	loc   *time.Location
	now   func() time.Time
}

func New(api API, log *slog.Logger, flow Flow, staff Staff, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.UTC
	}
	return &Bot{api: api, log: log, flow: flow, staff: staff, loc: loc, now: time.Now}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.onUpdate(ctx, upd)
		}
	}
}

func (b *Bot) onUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil:
		b.send(tgbotapi.NewMessage(upd.Message.Chat.ID, "Отправьте /verify <id> из QR-кода. Справка: /help"))
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	if _, err := b.api.Request(resp); err != nil {
		b.log.Error("callback answer failed", "err", err)
	}
}
