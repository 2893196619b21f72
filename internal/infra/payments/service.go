package payments

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Service: заглушка платёжного провайдера: оплата всегда проходит.
type Service struct {
	baseURL string
	seq     atomic.Int64
	now     func() time.Time
}

func NewService(baseURL string) *Service {
	return &Service{baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// Authorize «списывает» оплату подписки и возвращает номер платежа.
func (s *Service) Authorize(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("payments: empty user id")
	}
	n := s.seq.Add(1)
	return fmt.Sprintf("mock-%d-%d", s.now().Unix(), n), nil
}

// ReceiptURL строит ссылку на квитанцию; в тестовом варианте это наш же HTTP-сервер.
func (s *Service) ReceiptURL(reference string) string {
	return fmt.Sprintf("%s/payments/receipt?ref=%s", s.baseURL, reference)
}
