package auth

import (
	"context"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/domain/users"
)

var ErrForbidden = apperr.New(apperr.CodeForbidden, "staff capability required")

// StaffCheck: проверка административной возможности. Выполняется до
// обращения к сценарию погашения, не внутри него.
type StaffCheck struct {
	users users.Store
}

func NewStaffCheck(store users.Store) *StaffCheck { return &StaffCheck{users: store} }

func (c *StaffCheck) RequireStaff(ctx context.Context, callerID string) (*users.User, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	u, err := c.users.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !u.CanRedeemForOthers() {
		return nil, ErrForbidden
	}
	return u, nil
}

// IsStaff: то же без ошибки Forbidden, для маршрутов «владелец или сотрудник».
func (c *StaffCheck) IsStaff(ctx context.Context, callerID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	u, err := c.users.Get(ctx, callerID)
	if err != nil {
		return false, err
	}
	return u.CanRedeemForOthers(), nil
}

// RequireStaffByTelegram: то же для консоли бариста в Telegram.
func (c *StaffCheck) RequireStaffByTelegram(ctx context.Context, tgID int64) (*users.User, error) {
	u, err := c.users.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if !u.CanRedeemForOthers() {
		return nil, ErrForbidden
	}
	return u, nil
}
