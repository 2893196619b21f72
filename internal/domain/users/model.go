package users

import (
	"context"
	"time"
)

type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleStaff || r == RoleAdmin }

// User: сотрудник кофейни. Обычные клиенты в этой таблице не хранятся:
// их идентичность приходит из токена.
type User struct {
	UserID     string
	Role       Role
	TelegramID *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanRedeemForOthers: административная возможность: подтверждать
// погашения и смотреть чужие подписки.
func (u *User) CanRedeemForOthers() bool {
	return u != nil && u.Role.Valid()
}

type Store interface {
	Get(ctx context.Context, userID string) (*User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*User, error)
	Grant(ctx context.Context, userID string, role Role, telegramID *int64) (*User, error)
	Revoke(ctx context.Context, userID string) error
}
