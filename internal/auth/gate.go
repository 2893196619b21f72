package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Spok95/coffee-club/internal/apperr"
)

const minSecretLen = 32

// authEnv: сырые значения окружения до проверки.
type authEnv struct {
	Secret   string        `env:"COFFEE_AUTH_HMAC_SECRET"`
	Issuer   string        `env:"COFFEE_AUTH_ISSUER" envDefault:"coffee-club"`
	Audience string        `env:"COFFEE_AUTH_AUDIENCE" envDefault:"coffee-club-api"`
	TTL      time.Duration `env:"COFFEE_AUTH_TOKEN_TTL" envDefault:"24h"`
}

type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

var ErrUnauthorized = apperr.New(apperr.CodeUnauthorized, "unauthorized")

// LoadConfigFromEnv читает параметры проверки токенов из окружения.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw authEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	cfg := Config{
		Secret:   []byte(strings.TrimSpace(raw.Secret)),
		Issuer:   strings.TrimSpace(raw.Issuer),
		Audience: strings.TrimSpace(raw.Audience),
		TTL:      raw.TTL,
		Now:      now,
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.Secret) < minSecretLen {
		return fmt.Errorf("COFFEE_AUTH_HMAC_SECRET must be at least %d bytes", minSecretLen)
	}
	if c.Issuer == "" || c.Audience == "" {
		return errors.New("auth issuer and audience are required")
	}
	if c.TTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	return nil
}

// Gate проверяет bearer-токены и выдаёт идентичность вызывающего.
type Gate struct {
	cfg Config
}

func NewGate(cfg Config) (*Gate, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Gate{cfg: cfg}, nil
}

// Authenticate возвращает callerID из sub проверенного токена.
func (g *Gate) Authenticate(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return g.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.cfg.Issuer),
		jwt.WithAudience(g.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.cfg.Now),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnauthorized, "invalid token", err)
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", apperr.New(apperr.CodeUnauthorized, "token has no subject")
	}
	return sub, nil
}

// Issue подписывает токен для userID. Нужен CLI и тестам;
// в проде токены выпускает внешний провайдер входа с тем же секретом.
func (g *Gate) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	now := g.cfg.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    g.cfg.Issuer,
		Audience:  jwt.ClaimStrings{g.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.cfg.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.cfg.Secret)
}

// BearerToken достаёт токен из заголовка Authorization.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
