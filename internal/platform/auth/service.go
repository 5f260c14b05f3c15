package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

type Service struct {
	store    AccountStore
	secret   []byte
	tokenTTL time.Duration
}

// secret は設定ファイル経由で注入する（コードへの直書きは禁止）
func NewService(db *sql.DB, secret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{store: NewStore(db), secret: secret, tokenTTL: tokenTTL}
}

type AuthService interface {
	Login(ctx context.Context, tenantID uint64, username, password string) (string, error)
	Register(ctx context.Context, tenantID uint64, username, password, role string) error
	Delete(ctx context.Context, tenantID uint64, username string) error
	ChangePassword(ctx context.Context, tenantID uint64, username, newPassword string) error
}

func (s *Service) Login(ctx context.Context, tenantID uint64, username, password string) (string, error) {
	acct, err := s.store.Get(ctx, tenantID, username)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", errors.New("authentication failed")
	}
	if acct.IsDisabled {
		return "", errors.New("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("authentication failed")
	}

	// tenant_id をクレームに含める。middleware 側で path の tenant と突き合わせる
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       acct.Username,
		"tenant_id": acct.TenantID,
		"role":      acct.Role,
		"exp":       time.Now().Add(s.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *Service) Register(ctx context.Context, tenantID uint64, username, password, role string) error {
	exists, err := s.store.Get(ctx, tenantID, username)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		TenantID:     tenantID,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsDisabled:   false,
	})
}

func (s *Service) Delete(ctx context.Context, tenantID uint64, username string) error {
	n, err := s.store.Delete(ctx, tenantID, username)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, tenantID uint64, username, newPassword string) error {
	acct, err := s.store.Get(ctx, tenantID, username)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	updated, err := s.store.UpdatePassword(ctx, tenantID, username, string(hash))
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}
