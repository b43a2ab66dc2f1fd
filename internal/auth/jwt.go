// Package auth はJWTによるステートレス認証とアカウント登録・ログインを提供する。
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/necrock/readingtracker/internal/clock"
)

// TokenTTL は発行するトークンの有効期間。
const TokenTTL = time.Hour

// MinSigningKeyBytes はHS256の署名鍵に要求する最小バイト数（256bit）。
const MinSigningKeyBytes = 32

// ErrInvalidToken はトークンの形式・署名・有効期限のいずれかが不正であることを表す。
var ErrInvalidToken = errors.New("invalid token")

// DecodeSigningKey はbase64エンコードされた署名鍵をデコードする。
func DecodeSigningKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("signing key is not valid base64: %w", err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSigningKeyBytes, len(key))
	}
	return key, nil
}

// TokenService はHS256のJWTを発行・検証する。
type TokenService struct {
	key   []byte
	clock clock.Clock
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(key []byte, clk clock.Clock) *TokenService {
	return &TokenService{key: key, clock: clk}
}

// Issue はusernameをsubjectとするトークンを発行する。
func (s *TokenService) Issue(username string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証してsubject（ユーザー名）を返す。
// 検証に失敗した場合はErrInvalidTokenをラップして返す。
func (s *TokenService) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) {
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
