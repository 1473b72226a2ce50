package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecrets は署名シークレットが1つも設定されていない場合のエラー。
var ErrNoSecrets = errors.New("session: at least one secret is required")

// Signer はセッションidをHS256トークンとして署名・検証する。
// 署名には先頭のシークレットを使い、検証は全シークレットを順に試す。
type Signer struct {
	secrets [][]byte
	now     func() time.Time
}

// NewSigner は新しい順に並んだシークレットからSignerを生成する。
func NewSigner(secrets []string) (*Signer, error) {
	s := &Signer{now: time.Now}
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s.secrets = append(s.secrets, []byte(secret))
	}
	if len(s.secrets) == 0 {
		return nil, ErrNoSecrets
	}
	return s, nil
}

// Sign はidをmaxAgeの有効期限付きで署名する。
func (s *Signer) Sign(id string, maxAge time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secrets[0])
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証してidを返す。
func (s *Signer) Verify(tokenStr string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var lastErr error
	for _, secret := range s.secrets {
		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			lastErr = err
			// 署名不一致のときだけ次のシークレットを試す
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				continue
			}
			return "", fmt.Errorf("invalid session token: %w", err)
		}
		if !token.Valid || claims.ID == "" {
			return "", errors.New("invalid session token: missing id")
		}
		return claims.ID, nil
	}
	return "", fmt.Errorf("invalid session token: %w", lastErr)
}
