// Package auth はアカウント作成・サインインとベアラートークンの発行・検証を提供する。
package auth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeUser は一般ユーザーのトークンスコープ。
const ScopeUser = "USER"

// Claims はアクセストークンのクレーム。
type Claims struct {
	Scope []string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenIssuer はRS512署名のアクセストークンを発行・検証する。
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	lifetime   time.Duration
	now        func() time.Time
}

// NewTokenIssuer はPEM形式のRSA秘密鍵からTokenIssuerを生成する。
func NewTokenIssuer(privateKeyPEM string, lifetime time.Duration) (*TokenIssuer, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT private key: %w", err)
	}

	return &TokenIssuer{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		lifetime:   lifetime,
		now:        time.Now,
	}, nil
}

// Issue は指定ユーザーのアクセストークンを発行する。
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := t.now()
	claims := Claims{
		Scope: []string{ScopeUser},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS512, claims).SignedString(t.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、件名のユーザーIDを返す。
// 署名不正・期限切れ・アルゴリズム不一致はすべてエラー。
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			return t.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS512.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("invalid token: missing subject")
	}
	return claims.Subject, nil
}
