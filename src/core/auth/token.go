package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL 会话令牌有效期，草稿在这段时间内可以恢复
const SessionTTL = 30 * 24 * time.Hour

// AuthToken 签发和校验会话令牌。会话只用来区分草稿的归属，不代表用户身份。
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
}

func NewAuthToken(secretKey string) (*AuthToken, error) {
	if secretKey == "" {
		return nil, errors.New("secret key cannot be empty")
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       SessionTTL,
	}, nil
}

// NewSessionID 生成新的会话ID
func NewSessionID() string {
	return uuid.NewString()
}

func (at *AuthToken) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"exp":        now.Add(at.ttl).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken 校验令牌并返回其中的会话ID
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if at == nil || at.secretKey == nil {
		return "", errors.New("secret key is not initialized")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return "", errors.New("invalid session_id in claims")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", fmt.Errorf("invalid session_id: %w", err)
	}

	return sessionID, nil
}
