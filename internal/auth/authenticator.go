package auth

import (
	"fmt"
	"strconv"

	apperrors "chat_queue/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator сопоставляет access токен с идентификатором пользователя.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate проверяет HS256 access токен и возвращает user_id.
func (a *Authenticator) Authenticate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", apperrors.ErrNotAuthorized
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", apperrors.Wrap(apperrors.CodeNotAuthorized, "invalid or expired token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.ErrNotAuthorized
	}
	userID := claimString(claims["user_id"])
	if userID == "" {
		userID = claimString(claims["id"])
	}
	if userID == "" {
		return "", apperrors.New(apperrors.CodeNotAuthorized, "token carries no user id")
	}
	return userID, nil
}

// claimString принимает строковые и числовые id (числа из JSON приходят как float64).
func claimString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
