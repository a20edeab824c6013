package auth

import (
	"net/http"
	"strings"

	"chat_queue/internal/response"
	apperrors "chat_queue/pkg/errors"

	"github.com/gin-gonic/gin"
)

const ContextUserID = "userID"

// Middleware проверяет валидность access токена. Токен берётся из заголовка
// Authorization, а для websocket-подключений также из параметра token.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    string(apperrors.CodeNotAuthorized),
				Message: "Требуется авторизация",
			})
			return
		}

		userID, err := a.Authenticate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    string(apperrors.CodeNotAuthorized),
				Message: "Неверный или просроченный токен",
			})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
