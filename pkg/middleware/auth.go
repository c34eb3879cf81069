package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// UserIDKey ключ gin.Context, под которым лежит идентификатор владельца.
const UserIDKey = "user_id"

// Claims клеймы access токена. Subject содержит идентификатор пользователя.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseToken проверяет подпись HMAC и срок действия, возвращает subject.
func ParseToken(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is invalid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("subject missing in token")
	}
	return claims.Subject, nil
}

// JWTAuth пропускает только запросы с валидным Bearer токеном.
func JWTAuth(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "Missing or malformed Authorization header"})
			return
		}

		userID, err := ParseToken(parts[1], secret)
		if err != nil {
			log.Warn("Access token verification failed", zap.Error(err))
			message := "Token is invalid"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: message})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID достает идентификатор владельца, записанный JWTAuth.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// IssueToken подписывает access токен HS256 для subject.
func IssueToken(subject, secret string, ttl time.Duration, roles ...string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is empty")
	}
	now := time.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
