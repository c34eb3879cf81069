package middleware

import (
	"net/http"
	"time"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRateLimitStore хранилище счетчиков: Redis, если клиент есть, иначе память процесса.
func NewRateLimitStore(redisClient *redis.Client, rate time.Duration, limit uint) rateli.Store {
	if redisClient != nil {
		return rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: redisClient,
			Rate:        rate,
			Limit:       limit,
		})
	}
	return rateli.InMemoryStore(&rateli.InMemoryOptions{
		Rate:  rate,
		Limit: limit,
	})
}

// RateLimit ограничивает дорогие вызовы моделей на пользователя.
// Ставится после JWTAuth, без пользователя ключом служит IP.
func RateLimit(store rateli.Store, log *zap.Logger) gin.HandlerFunc {
	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			log.Warn("Rate limit exceeded",
				zap.String("key", rateLimitKey(c)),
				zap.Time("reset_time", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Code:    "rate_limited",
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: rateLimitKey,
	})
}

func rateLimitKey(c *gin.Context) string {
	if userID, ok := UserID(c); ok {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
