package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docinsight-backend/internal/http/response"
	"github.com/yungbote/docinsight-backend/internal/platform/ctxutil"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

// ContextUserKey is the gin context key holding the authenticated email.
const ContextUserKey = "user_email"

type TokenParser interface {
	ParseToken(token string) (string, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens TokenParser
}

func NewAuthMiddleware(log *logger.Logger, tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), tokens: tokens}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		email, err := am.tokens.ParseToken(tokenString)
		if err != nil || email == "" {
			am.log.Debug("Rejected token", "error", err)
			c.Header("WWW-Authenticate", "Bearer")
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("could not validate credentials"))
			c.Abort()
			return
		}
		ctx := c.Request.Context()
		if td := ctxutil.GetTraceData(ctx); td != nil {
			td.UserID = email
		} else {
			ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{UserID: email})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Set(ContextUserKey, email)
		c.Next()
	}
}

// UserEmail returns the email set by RequireAuth.
func UserEmail(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
