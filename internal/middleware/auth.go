package middleware

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/api/transport"
	"github.com/openhouse/marketing-stats/domain"
)

// SchedulerSubject is the subject the scheduler puts in its tokens.
const SchedulerSubject = "stats-scheduler"

// ServiceAuth accepts only HS256 tokens signed with the privileged service key.
// Without a key nothing can be verified, so the route answers 503.
func ServiceAuth(secret string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if secret == "" {
				writeError(ctx, fasthttp.StatusServiceUnavailable, domain.ErrBackendNotConfigured)
				return
			}

			tokenString := extractToken(ctx)
			if tokenString == "" {
				writeError(ctx, fasthttp.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid || claims.ExpiresAt == nil || claims.Subject != SchedulerSubject {
				logger.Warn("invalid scheduler token", zap.Error(err))
				writeError(ctx, fasthttp.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}

			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

func writeError(ctx *fasthttp.RequestCtx, status int, err *domain.Error) {
	body, _ := json.Marshal(transport.NewError(string(err.Code), err.Message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
