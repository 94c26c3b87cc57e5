package middleware

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/pkg/httpcontext"
)

// JWTAuth verifies an HMAC-signed bearer token and stores its subject as the request owner.
// The owner is taken from the "sub" claim, falling back to "user_id".
func JWTAuth(secret, issuer string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			if issuer != "" && !claims.VerifyIssuer(issuer, true) {
				logger.Warn("jwt issuer mismatch")
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			ownerID := ownerFromClaims(claims)
			if ownerID == "" {
				logger.Warn("jwt token without subject")
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			ctx.SetUserValue(httpcontext.UserValueOwnerID, ownerID)

			next(ctx)
		}
	}
}

func ownerFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
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
