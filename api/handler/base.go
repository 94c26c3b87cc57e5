package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	appLogger "github.com/fastygo/todo/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data))
}

func (h baseHandler) respondError(stdCtx context.Context, ctx *fasthttp.RequestCtx, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLogger.WithRequestID(stdCtx, h.logger).Error("request failed", zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.FromError(err))
}

func (h baseHandler) respondInvalid(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, http.StatusBadRequest, transport.NewDomainError(domain.ErrCodeInvalid, message))
}

// ownerID returns the authenticated owner or writes 401.
func (h baseHandler) ownerID(ctx *fasthttp.RequestCtx) string {
	ownerID := httpcontext.OwnerID(ctx)
	if ownerID == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.NewDomainError(domain.ErrCodeUnauthorized, "missing owner identity"))
	}
	return ownerID
}

func statusFor(err error) int {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
