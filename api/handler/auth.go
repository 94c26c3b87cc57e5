package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/usecase"
)

const hookSecretHeader = "X-Hook-Secret"

// TriggerDispatcher routes a trigger to its registered handler.
type TriggerDispatcher interface {
	Dispatch(ctx context.Context, trigger usecase.Trigger) error
}

// AuthHookHandler receives post-authentication callbacks from the identity provider.
type AuthHookHandler struct {
	baseHandler
	dispatcher TriggerDispatcher
	secret     string
}

func NewAuthHookHandler(dispatcher TriggerDispatcher, secret string, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHookHandler {
	return &AuthHookHandler{
		baseHandler: newBaseHandler(adapter, logger),
		dispatcher:  dispatcher,
		secret:      secret,
	}
}

// Enabled reports whether a shared secret is configured; the route is not mounted otherwise.
func (h *AuthHookHandler) Enabled() bool {
	return h != nil && h.secret != ""
}

// @Summary Post-authentication hook
// @Tags hooks
// @Router /api/v1/hooks/post-authentication [post]
func (h *AuthHookHandler) PostAuthentication(ctx *fasthttp.RequestCtx) {
	provided := ctx.Request.Header.Peek(hookSecretHeader)
	if !h.Enabled() || subtle.ConstantTimeCompare(provided, []byte(h.secret)) != 1 {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.FromError(domain.ErrUnauthorized))
		return
	}

	var req transport.AuthEventRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, domain.ErrInvalidPayload.Message)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.dispatcher.Dispatch(stdCtx, usecase.AuthSignIn{Event: req.Event()}); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusAccepted, req)
}
