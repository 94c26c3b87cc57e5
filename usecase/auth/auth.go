package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/usecase"
)

const signInSubject = "User Sign-In Notification"

// UseCase announces successful sign-ins on the notification topic.
type UseCase struct {
	notifier usecase.Notifier
	topic    string
	logger   *zap.Logger
}

func New(n usecase.Notifier, topic string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		notifier: n,
		topic:    topic,
		logger:   logger,
	}
}

// SignedIn publishes the sign-in notice. A failed publish never fails the sign-in.
func (uc *UseCase) SignedIn(ctx context.Context, event domain.AuthEvent) error {
	if strings.TrimSpace(event.Username) == "" {
		return domain.ErrInvalidPayload
	}
	message := fmt.Sprintf("User %s has successfully signed in. Email: %s", event.Username, event.Email())
	usecase.NotifyBestEffort(ctx, uc.notifier, uc.logger, uc.topic, signInSubject, message)
	uc.logger.Info("sign-in recorded", zap.String("username", event.Username))
	return nil
}
