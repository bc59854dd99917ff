package services

import (
	"context"
	"log/slog"

	"github.com/messmate/messmate_backend/internal/core/domain"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/middleware"
)

// BaseService provides common functionality for all services.
type BaseService struct {
	RoomAuthorizer portssvc.RoomAuthorizerSvc
}

// GetLogger gets the request-scoped logger from context.
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting.
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogWarn logs a warning message with consistent formatting.
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting.
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting.
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// AuthorizeUser checks if a user has the required role for a room through the
// shared authorization gate.
func (s *BaseService) AuthorizeUser(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
	return s.RoomAuthorizer.AuthorizeUserAction(ctx, userID, roomID, requiredRole)
}
