// Package external provides default implementations of the collaborator
// services the coordinator depends on: authentication, plan-based feature
// gating, audit logging and user notification.
package external

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// TokenAuthenticator resolves bearer tokens from a static table.
type TokenAuthenticator struct {
	tokens map[string]string // token -> user ID
}

// Ensure TokenAuthenticator implements domain.Authenticator.
var _ domain.Authenticator = (*TokenAuthenticator)(nil)

// NewTokenAuthenticator creates an authenticator from cfg.
func NewTokenAuthenticator(cfg domain.AuthConfig) *TokenAuthenticator {
	tokens := make(map[string]string, len(cfg.Tokens))
	for token, user := range cfg.Tokens {
		tokens[token] = user
	}
	return &TokenAuthenticator{tokens: tokens}
}

// Authenticate returns the user ID for token.
func (a *TokenAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrMissingCredentials
	}
	for known, user := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return user, nil
		}
	}
	return "", domain.ErrInvalidCredentials
}

// AllowAllGate grants every feature to every project.
type AllowAllGate struct{}

// Ensure AllowAllGate implements domain.FeatureGate.
var _ domain.FeatureGate = AllowAllGate{}

// CheckFeatureAccess always allows.
func (AllowAllGate) CheckFeatureAccess(context.Context, string, string) (bool, error) {
	return true, nil
}

// LogAuditor writes audit entries to a logger.
type LogAuditor struct {
	logger *slog.Logger
}

// Ensure LogAuditor implements domain.AuditLogger.
var _ domain.AuditLogger = (*LogAuditor)(nil)

// NewLogAuditor creates an auditor that logs under the "audit" component.
func NewLogAuditor(logger *slog.Logger) *LogAuditor {
	return &LogAuditor{logger: logger.With("component", "audit")}
}

// LogAction records entry.
func (a *LogAuditor) LogAction(ctx context.Context, entry domain.AuditEntry) error {
	a.logger.InfoContext(ctx, "audit",
		"actor", entry.ActorID,
		"action", entry.Action,
		"entity", entry.EntityKind,
		"id", entry.EntityID,
		"changes", entry.Changes,
	)
	return nil
}

// LogNotifier delivers notifications by logging them.
type LogNotifier struct {
	logger *slog.Logger
}

// Ensure LogNotifier implements domain.Notifier.
var _ domain.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that logs under the "notify" component.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// NotifyUser records note.
func (n *LogNotifier) NotifyUser(ctx context.Context, note domain.Notification) error {
	n.logger.InfoContext(ctx, "notification",
		"user", note.UserID,
		"message", note.Message,
		"link", note.Link,
	)
	return nil
}
