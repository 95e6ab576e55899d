package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/functions/internal/repositories"
)

// TokenDirectory resolves users to their current push token.
type TokenDirectory struct {
	users  repositories.UserRepository
	maxAge time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// NewTokenDirectory creates a TokenDirectory. Tokens not refreshed within
// maxAgeDays are treated as absent even before the sweep clears them; a
// non-positive value disables that check.
func NewTokenDirectory(users repositories.UserRepository, maxAgeDays int, log *slog.Logger) *TokenDirectory {
	return &TokenDirectory{
		users:  users,
		maxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		now:    time.Now,
		log:    log,
	}
}

// Resolve returns the delivery token of userID. A missing user or token is
// reported as ok=false without error; only store failures return an error.
func (d *TokenDirectory) Resolve(ctx context.Context, userID string) (string, bool, error) {
	user, err := d.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve token of %s: %w", userID, err)
	}
	if user.FCMToken == "" {
		return "", false, nil
	}
	if d.maxAge > 0 && user.FCMTokenUpdatedAt != nil && user.FCMTokenUpdatedAt.Before(d.now().Add(-d.maxAge)) {
		d.log.Debug("token_stale", "user_id", userID, "updated_at", user.FCMTokenUpdatedAt)
		return "", false, nil
	}
	return user.FCMToken, true, nil
}

// Forget clears the token of userID, e.g. after the transport reported it
// as unregistered.
func (d *TokenDirectory) Forget(ctx context.Context, userID string) error {
	if err := d.users.ClearToken(ctx, userID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	return nil
}

// SweepExpired clears tokens last refreshed more than olderThanDays ago and
// returns how many users were updated. The user records themselves are kept.
func (d *TokenDirectory) SweepExpired(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("sweep expired tokens: olderThanDays must be positive, got %d", olderThanDays)
	}
	cutoff := d.now().AddDate(0, 0, -olderThanDays)
	n, err := d.users.ClearTokensUpdatedBefore(ctx, cutoff, repositories.MaxWritesPerCommit)
	if err != nil {
		return 0, err
	}
	d.log.Info("expired_tokens_cleared", "count", n, "cutoff", cutoff)
	return n, nil
}
