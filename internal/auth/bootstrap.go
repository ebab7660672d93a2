package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
)

// EnsureAdmin creates the admin account if it does not exist. When password
// is empty a random one is generated and logged once.
func EnsureAdmin(ctx context.Context, store *Store, username, password string, logger *zap.Logger) (*User, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := store.GetByUsername(ctx, username)
	if err == nil {
		if u.Role != RoleAdmin {
			logger.Warn("bootstrap admin account exists without admin role", zap.String("username", username))
		}
		return u, nil
	}
	if !apperr.IsKind(err, apperr.ErrNotFound) {
		return nil, err
	}

	generated := password == ""
	if generated {
		if password, err = RandomPassword(12); err != nil {
			return nil, err
		}
	}

	u, err = store.Create(ctx, username, password, RoleAdmin)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn("created admin account with generated password",
			zap.String("username", username),
			zap.String("password", password))
	} else {
		logger.Info("created admin account", zap.String("username", username))
	}
	return u, nil
}
