package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshelf/openshelf"
)

// DirectoryLogger is a logging middleware for the tenant directory.
type DirectoryLogger struct {
	logger    *zap.Logger
	directory openshelf.TenantDirectory
}

// NewDirectoryLogger returns a logging service middleware for the tenant
// directory.
func NewDirectoryLogger(log *zap.Logger, d openshelf.TenantDirectory) *DirectoryLogger {
	return &DirectoryLogger{
		logger:    log,
		directory: d,
	}
}

var _ openshelf.TenantDirectory = (*DirectoryLogger)(nil)

func (l *DirectoryLogger) ListMemberships(ctx context.Context, userID uuid.UUID) (ms []openshelf.Membership, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to list memberships", zap.Error(err), dur)
			return
		}
		l.logger.Debug("memberships listed", zap.Int("count", len(ms)), dur)
	}(time.Now())
	return l.directory.ListMemberships(ctx, userID)
}

func (l *DirectoryLogger) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (m *openshelf.Membership, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to get membership", zap.Error(err), dur)
			return
		}
		l.logger.Debug("membership fetched", dur)
	}(time.Now())
	return l.directory.GetMembership(ctx, userID, tenantID)
}
