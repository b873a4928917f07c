package artifact

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/aniwag2/Listen/internal/metrics"
)

// Retention applies the post-delivery cleanup rule. A delivered artifact
// is deleted; an undelivered one stays on disk for manual recovery.
type Retention struct {
	fs      afero.Fs
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRetention creates a retention policy on the given filesystem
func NewRetention(fs afero.Fs, logger *slog.Logger, m *metrics.Metrics) *Retention {
	return &Retention{
		fs:      fs,
		logger:  logger,
		metrics: m,
	}
}

// Dispose removes the artifact when delivery succeeded and retains it
// otherwise. A failed removal leaves the file in place and is reported
// as an error.
func (r *Retention) Dispose(path string, delivered bool) error {
	if !delivered {
		r.metrics.RecordArtifactRetained()
		r.logger.Info("Retaining artifact after failed delivery",
			slog.String("path", path),
		)
		return nil
	}

	if err := r.fs.Remove(path); err != nil {
		r.logger.Error("Failed to delete delivered artifact",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete artifact %s: %w", path, err)
	}

	r.metrics.RecordArtifactDeleted()
	r.logger.Info("Deleted delivered artifact",
		slog.String("path", path),
	)

	return nil
}
