package artifact

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/aniwag2/Listen/internal/audio"
	"github.com/aniwag2/Listen/internal/metrics"
)

// maxNameCollisions bounds the suffix probe when a recording lands on a
// timestamp that is already taken.
const maxNameCollisions = 99

// Config contains artifact storage configuration
type Config struct {
	Directory string
}

// Writer persists completed recordings as WAV files. Existing files are
// never overwritten; colliding names get a numeric suffix instead.
type Writer struct {
	config  Config
	fs      afero.Fs
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWriter creates an artifact writer on the given filesystem
func NewWriter(cfg Config, fs afero.Fs, logger *slog.Logger, m *metrics.Metrics) *Writer {
	return &Writer{
		config:  cfg,
		fs:      fs,
		logger:  logger,
		metrics: m,
	}
}

// Write encodes the samples as WAV and persists them under a name
// derived from the completion time. It returns the artifact path, or an
// empty path when there is nothing to persist.
func (w *Writer) Write(samples []int16, sampleRate int, completedAt time.Time) (string, error) {
	if len(samples) == 0 {
		w.logger.Warn("Skipping artifact write for empty recording")
		return "", nil
	}

	if err := w.fs.MkdirAll(w.config.Directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory %s: %w", w.config.Directory, err)
	}

	path, err := w.resolvePath(completedAt)
	if err != nil {
		return "", err
	}

	data, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode recording: %w", err)
	}

	if err := afero.WriteFile(w.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	w.metrics.RecordArtifactWritten(len(data))
	w.logger.Info("Artifact written",
		slog.String("path", path),
		slog.Int("size_bytes", len(data)),
		slog.Float64("duration_seconds", audio.DurationOfSamples(len(samples), sampleRate).Seconds()),
	)

	return path, nil
}

// resolvePath picks the first unused name for the recording timestamp.
func (w *Writer) resolvePath(completedAt time.Time) (string, error) {
	base := "recording_" + completedAt.Format("20060102_150405")

	candidate := filepath.Join(w.config.Directory, base+".wav")
	exists, err := afero.Exists(w.fs, candidate)
	if err != nil {
		return "", fmt.Errorf("failed to probe artifact name %s: %w", candidate, err)
	}
	if !exists {
		return candidate, nil
	}

	for i := 1; i <= maxNameCollisions; i++ {
		candidate = filepath.Join(w.config.Directory, fmt.Sprintf("%s_%02d.wav", base, i))
		exists, err := afero.Exists(w.fs, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to probe artifact name %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to find an unused artifact name for %s", base)
}
