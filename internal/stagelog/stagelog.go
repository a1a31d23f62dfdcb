// Package stagelog builds the per-stage loggers. Every stage writes the
// same timestamped, stage-tagged lines to the console and to an append-only
// log file under the configured log directory.
package stagelog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger for one stage. The file sink is opened with O_APPEND
// and is never truncated by the pipeline; rotation is an operational
// concern. The returned closer flushes and closes the file sink.
func New(stage, logDir, runID string) (*zap.Logger, func(), error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(logDir, stage+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zapcore.InfoLevel),
		zapcore.NewCore(enc, zapcore.AddSync(file), zapcore.InfoLevel),
	)

	logger := zap.New(core).Named(stage).With(zap.String("run_id", runID))

	closer := func() {
		_ = logger.Sync()
		_ = file.Close()
	}
	return logger, closer, nil
}
