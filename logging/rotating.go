package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const logFilePrefix = "vaccibook-"

var numberedLogFileRegex = regexp.MustCompile(`^` + logFilePrefix + `\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger writes to one log file per ISO week, splitting files that grow past maxFileSize
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
	cleanupOn   atomic.Bool
	closeOnce   sync.Once
}

// NewRotatingLogger creates a new rotating logger instance with a 100MB size limit
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, 100*1024*1024)
}

// NewRotatingLoggerWithSizeLimit creates a new rotating logger with custom size limit
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// doRotate opens the file for targetWeek (caller must hold the lock)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	isSizeRotation := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, resetSize := rl.pickLogFile(targetWeek, isSizeRotation)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	if resetSize {
		rl.currentSize.Store(0)
	} else if info, err := os.Stat(logPath); err == nil {
		rl.currentSize.Store(info.Size())
	}

	return nil
}

// pickLogFile chooses the base weekly file or the next numbered one when the current is full
func (rl *RotatingLogger) pickLogFile(targetWeek string, isSizeRotation bool) (string, bool) {
	baseFileName := fmt.Sprintf("%s%s.log", logFilePrefix, targetWeek)

	if !isSizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, baseFileName))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return baseFileName, false
		}
	}

	highestNum, lastPath, lastSize := rl.highestNumberedFile(targetWeek)
	if lastPath != "" && lastSize < rl.maxFileSize {
		return filepath.Base(lastPath), false
	}

	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, targetWeek, highestNum+1), true
}

// highestNumberedFile returns the highest sequence number used this week with its path and size
func (rl *RotatingLogger) highestNumberedFile(targetWeek string) (int, string, int64) {
	pattern := fmt.Sprintf("%s%s_??.log", logFilePrefix, targetWeek)
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, pattern))

	highestNum := 0
	var lastPath string
	var lastSize int64

	for _, match := range matches {
		groups := numberedLogFileRegex.FindStringSubmatch(filepath.Base(match))
		if len(groups) < 2 {
			continue
		}
		num, _ := strconv.Atoi(groups[1])
		if num <= highestNum {
			continue
		}
		highestNum = num
		lastPath = match
		lastSize = 0
		if info, err := os.Stat(match); err == nil {
			lastSize = info.Size()
		}
	}

	return highestNum, lastPath, lastSize
}

// Write writes data to the current log file, rotating first when needed
func (rl *RotatingLogger) Write(p []byte) (n int, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	currentWeek := getWeekKey(time.Now())
	needsRotation := rl.currentWeek != currentWeek

	if rl.maxFileSize > 0 && !needsRotation {
		currentSize := rl.currentSize.Load()
		if currentSize+int64(len(p)) > rl.maxFileSize {
			needsRotation = true
			rl.currentSize.Store(rl.maxFileSize)
		}
	}

	if needsRotation {
		if rl.currentWeek != currentWeek {
			rl.currentSize.Store(0)
		}
		if err = rl.doRotate(currentWeek); err != nil {
			return 0, err
		}
	}

	if rl.currentFile == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err = rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	var deletedCount int

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), logFilePrefix) || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, entry.Name())); err == nil {
				deletedCount++
			}
		}
	}

	if deletedCount > 0 {
		// Console only, writing through slog here would recurse into Write
		fmt.Printf("Cleaned up %d old log files\n", deletedCount)
	}

	return nil
}

// startCleanup runs cleanupOldLogs daily until Close is called
func (rl *RotatingLogger) startCleanup() {
	rl.cleanupOn.Store(true)
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		defer close(rl.cleanupDone)

		for {
			select {
			case <-rl.ctx.Done():
				return
			case <-ticker.C:
				if err := rl.cleanupOldLogs(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to cleanup old logs: %v\n", err)
				}
			}
		}
	}()
}

// Close stops background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	var closeErr error
	rl.closeOnce.Do(func() {
		rl.cancel()

		if rl.cleanupOn.Load() {
			select {
			case <-rl.cleanupDone:
			case <-time.After(time.Second):
			}
		}

		rl.mu.Lock()
		defer rl.mu.Unlock()

		if rl.currentFile != nil {
			closeErr = rl.currentFile.Close()
			rl.currentFile = nil
		}
	})
	return closeErr
}

// setupLogger logs text to the console and JSON to the rotating file.
// If the log directory is unusable it degrades to console only.
func setupLogger(logDir string, consoleLevel slog.Level, retentionWeeks int, maxFileSize int64) (*slog.Logger, *RotatingLogger) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: consoleLevel,
	})

	if err := os.MkdirAll(logDir, 0750); err != nil {
		consoleLogger := slog.New(consoleHandler)
		if logDir != "" {
			consoleLogger.Error("Failed to create logs directory", "error", err)
		}
		return consoleLogger, nil
	}

	rotatingLogger := NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, maxFileSize)

	rotatingLogger.mu.Lock()
	rotateErr := rotatingLogger.doRotate(getWeekKey(time.Now()))
	rotatingLogger.mu.Unlock()
	if rotateErr != nil {
		consoleLogger := slog.New(consoleHandler)
		consoleLogger.Error("Failed to initialize rotating logger", "error", rotateErr)
		return consoleLogger, nil
	}

	rotatingLogger.startCleanup()

	fileHandler := slog.NewJSONHandler(rotatingLogger, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})

	return slog.New(&multiHandler{
		handlers: []slog.Handler{consoleHandler, fileHandler},
	}), rotatingLogger
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
