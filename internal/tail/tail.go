// Package tail provides redacted log file tailing with live filtering.
//
// It implements "tail -f" like functionality with support for pattern matching,
// level filtering, and log rotation detection. Every line is redacted before
// it is parsed, filtered or handed to the output function, so patterns and
// output only ever see scrubbed text.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/parser"
)

// RedactionFailedLine replaces a line the redactor could not scrub.
const RedactionFailedLine = "[REDACTION_FAILED]"

var (
	// ErrNoRedactor is returned by Run when Options.Redactor is nil.
	ErrNoRedactor = errors.New("tail requires a redactor")

	// ErrRotated is returned when the file rotates and FollowRotate is off.
	ErrRotated = errors.New("file rotated")
)

// Redactor scrubs sensitive values from a line.
type Redactor interface {
	RedactAndCount(text string) (string, int, error)
}

// Options configures the tailer behavior.
type Options struct {
	FilePath     string                      // Path to the log file
	Lines        int                         // Number of initial lines to show
	Follow       bool                        // Whether to follow the file for new content
	FollowRotate bool                        // Whether to follow through log rotations
	Pattern      *regexp.Regexp              // Optional regex pattern, matched against redacted lines
	LevelFilter  config.LogLevel             // Minimum log level to display
	OutputFunc   func(config.LogEntry) error // Function called for each matching entry
	Redactor     Redactor                    // Applied to every line before parsing
	Logger       *slog.Logger                // Receives rotation and redaction notices
}

// Tailer handles tailing a log file with filtering.
type Tailer struct {
	opts     Options
	parser   *parser.Parser
	logger   *slog.Logger
	file     *os.File
	offset   int64
	lineNum  int
	redacted int
	watcher  *fsnotify.Watcher
}

// New creates a new Tailer with the given options.
func New(opts Options) *Tailer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tailer{
		opts:   opts,
		parser: parser.New(nil),
		logger: logger,
	}
}

// Redacted returns how many values were redacted. Call it after Run returns.
func (t *Tailer) Redacted() int { return t.redacted }

// Run starts the tailing process. It blocks until context is cancelled or an error occurs.
func (t *Tailer) Run(ctx context.Context) error {
	if t.opts.Redactor == nil {
		return ErrNoRedactor
	}
	if t.opts.OutputFunc == nil {
		return errors.New("tail requires an output function")
	}

	if err := t.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer t.close()

	if t.opts.Lines > 0 {
		if err := t.readInitialLines(); err != nil {
			return fmt.Errorf("failed to read initial lines: %w", err)
		}
	}

	if !t.opts.Follow {
		return nil
	}

	if err := t.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	return t.watch(ctx)
}

// openFile opens the log file and records its end when following.
func (t *Tailer) openFile() error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		return err
	}
	t.file = f

	if t.opts.Follow {
		stat, err := f.Stat()
		if err != nil {
			return err
		}
		t.offset = stat.Size()
	}
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), parser.MaxLineBytes)
	return scanner
}

// readInitialLines reads and displays the last N lines from the file.
func (t *Tailer) readInitialLines() error {
	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	fileSize := stat.Size()
	if fileSize == 0 {
		return nil
	}

	// Assume ~300 bytes per line and read twice that.
	estimatedBytesNeeded := int64(t.opts.Lines * 300 * 2)
	startPos := max(fileSize-estimatedBytesNeeded, 0)

	if _, err := t.file.Seek(startPos, io.SeekStart); err != nil {
		return err
	}

	scanner := newScanner(t.file)

	// Skip the partial first line.
	if startPos > 0 {
		scanner.Scan()
	}

	var entries []config.LogEntry
	for scanner.Scan() {
		t.lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry := t.processLine(line, t.lineNum)
		if t.shouldDisplay(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(entries) > t.opts.Lines {
		entries = entries[len(entries)-t.opts.Lines:]
	}

	for _, entry := range entries {
		if err := t.opts.OutputFunc(entry); err != nil {
			return err
		}
	}

	t.offset, err = t.file.Seek(0, io.SeekEnd)
	return err
}

// setupWatcher initializes the fsnotify watcher.
func (t *Tailer) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	t.watcher = watcher
	return watcher.Add(t.opts.FilePath)
}

// watch monitors the file for changes and outputs new lines.
func (t *Tailer) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// handleEvent processes a file system event.
func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Has(fsnotify.Write):
		return t.readNewContent()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return t.handleRotation(ctx)
	}
	return nil
}

// readNewContent reads and outputs new content added to the file.
func (t *Tailer) readNewContent() error {
	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < t.offset {
		t.logger.Info("file truncated, reading from start", "path", t.opts.FilePath)
		t.offset = 0
	}

	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(t.file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// Leave a partial line for the next write event.
			break
		}
		if err != nil {
			return err
		}
		t.offset += int64(len(line))
		t.lineNum++

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry := t.processLine(line, t.lineNum)
		if t.shouldDisplay(entry) {
			if err := t.opts.OutputFunc(entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// handleRotation handles log file rotation.
func (t *Tailer) handleRotation(ctx context.Context) error {
	if !t.opts.FollowRotate {
		t.logger.Warn("file rotated, stopping; use --follow-rotate to follow through rotations",
			"path", t.opts.FilePath)
		return ErrRotated
	}

	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return errors.New("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			f, err := os.Open(t.opts.FilePath)
			if err != nil {
				continue
			}
			t.file = f
			t.offset = 0
			t.lineNum = 0

			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}
			t.logger.Info("file rotated, following new file", "path", t.opts.FilePath)
			return t.readNewContent()
		}
	}
}

// processLine redacts a raw line and parses the result. A line that cannot
// be redacted is replaced by RedactionFailedLine.
func (t *Tailer) processLine(line string, lineNum int) config.LogEntry {
	clean, n, err := t.opts.Redactor.RedactAndCount(line)
	if err != nil {
		t.logger.Warn("redaction failed, line withheld", "line", lineNum, "error", err)
		return config.LogEntry{
			Raw:     RedactionFailedLine,
			Message: RedactionFailedLine,
			Level:   config.LevelUnknown,
			Line:    lineNum,
		}
	}
	t.redacted += n
	return t.parser.ParseLine(clean, lineNum)
}

// shouldDisplay checks if an entry matches the filter criteria.
func (t *Tailer) shouldDisplay(entry config.LogEntry) bool {
	// Unknown levels always pass the level filter.
	if t.opts.LevelFilter != config.LevelUnknown && entry.Level != config.LevelUnknown {
		if levelToInt(entry.Level) < levelToInt(t.opts.LevelFilter) {
			return false
		}
	}

	if t.opts.Pattern != nil && !t.opts.Pattern.MatchString(entry.Raw) {
		return false
	}
	return true
}

// levelToInt converts a log level to an integer for comparison.
func levelToInt(level config.LogLevel) int {
	switch level {
	case config.LevelDebug:
		return 0
	case config.LevelInfo:
		return 1
	case config.LevelWarn:
		return 2
	case config.LevelError:
		return 3
	case config.LevelFatal:
		return 4
	default:
		return -1
	}
}

// close closes all resources.
func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
}
