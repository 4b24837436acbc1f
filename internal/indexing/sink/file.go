package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// FileSink writes trimmed rows as JSON lines under
// <dir>/raw_normal_data/token=SYM/month=YYYY-MM/{phase}_{unix}_{id}.jsonl.
type FileSink struct {
	dir  string
	trim TrimOptions
	log  *slog.Logger
	now  func() time.Time
}

// NewFileSink creates a file sink rooted at dir.
func NewFileSink(dir string, trim TrimOptions, log *slog.Logger) *FileSink {
	if log == nil {
		log = slog.Default()
	}
	return &FileSink{
		dir:  dir,
		trim: trim,
		log:  log.With("component", "file_sink"),
		now:  time.Now,
	}
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, symbol string, phase Phase, batch []domain.RawTransaction) (int, error) {
	rows := Trim(batch, s.trim)
	if len(rows) == 0 {
		s.log.Info("buffer empty after trimming", "symbol", symbol, "phase", phase, "raw", len(batch))
		return 0, nil
	}

	name := fmt.Sprintf("%s_%d_%s.jsonl", phase, s.now().Unix(), uuid.NewString()[:8])
	months, parts := GroupByMonth(rows)
	for _, month := range months {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		path := filepath.Join(s.dir, "raw_normal_data", "token="+symbol, "month="+month, name)
		if err := writeJSONLines(path, parts[month]); err != nil {
			return 0, fmt.Errorf("failed to write partition %s: %w", path, err)
		}
		s.log.Debug("saved partition", "symbol", symbol, "month", month, "rows", len(parts[month]), "path", path)
	}
	return len(rows), nil
}

// Close implements Sink.
func (s *FileSink) Close() error { return nil }

func writeJSONLines(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
