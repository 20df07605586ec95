// internal/logger/writers.go
package logger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// syncedFile - файл в режиме дозаписи, который фоново сбрасывается на диск.
// flush вызывается под mu и должен сбросить буфер писателя.
type syncedFile struct {
	mu     sync.Mutex
	file   *os.File
	flush  func() error
	ticker *time.Ticker
	done   chan struct{}
	logger *zap.Logger
	path   string
	count  uint64
}

func openAppend(path string) (*os.File, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, false, fmt.Errorf("failed to stat file: %w", err)
	}
	return file, stat.Size() == 0, nil
}

func (f *syncedFile) start(interval time.Duration) {
	f.ticker = time.NewTicker(interval)
	f.done = make(chan struct{})
	go func() {
		for {
			select {
			case <-f.ticker.C:
				if err := f.Flush(); err != nil {
					f.logger.Error("Periodic flush failed", zap.String("file", f.path), zap.Error(err))
				}
			case <-f.done:
				return
			}
		}
	}()
}

// Flush сбрасывает буфер и синхронизирует файл.
func (f *syncedFile) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.flush(); err != nil {
		return err
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// Close останавливает фоновый сброс, дописывает буфер и закрывает файл.
func (f *syncedFile) Close() error {
	close(f.done)
	f.ticker.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.flush(); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	f.logger.Info("Writer closed", zap.String("file", f.path), zap.Uint64("written", f.count))
	return nil
}

// ActivityWriter дописывает строки журнала активности; безопасен для горутин.
type ActivityWriter struct {
	syncedFile
	buf *bufio.Writer
}

func NewActivityWriter(path string, flushInterval time.Duration, logger *zap.Logger) (*ActivityWriter, error) {
	file, _, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	w := &ActivityWriter{buf: bufio.NewWriter(file)}
	w.file, w.logger, w.path = file, logger, path
	w.flush = func() error {
		if err := w.buf.Flush(); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
		return nil
	}
	w.start(flushInterval)
	return w, nil
}

// WriteLine пишет line и перевод строки.
func (w *ActivityWriter) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	w.count++
	return nil
}

// CSVWriter дописывает записи в CSV; заголовок пишется только в пустой файл.
type CSVWriter struct {
	syncedFile
	csv *csv.Writer
}

func NewCSVWriter(path string, header []string, flushInterval time.Duration, logger *zap.Logger) (*CSVWriter, error) {
	file, empty, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	w := &CSVWriter{csv: csv.NewWriter(file)}
	w.file, w.logger, w.path = file, logger, path
	w.flush = func() error {
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("CSV writer error: %w", err)
		}
		return nil
	}

	if empty && len(header) > 0 {
		if err := w.csv.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		w.csv.Flush()
	}

	w.start(flushInterval)
	return w, nil
}

func (w *CSVWriter) WriteRecord(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.count++
	return nil
}
