// internal/logger/buffer.go
package logger

import (
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Logger    string
	Message   string
}

// LogBuffer is a thread-safe ring buffer of recent JSON log lines.
// It implements io.Writer so it can back a zapcore.Core.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool

	totalEntries uint64
	badEntries   uint64
}

// NewLogBuffer creates a new log buffer with the specified size
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
	}
}

// Write принимает одну или несколько JSON-строк от энкодера zap.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line == "" {
			continue
		}
		lb.add(parseEntry(line))
	}
	return len(p), nil
}

// Sync нужен для zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error { return nil }

func parseEntry(line string) (LogEntry, bool) {
	if !gjson.Valid(line) {
		return LogEntry{Message: line}, false
	}
	res := gjson.GetMany(line, "timestamp", "level", "logger", "msg")
	ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", res[0].String())
	if err != nil {
		ts = time.Now()
	}
	return LogEntry{
		Timestamp: ts,
		Level:     res[1].String(),
		Logger:    res[2].String(),
		Message:   res[3].String(),
	}, true
}

func (lb *LogBuffer) add(entry LogEntry, ok bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if !ok {
		lb.badEntries++
	}
	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++
}

// GetRecentLogs returns the most recent log entries (up to limit), oldest first
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// GetStats returns buffer statistics
func (lb *LogBuffer) GetStats() (total, malformed uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.badEntries
}
