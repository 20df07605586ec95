package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActivityWriterConcurrentWrites(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "nested", "activity.log")

	writer, err := NewActivityWriter(testFile, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, writer.WriteLine(fmt.Sprintf("goroutine %d line %d", id, j)))
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, writer.Close())

	data, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 400)
}

func TestCSVWriterHeaderOnlyOnce(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "trades.csv")
	header := []string{"id", "side"}

	w, err := NewCSVWriter(testFile, header, time.Hour, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord([]string{"1", "buy"}))
	require.NoError(t, w.Close())

	// повторное открытие дописывает без заголовка
	w, err = NewCSVWriter(testFile, header, time.Hour, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord([]string{"2", "sell"}))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	f, err := os.Open(testFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "side"}, {"1", "buy"}, {"2", "sell"}}, rows)
}

func TestActivityWriterPeriodicFlush(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "activity.log")
	w, err := NewActivityWriter(testFile, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteLine("hello"))
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(testFile)
		return err == nil && string(data) == "hello\n"
	}, time.Second, 10*time.Millisecond)
}
