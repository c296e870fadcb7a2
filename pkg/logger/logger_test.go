package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	digests [][]AggregatedLogEntry
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.digests = append(p.digests, value.([]AggregatedLogEntry))
	return nil
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("hello", String("k", "v"), Int("n", 1), Error(nil))
	assert.FileExists(t, path)
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "futpull.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("unit failed", String("contract", "CU2402.SHF"), Error(errors.New("boom")))
	}
	l.Warn("empty archive", String("contract", "AL2402.SHF"))

	snap := l.collector.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 3, snap[0].Count)
	assert.Equal(t, "unit failed", snap[0].Message)

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.digests, 1)
	assert.Equal(t, "futpull.logs", pub.topics[0])
	assert.Len(t, pub.digests[0], 2)
}

func TestWithKeepsCollector(t *testing.T) {
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10})
	defer l.RemoveCollector()

	child := l.With(String("run_id", "r1"))
	child.Error("x")
	assert.Len(t, l.collector.Snapshot(), 1)
}

func TestDurationFieldIsMilliseconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	l.Warn("retrying", Duration("wait_ms", 1500*time.Millisecond))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"wait_ms":1500`)
}
