package logger

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a digest of aggregated entries, e.g. a Kafka producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries that force a flush
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry counts repetitions of one distinct warn or error entry.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated entries together so a batch run that fails
// the same way for many units publishes one digest line per failure kind.
type LogCollector struct {
	config  *CollectionConfig
	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry
	pending chan []AggregatedLogEntry
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	c := &LogCollector{
		config:  config,
		entries: make(map[string]*AggregatedLogEntry),
		pending: make(chan []AggregatedLogEntry, 8),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := digestKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(c.entries) >= c.config.CountThreshold {
		c.queueLocked()
	}
}

// Snapshot returns the entries collected since the last flush, most frequent first.
func (c *LogCollector) Snapshot() []AggregatedLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listLocked()
}

func (c *LogCollector) Close() {
	close(c.stop)
	c.wg.Wait()
}

func (c *LogCollector) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case batch := <-c.pending:
			c.publish(batch)
		case <-ticker.C:
			c.mu.Lock()
			c.queueLocked()
			c.mu.Unlock()
		case <-c.stop:
			c.mu.Lock()
			c.queueLocked()
			c.mu.Unlock()
			for {
				select {
				case batch := <-c.pending:
					c.publish(batch)
				default:
					return
				}
			}
		}
	}
}

func (c *LogCollector) queueLocked() {
	if len(c.entries) == 0 {
		return
	}
	batch := c.listLocked()
	c.entries = make(map[string]*AggregatedLogEntry)
	select {
	case c.pending <- batch:
	default:
		os.Stderr.WriteString("log collector: dropping digest, publisher is behind\n")
	}
}

func (c *LogCollector) listLocked() []AggregatedLogEntry {
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if c.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.config.Publisher.Publish(ctx, c.config.Topic, []byte("log-digest"), batch); err != nil {
		os.Stderr.WriteString("log collector: publish failed: " + err.Error() + "\n")
	}
}

func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	// json sorts map keys, so equal field sets give equal keys
	b, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	return string(b)
}
