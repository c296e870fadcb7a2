package di

import (
	"context"
	"fmt"
	"time"

	"FutPull/internal/domain/repository"
	dservice "FutPull/internal/domain/service"
	"FutPull/internal/handler/api"
	internalrepo "FutPull/internal/repository"
	"FutPull/internal/service/calendar"
	"FutPull/internal/service/instrument"
	"FutPull/internal/service/ratelimit"
	"FutPull/internal/services/minutebar"
	"FutPull/internal/usecase"
	"FutPull/pkg/cache"
	pkgch "FutPull/pkg/clickhouse"
	"FutPull/pkg/config"
	xhttp "FutPull/pkg/http"
	pkgkafka "FutPull/pkg/kafka"
	applogger "FutPull/pkg/logger"
	"FutPull/pkg/metrics"
	"FutPull/pkg/server"
)

// ProvideClickHouseClient connects when the ClickHouse sink is enabled and
// returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	ch := cfg.Sinks.ClickHouse
	if !ch.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(context.Background(),
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates a producer when the Kafka sink is enabled
// and returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	k := cfg.Sinks.Kafka
	if !k.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatch(k.BatchSize, k.BatchBytes, k.Linger),
		pkgkafka.WithTimeouts(k.WriteTimeout, k.ReadTimeout),
		pkgkafka.WithMaxAttempts(k.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(k.AutoCreate),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. Warn and error digests are
// published to Kafka when log collection is on.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collect.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collect.Interval,
			CountThreshold: cfg.Log.Collect.Threshold,
			Topic:          cfg.Log.Collect.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns Redis fronted by a small in-process cache, or a
// plain in-memory cache when progress is not persisted.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if cfg.Progress.Backend != "redis" {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(10_000))
		return mc, func() { _ = mc.Close() }, nil
	}
	r := cfg.Progress.Redis
	rc, err := cache.NewRedisCache(context.Background(),
		cache.WithRedisHost(r.Host),
		cache.WithRedisPort(r.Port),
		cache.WithRedisPassword(r.Password),
		cache.WithRedisDB(r.DB),
		cache.WithRedisPrefix(r.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc, 1_000, time.Minute)
	return lc, func() { _ = lc.Close() }, nil
}

func ProvideCalendar(cfg *config.Config) (repository.TradingCalendar, error) {
	cal, err := calendar.Load(cfg.Calendar.Path)
	if err != nil {
		return nil, fmt.Errorf("trading calendar: %w", err)
	}
	return cal, nil
}

func ProvideClassifier() repository.InstrumentClassifier {
	return instrument.NewClassifier()
}

func ProvideConverter() dservice.BarConverter {
	return minutebar.NewEngine()
}

func ProvideTickArchive(cfg *config.Config, l *applogger.Logger) repository.TickArchive {
	return internalrepo.NewZipTickArchive(cfg.Data.TickRoot, cfg.Archive.RetryMax, cfg.Archive.RetryBackoff, l)
}

func ProvideContractUniverse(cfg *config.Config) repository.ContractUniverse {
	return internalrepo.NewCSVContractUniverse(cfg.Data.DailyRoot, cfg.MinuteBar.TopN)
}

func ProvideProgressStore(c cache.Service, cfg *config.Config) repository.ProgressStore {
	return internalrepo.NewCacheProgressStore(c, cfg.Progress.TTL)
}

// ProvideSinks lists the enabled bar sinks in a fixed order: file,
// clickhouse, kafka.
func ProvideSinks(cfg *config.Config, ch *pkgch.Client, producer *pkgkafka.Producer, l *applogger.Logger) ([]repository.BarSink, error) {
	var sinks []repository.BarSink
	if cfg.Sinks.File.Enabled {
		fs, err := internalrepo.NewFileBarSink(cfg.Data.DailyRoot, cfg.MinuteBar.FilePrefix, cfg.MinuteBar.SaveFormat)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if ch != nil {
		sinks = append(sinks, internalrepo.NewClickHouseBarSink(ch.DB(), ch.Database(), cfg.Sinks.ClickHouse.BatchSize, l))
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaBarSink(producer, cfg.Sinks.Kafka.Topic, cfg.Sinks.Kafka.BatchSize))
	}
	return sinks, nil
}

func ProvideBarWriter(sinks []repository.BarSink, m repository.Metrics, l *applogger.Logger) *usecase.BarWriter {
	return usecase.NewBarWriter(sinks, m, l)
}

func ProvideMinuteBarBuilder(
	cfg *config.Config,
	cal repository.TradingCalendar,
	universe repository.ContractUniverse,
	archive repository.TickArchive,
	classifier repository.InstrumentClassifier,
	converter dservice.BarConverter,
	writer *usecase.BarWriter,
	progress repository.ProgressStore,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.MinuteBarBuilder {
	return usecase.NewMinuteBarBuilder(cal, universe, archive, classifier, converter, writer, progress, c, m,
		usecase.BuilderConfig{
			Workers: cfg.MinuteBar.Workers,
			Fields:  cfg.MinuteBar.Fields,
			LockTTL: 2 * time.Hour,
		}, l)
}

func ProvideBarQuery(
	cal repository.TradingCalendar,
	archive repository.TickArchive,
	classifier repository.InstrumentClassifier,
	converter dservice.BarConverter,
	m repository.Metrics,
) *usecase.BarQuery {
	return usecase.NewBarQuery(cal, archive, classifier, converter, m)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
}

func ProvideBarsHandler(
	cfg *config.Config,
	l *applogger.Logger,
	q *usecase.BarQuery,
	c cache.Service,
	limiter *ratelimit.Limiter,
) *api.BarsEchoHandler {
	return api.NewBarsEchoHandler(l, q, c, cfg.Server.CacheTTL, limiter)
}

// ProvideHealthChecks probes the external stores the enabled sinks write to.
func ProvideHealthChecks(ch *pkgch.Client) []xhttp.HealthCheck {
	var checks []xhttp.HealthCheck
	if ch != nil {
		checks = append(checks, xhttp.HealthCheck{Name: "clickhouse", Check: ch.Health})
	}
	return checks
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	builder *usecase.MinuteBarBuilder,
	writer *usecase.BarWriter,
	handler *api.BarsEchoHandler,
	limiter *ratelimit.Limiter,
	checks []xhttp.HealthCheck,
) *server.App {
	return server.New(cfg, l, builder, writer, handler, limiter, checks)
}
