package matcha

import (
	"log/slog"

	"github.com/matchadb/matcha/blobstore"
	"github.com/matchadb/matcha/codec"
)

type options struct {
	codec            codec.Codec
	compression      CompressionType
	chunkSize        int
	metricsCollector MetricsCollector
	logger           *Logger
	snapshotStore    blobstore.BlobStore
	snapshotKey      string
}

// Option configures store construction and load behavior.
//
// Options exist to avoid exploding the API surface (e.g. codec-specific
// constructor variants).
type Option func(*options)

// WithCodec configures the codec used to encode and decode snapshot
// sections. Snapshots are self-describing, so a store can load a
// snapshot written with a different codec regardless of this setting.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures snapshot body compression.
// Default is CompressionZSTD.
func WithCompression(ct CompressionType) Option {
	return func(o *options) {
		o.compression = ct
	}
}

// WithChunkSize configures the internal upsert chunk size. Chunking
// only affects throughput and intermediate visibility, never per-item
// semantics. Values below 1 fall back to the default (32).
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithSnapshotStore configures the blob store and key the store loads
// its state from on EnsureReady and saves to with SaveSnapshot.
//
// Example:
//
//	bs := blobstore.NewLocal("./data")
//	store, _ := matcha.New().
//	    Space("image", 768).
//	    Options(matcha.WithSnapshotStore(bs, "catalog.snap")).
//	    Build()
func WithSnapshotStore(bs blobstore.BlobStore, key string) Option {
	return func(o *options) {
		o.snapshotStore = bs
		o.snapshotKey = key
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &matcha.BasicMetricsCollector{}
//	store, _ := matcha.New().Space("image", 768).Metrics(metrics).Build()
//	// ... use store ...
//	stats := metrics.GetStats()
//	fmt.Printf("Upserts: %d, Avg latency: %dns\n", stats.UpsertItems, stats.UpsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := matcha.NewJSONLogger(slog.LevelInfo)
//	store, _ := matcha.New().Space("image", 768).Logger(logger).Build()
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      CompressionZSTD,
		chunkSize:        DefaultChunkSize,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	if o.chunkSize < 1 {
		o.chunkSize = DefaultChunkSize
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
