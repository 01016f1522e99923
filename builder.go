package matcha

import (
	"fmt"

	"github.com/matchadb/matcha/blobstore"
	"github.com/matchadb/matcha/codec"
)

// New starts a store builder. Spaces declared here exist from the first
// operation; more can be added later with DeclareSpace.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	store, err := matcha.New().
//	    Space("image", 768).
//	    Space("text", 384).
//	    Logger(matcha.NewTextLogger(slog.LevelInfo)).
//	    Build()
func New() Builder {
	return Builder{}
}

// Builder is an immutable fluent builder for creating Store instances.
// Each method returns a new builder with the updated configuration.
type Builder struct {
	specs       []SpaceSpec
	codec       codec.Codec
	compression *CompressionType
	chunkSize   int
	logger      *Logger
	metrics     MetricsCollector
	snapshotBS  blobstore.BlobStore
	snapshotKey string
	extraOpts   []Option
}

// Space declares a vector space with a fixed dimensionality. All
// vectors written to and queried against the space must have exactly
// this many components. Declaring the same name twice with identical
// parameters is allowed; conflicting parameters fail Build.
func (b Builder) Space(name string, dimension int) Builder {
	b.specs = append(b.specs, SpaceSpec{Name: name, Dimension: dimension, Metric: MetricCosine})
	return b
}

// Logger sets the structured logger for operation tracing.
func (b Builder) Logger(l *Logger) Builder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.metrics = mc
	return b
}

// Codec sets the codec used to encode snapshot sections.
func (b Builder) Codec(c codec.Codec) Builder {
	b.codec = c
	return b
}

// Compression sets the snapshot compression algorithm.
// Default: CompressionZSTD.
func (b Builder) Compression(ct CompressionType) Builder {
	b.compression = &ct
	return b
}

// ChunkSize sets how many items each copy-on-write step of a batched
// mutation applies. Default: 32.
func (b Builder) ChunkSize(n int) Builder {
	b.chunkSize = n
	return b
}

// SnapshotStore sets the blob store and key the store loads its initial
// state from and that SaveSnapshot writes to.
func (b Builder) SnapshotStore(bs blobstore.BlobStore, key string) Builder {
	b.snapshotBS = bs
	b.snapshotKey = key
	return b
}

// Options appends raw store options, for settings without a dedicated
// builder method.
func (b Builder) Options(optFns ...Option) Builder {
	b.extraOpts = append(b.extraOpts, optFns...)
	return b
}

// Build validates the declared spaces and creates the Store.
func (b Builder) Build() (*Store, error) {
	var specs []SpaceSpec
	seen := make(map[string]SpaceSpec, len(b.specs))
	for _, spec := range b.specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("space name must not be empty: %w", ErrContractViolation)
		}
		if spec.Dimension < 1 {
			return nil, fmt.Errorf("space %q: dimension must be >= 1, got %d: %w", spec.Name, spec.Dimension, ErrContractViolation)
		}
		if prev, ok := seen[spec.Name]; ok {
			if prev == spec {
				continue
			}
			return nil, &SpaceMismatchError{Name: spec.Name, Existing: prev, Requested: spec}
		}
		seen[spec.Name] = spec
		specs = append(specs, spec)
	}

	var optFns []Option
	if b.codec != nil {
		optFns = append(optFns, WithCodec(b.codec))
	}
	if b.compression != nil {
		optFns = append(optFns, WithCompression(*b.compression))
	}
	if b.chunkSize > 0 {
		optFns = append(optFns, WithChunkSize(b.chunkSize))
	}
	if b.logger != nil {
		optFns = append(optFns, WithLogger(b.logger))
	}
	if b.metrics != nil {
		optFns = append(optFns, WithMetricsCollector(b.metrics))
	}
	if b.snapshotBS != nil {
		optFns = append(optFns, WithSnapshotStore(b.snapshotBS, b.snapshotKey))
	}
	optFns = append(optFns, b.extraOpts...)

	return newStore(specs, applyOptions(optFns)), nil
}

// MustBuild creates the Store, panicking on error.
func (b Builder) MustBuild() *Store {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
