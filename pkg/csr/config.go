package csr

import "fmt"

const (
	// EdgeBytes is the assumed in-flight cost of one edge while a chunk is
	// processed: 8 bytes for the raw pair, 4 for the partial neighbor entry
	// and 4 amortized for the run header.
	EdgeBytes = 16

	// DefaultEdgesPerChunk is used when neither budget is set.
	DefaultEdgesPerChunk = 1 << 20

	// DefaultNumThreads is the worker count when none is set.
	DefaultNumThreads = 1
)

// BuilderConfig holds the chunking knobs of a Builder. Zero means unset.
type BuilderConfig struct {
	// EdgesPerChunk is the number of edges per unit of work.
	EdgesPerChunk int `yaml:"edges_per_chunk"`
	// BytesPerChunk is the memory budget per unit of work. When it can be
	// honored it takes priority over EdgesPerChunk.
	BytesPerChunk int `yaml:"bytes_per_chunk"`
	// NumThreads is the worker pool size. Default: 1.
	NumThreads int `yaml:"num_threads"`
	// NumVertices fixes the order of the result. When unset the order is the
	// largest id seen plus one.
	NumVertices int `yaml:"num_vertices"`
}

// ResolvedConfig is the effective configuration after the priority rule.
type ResolvedConfig struct {
	EdgesPerChunk int
	NumThreads    int
	NumVertices   int // 0 with KnownOrder false means infer
	KnownOrder    bool
}

// ResolveConfig applies the priority rule to cfg. The byte budget wins when
// it yields at least one edge per chunk; otherwise the edge budget (or the
// default) is used. Every override or fallback is returned as a
// ConfigConflict so the caller can report it.
func ResolveConfig(cfg BuilderConfig) (ResolvedConfig, []*ConfigConflict) {
	var conflicts []*ConfigConflict
	r := ResolvedConfig{
		EdgesPerChunk: DefaultEdgesPerChunk,
		NumThreads:    DefaultNumThreads,
	}

	if cfg.EdgesPerChunk < 0 {
		conflicts = append(conflicts, &ConfigConflict{
			Field:  "edges_per_chunk",
			Detail: fmt.Sprintf("negative value %d ignored", cfg.EdgesPerChunk),
		})
	} else if cfg.EdgesPerChunk > 0 {
		r.EdgesPerChunk = cfg.EdgesPerChunk
	}

	switch {
	case cfg.BytesPerChunk > 0 && cfg.BytesPerChunk/EdgeBytes > 0:
		byBytes := cfg.BytesPerChunk / EdgeBytes
		if cfg.EdgesPerChunk > 0 && cfg.EdgesPerChunk != byBytes {
			conflicts = append(conflicts, &ConfigConflict{
				Field:  "edges_per_chunk",
				Detail: fmt.Sprintf("%d overridden by bytes_per_chunk=%d (%d edges)", cfg.EdgesPerChunk, cfg.BytesPerChunk, byBytes),
			})
		}
		r.EdgesPerChunk = byBytes
	case cfg.BytesPerChunk != 0:
		conflicts = append(conflicts, &ConfigConflict{
			Field:  "bytes_per_chunk",
			Detail: fmt.Sprintf("%d bytes cannot hold one edge (%d bytes each), using %d edges per chunk", cfg.BytesPerChunk, EdgeBytes, r.EdgesPerChunk),
		})
	}

	if cfg.NumThreads > 0 {
		r.NumThreads = cfg.NumThreads
	} else if cfg.NumThreads < 0 {
		conflicts = append(conflicts, &ConfigConflict{
			Field:  "num_threads",
			Detail: fmt.Sprintf("negative value %d ignored", cfg.NumThreads),
		})
	}

	if cfg.NumVertices > 0 {
		r.NumVertices = cfg.NumVertices
		r.KnownOrder = true
	} else if cfg.NumVertices < 0 {
		conflicts = append(conflicts, &ConfigConflict{
			Field:  "num_vertices",
			Detail: fmt.Sprintf("negative value %d ignored", cfg.NumVertices),
		})
	}
	return r, conflicts
}
