package csr

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/glzip/pkg/metrics"
)

// maxChunkEdges bounds a chunk so per-run degrees fit in uint32.
const maxChunkEdges = 1 << 31

// initialChunkCap avoids allocating a full chunk buffer for small sources.
const initialChunkCap = 4096

// Builder turns an EdgeSource of any length into a CSR using bounded chunks
// reduced in parallel. A Builder may be reused; each Build is independent.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder returns a builder with the given configuration. Conflicting
// knobs are resolved (and logged) when Build runs.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Config returns the configuration as supplied, before resolution.
func (b *Builder) Config() BuilderConfig { return b.cfg }

// EdgesPerChunk sets the edge budget per chunk.
func (b *Builder) EdgesPerChunk(n int) *Builder {
	b.cfg.EdgesPerChunk = n
	return b
}

// BytesPerChunk sets the byte budget per chunk. When the budget cannot hold
// a single edge the builder is returned unchanged together with a
// ConfigConflict, so the caller can fall back to EdgesPerChunk.
func (b *Builder) BytesPerChunk(n int) (*Builder, error) {
	if n <= 0 || n/EdgeBytes == 0 {
		return b, &ConfigConflict{
			Field:  "bytes_per_chunk",
			Detail: fmt.Sprintf("%d bytes cannot hold one edge (%d bytes each)", n, EdgeBytes),
		}
	}
	b.cfg.BytesPerChunk = n
	return b, nil
}

// NumThreads sets the worker pool size.
func (b *Builder) NumThreads(n int) *Builder {
	b.cfg.NumThreads = n
	return b
}

// NumVertices fixes the order of the result instead of inferring it.
func (b *Builder) NumVertices(n int) *Builder {
	b.cfg.NumVertices = n
	return b
}

// chunkPart is the partial CSR a worker reduces one chunk to. Runs are
// ordered by source; within a run destinations keep input order.
type chunkPart struct {
	srcs   []uint32 // distinct sources, ascending
	counts []uint32 // edges per source run
	dsts   []uint32 // destinations grouped by run
	maxID  uint32
	starts []uint64 // write position of each run in the final neighbor array
	err    error
}

// Build consumes src and returns the finalized CSR. The first error from the
// source or from validation aborts the build; no partial graph is returned.
// Neighbors of each vertex appear in the order their edges were read,
// independently of chunk size and thread count.
func (b *Builder) Build(src EdgeSource) (*CSR, error) {
	start := time.Now()
	buildID := uuid.NewString()

	r, conflicts := ResolveConfig(b.cfg)
	for _, c := range conflicts {
		slog.Warn("[Builder] Configuration overridden", "build_id", buildID, "field", c.Field, "detail", c.Detail)
	}
	if r.KnownOrder && r.NumVertices > MaxOrder {
		return nil, b.fail(&ValidationError{Invariant: InvOrderRange, Index: 0, Detail: fmt.Sprintf("num_vertices %d", r.NumVertices)})
	}
	r.EdgesPerChunk = min(r.EdgesPerChunk, maxChunkEdges)

	parts, edges, err := b.reduceChunks(src, r)
	if err != nil {
		return nil, b.fail(err)
	}

	order := r.NumVertices
	if !r.KnownOrder {
		for _, p := range parts {
			order = max(order, int(p.maxID)+1)
		}
	}

	offsets := assignOffsets(parts, order)
	neighbors := scatter(parts, offsets[order], r.NumThreads)
	g := fromParts(offsets, neighbors)

	elapsed := time.Since(start)
	metrics.BuildDuration.Observe(elapsed.Seconds())
	metrics.GraphBytes.WithLabelValues("build").Set(float64(g.NBytes()))
	slog.Info("[Builder] Build complete",
		"build_id", buildID,
		"order", g.Order(),
		"size", edges,
		"chunks", len(parts),
		"edges_per_chunk", r.EdgesPerChunk,
		"threads", r.NumThreads,
		"elapsed", elapsed)
	return g, nil
}

func (b *Builder) fail(err error) error {
	kind := "source"
	switch {
	case errors.Is(err, ErrDecode):
		kind = "decode"
	case errors.Is(err, ErrValidation):
		kind = "validation"
	}
	metrics.BuildFailuresTotal.WithLabelValues(kind).Inc()
	return err
}

// reduceChunks reads src on the calling goroutine and fans full chunks out
// to at most r.NumThreads workers. Dispatch blocks while the pool is busy,
// which bounds the number of raw chunks in memory.
func (b *Builder) reduceChunks(src EdgeSource, r ResolvedConfig) ([]*chunkPart, int64, error) {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(r.NumThreads)

	var (
		parts   []*chunkPart
		edges   int64
		readErr error
		buf     = make([]Edge, 0, min(r.EdgesPerChunk, initialChunkCap))
	)

	dispatch := func() {
		chunk := buf
		base := edges - int64(len(chunk))
		part := &chunkPart{}
		parts = append(parts, part)
		g.Go(func() error {
			part.err = reduceChunk(chunk, base, r, part)
			return part.err
		})
		buf = make([]Edge, 0, min(r.EdgesPerChunk, initialChunkCap))
	}

	for ctx.Err() == nil {
		e, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("read edge %d: %w", edges, err)
			break
		}
		buf = append(buf, e)
		edges++
		if len(buf) == r.EdgesPerChunk {
			dispatch()
		}
	}
	if readErr == nil && ctx.Err() == nil && len(buf) > 0 {
		dispatch()
	}

	// Every dispatched chunk runs to completion, so the first failed part in
	// stream order holds the earliest bad edge. Read failures come after all
	// dispatched chunks.
	if err := g.Wait(); err != nil {
		for _, p := range parts {
			if p.err != nil {
				return nil, 0, p.err
			}
		}
		return nil, 0, err
	}
	if readErr != nil {
		return nil, 0, readErr
	}
	metrics.BuildEdgesTotal.Add(float64(edges))
	return parts, edges, nil
}

// reduceChunk turns a raw chunk into a partial CSR. base is the stream index
// of chunk[0], used for error reporting.
func reduceChunk(chunk []Edge, base int64, r ResolvedConfig, part *chunkPart) error {
	if r.KnownOrder {
		for i, e := range chunk {
			if int(max(e.Src, e.Dst)) >= r.NumVertices {
				return &ValidationError{
					Invariant: InvNeighborRange,
					Index:     int(base) + i,
					Detail:    fmt.Sprintf("edge (%d, %d) with num_vertices %d", e.Src, e.Dst, r.NumVertices),
				}
			}
		}
	}

	slices.SortStableFunc(chunk, func(a, b Edge) int {
		return cmp.Compare(a.Src, b.Src)
	})

	part.dsts = make([]uint32, len(chunk))
	for i, e := range chunk {
		part.dsts[i] = e.Dst
		part.maxID = max(part.maxID, e.Src, e.Dst)
		if n := len(part.srcs); n > 0 && part.srcs[n-1] == e.Src {
			part.counts[n-1]++
			continue
		}
		part.srcs = append(part.srcs, e.Src)
		part.counts = append(part.counts, 1)
	}
	metrics.BuildChunksTotal.Inc()
	return nil
}

// assignOffsets merges the per-chunk degree counts into global offsets and
// hands every run of every chunk its exclusive destination range. Chunks are
// visited in stream order, which keeps neighbor order stable.
func assignOffsets(parts []*chunkPart, order int) []uint64 {
	offsets := make([]uint64, order+1)
	for _, p := range parts {
		for i, v := range p.srcs {
			offsets[int(v)+1] += uint64(p.counts[i])
		}
	}
	for v := 1; v <= order; v++ {
		offsets[v] += offsets[v-1]
	}

	cursor := slices.Clone(offsets[:order])
	for _, p := range parts {
		p.starts = make([]uint64, len(p.srcs))
		for i, v := range p.srcs {
			p.starts[i] = cursor[v]
			cursor[v] += uint64(p.counts[i])
		}
	}
	return offsets
}

// scatter copies each part into its precomputed ranges. Ranges are disjoint
// across runs and parts, so workers write without locks.
func scatter(parts []*chunkPart, size uint64, threads int) []uint32 {
	neighbors := make([]uint32, size)
	parallelRange(len(parts), threads, func(lo, hi int) {
		for _, p := range parts[lo:hi] {
			pos := 0
			for i, start := range p.starts {
				n := int(p.counts[i])
				copy(neighbors[start:start+uint64(n)], p.dsts[pos:pos+n])
				pos += n
			}
		}
	})
	return neighbors
}
