package graph

import (
	"bytes"
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	lognodegraph "github.com/UAVXP/SharpLife-Game-sub000/logging/nodegraph"
)

const (
	maxRepeat   = 127
	maxSequence = 128
)

// ComputeStaticRoutingTables compiles, for every hull and capability class,
// a next-hop row per node, compresses each row and stores it once in the
// shared blob. Rows are compiled from static queries, so doors that can
// ever open count as open. If any next-hop offset cannot be encoded the
// tables stay unusable and a *CompressionError is returned.
func (g *Graph) ComputeStaticRoutingTables(ctx context.Context) error {
	ctx, span := g.spans.Start(ctx, "graph.ComputeStaticRoutingTables")
	defer span.End()

	g.routeInfo = nil
	g.routingComplete = false
	n := len(g.nodes)
	if n == 0 {
		return ErrNoNodes
	}

	next := make([]int32, n*n)
	var (
		blob     []byte
		searches int
		deduped  int
	)

	for hull := Hull(0); hull < NumHulls; hull++ {
		for class := 0; class < NumCapClasses; class++ {
			caps := capClassMask(class)
			for i := range next {
				next[i] = -1
			}

			for from := 0; from < n; from++ {
				row := next[from*n : (from+1)*n]
				for to := 0; to < n; to++ {
					if row[to] != -1 {
						continue
					}
					if from == to {
						row[to] = int32(from)
						continue
					}
					searches++
					path, _ := g.search(from, to, hull, caps, QueryStatic)
					if path == nil {
						row[to] = int32(from)
						continue
					}
					fillNextHops(next, n, path)
				}
			}

			for from := 0; from < n; from++ {
				encoded, err := compressRow(from, next[from*n:(from+1)*n])
				if err != nil {
					var compErr *CompressionError
					if errors.As(err, &compErr) {
						compErr.Hull = hull
						compErr.Class = class
						lognodegraph.RoutingCompressionFailed(ctx, g.opts.Publisher, g.opts.MapName, from, lognodegraph.RoutingCompressionPayload{
							Hull:   hull.String(),
							Class:  class,
							Next:   compErr.Next,
							Offset: compErr.Offset,
						})
					}
					span.RecordError(err)
					span.SetStatus(codes.Error, "route compression")
					return err
				}
				offset := bytes.Index(blob, encoded)
				if offset >= 0 {
					deduped++
				} else {
					offset = len(blob)
					blob = append(blob, encoded...)
				}
				g.nodes[from].NextBest[hull][class] = int32(offset)
			}
		}
	}

	g.routeInfo = blob
	g.routingComplete = true
	g.storeGauges()
	span.SetAttributes(
		attribute.Int("route_bytes", len(blob)),
		attribute.Int("searches", searches),
	)
	lognodegraph.RoutingTablesCompiled(ctx, g.opts.Publisher, g.opts.MapName, lognodegraph.RoutingTablesPayload{
		Bytes:          len(blob),
		DedupedRows:    deduped,
		SearchesIssued: searches,
	})
	return nil
}

// fillNextHops records, for every pair (a, b) on a shortest path, the node
// that follows a. Sub-paths of shortest paths are shortest.
func fillNextHops(next []int32, n int, path []int) {
	for a := 0; a < len(path)-1; a++ {
		row := next[path[a]*n : (path[a]+1)*n]
		hop := int32(path[a+1])
		for b := a + 1; b < len(path); b++ {
			if row[path[b]] == -1 {
				row[path[b]] = hop
			}
		}
	}
}

// compressRow encodes a next-hop row. A negative byte -k means the next k
// destinations are reached directly. A byte c >= 0 followed by a signed
// offset byte means the next c+1 destinations share the hop from+offset.
func compressRow(from int, row []int32) ([]byte, error) {
	n := len(row)
	out := make([]byte, 0, 16)
	var (
		repeat   int
		sequence int
		last     int32 = -1
	)

	flushRepeat := func() error {
		offset := int(last) - from
		if offset > 127 {
			offset -= n
		} else if offset < -128 {
			offset += n
		}
		if offset > 127 || offset < -128 {
			return &CompressionError{From: from, Next: int(last), Offset: offset}
		}
		out = append(out, byte(repeat-1), byte(int8(offset)))
		repeat = 0
		return nil
	}
	flushSequence := func() {
		out = append(out, byte(int8(-sequence)))
		sequence = 0
	}
	begin := func(to int) {
		if int(row[to]) == to {
			sequence = 1
			return
		}
		repeat = 1
		last = row[to]
	}

	for to := 0; to < n; to++ {
		switch {
		case repeat > 0:
			if row[to] == last && repeat < maxRepeat {
				repeat++
				continue
			}
			if err := flushRepeat(); err != nil {
				return nil, err
			}
			begin(to)
		case sequence > 0:
			if int(row[to]) == to && sequence < maxSequence {
				sequence++
				continue
			}
			flushSequence()
			begin(to)
		default:
			begin(to)
		}
	}
	if repeat > 0 {
		if err := flushRepeat(); err != nil {
			return nil, err
		}
	}
	if sequence > 0 {
		flushSequence()
	}
	return out, nil
}
