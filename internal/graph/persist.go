package graph

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/UAVXP/SharpLife-Game-sub000/logging"
	lognodegraph "github.com/UAVXP/SharpLife-Game-sub000/logging/nodegraph"
)

// GraphVersion is written first in every .nod file; any other value
// invalidates the file.
const GraphVersion int32 = 16

const maxModelName = 1 << 10

type binWriter struct {
	w   *bufio.Writer
	err error
	buf [8]byte
}

func (b *binWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) i32(v int32) {
	binary.LittleEndian.PutUint32(b.buf[:4], uint32(v))
	b.write(b.buf[:4])
}

func (b *binWriter) u16(v uint16) {
	binary.LittleEndian.PutUint16(b.buf[:2], v)
	b.write(b.buf[:2])
}

func (b *binWriter) u8(v uint8) {
	b.buf[0] = v
	b.write(b.buf[:1])
}

func (b *binWriter) f64(v float64) {
	binary.LittleEndian.PutUint64(b.buf[:8], math.Float64bits(v))
	b.write(b.buf[:8])
}

func (b *binWriter) vec(v Vec3) {
	b.f64(v[0])
	b.f64(v[1])
	b.f64(v[2])
}

// WriteGraph serialises g in the .nod layout.
func WriteGraph(w io.Writer, g *Graph) error {
	bw := &binWriter{w: bufio.NewWriter(w)}

	bw.i32(GraphVersion)
	bw.i32(int32(len(g.nodes)))
	bw.i32(int32(len(g.links)))

	for _, node := range g.nodes {
		bw.vec(node.Origin)
		bw.vec(node.Peek)
		bw.i32(int32(node.Info))
		bw.i32(node.HintType)
		bw.i32(node.HintActivity)
		bw.f64(node.HintYaw)
		bw.u8(node.Region[0])
		bw.u8(node.Region[1])
		bw.u8(node.Region[2])
		bw.i32(node.FirstLink)
		bw.i32(node.NumLinks)
		for hull := 0; hull < NumHulls; hull++ {
			for class := 0; class < NumCapClasses; class++ {
				bw.i32(node.NextBest[hull][class])
			}
		}
	}

	for _, link := range g.links {
		if len(link.ModelName) > maxModelName {
			return fmt.Errorf("graph: link %d->%d model name too long", link.Src, link.Dest)
		}
		bw.i32(link.Src)
		bw.i32(link.Dest)
		bw.f64(link.Weight)
		bw.i32(int32(link.Info))
		bw.u16(uint16(len(link.ModelName)))
		bw.write([]byte(link.ModelName))
	}

	if g.routingComplete {
		bw.u8(1)
	} else {
		bw.u8(0)
	}
	bw.i32(int32(len(g.routeInfo)))
	bw.write(g.routeInfo)

	bw.vec(g.regionMin)
	bw.vec(g.regionMax)
	for axis := 0; axis < 3; axis++ {
		sorted := g.sortedBy[axis]
		for i := range g.nodes {
			if i < len(sorted) {
				bw.i32(sorted[i])
			} else {
				bw.i32(int32(i))
			}
		}
	}
	for axis := 0; axis < 3; axis++ {
		for r := 0; r < numRanges; r++ {
			bw.i32(g.rangeStart[axis][r])
		}
	}
	for axis := 0; axis < 3; axis++ {
		for r := 0; r < numRanges; r++ {
			bw.i32(g.rangeEnd[axis][r])
		}
	}

	bw.i32(int32(len(g.hashLinks)))
	for _, p := range g.hashPrimes {
		bw.i32(p)
	}
	for _, slot := range g.hashLinks {
		bw.i32(slot)
	}

	if bw.err != nil {
		return bw.err
	}
	return bw.w.Flush()
}

type binReader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (b *binReader) read(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = io.ReadFull(b.r, p)
}

func (b *binReader) i32() int32 {
	b.read(b.buf[:4])
	return int32(binary.LittleEndian.Uint32(b.buf[:4]))
}

func (b *binReader) u16() uint16 {
	b.read(b.buf[:2])
	return binary.LittleEndian.Uint16(b.buf[:2])
}

func (b *binReader) u8() uint8 {
	b.read(b.buf[:1])
	return b.buf[0]
}

func (b *binReader) f64() float64 {
	b.read(b.buf[:8])
	return math.Float64frombits(binary.LittleEndian.Uint64(b.buf[:8]))
}

func (b *binReader) vec() Vec3 {
	return Vec3{b.f64(), b.f64(), b.f64()}
}

// ReadGraph parses a .nod stream into a new graph. The result is present
// but its link entities are unresolved until ResolveLinkEntities runs.
func ReadGraph(r io.Reader, tracer Tracer, opts Options) (*Graph, error) {
	g := New(tracer, opts)
	br := &binReader{r: bufio.NewReader(r)}

	version := br.i32()
	if br.err != nil {
		return nil, fmt.Errorf("graph: read header: %w", br.err)
	}
	if version != GraphVersion {
		return nil, fmt.Errorf("%w: got %d want %d", ErrVersionMismatch, version, GraphVersion)
	}

	nodeCount := int(br.i32())
	linkCount := int(br.i32())
	if br.err != nil {
		return nil, fmt.Errorf("graph: read header: %w", br.err)
	}
	if nodeCount < 0 || nodeCount > g.opts.MaxNodes {
		return nil, fmt.Errorf("graph: node count %d out of range", nodeCount)
	}
	if linkCount < 0 || linkCount > g.opts.LinkPoolSize {
		return nil, fmt.Errorf("graph: link count %d out of range", linkCount)
	}

	g.nodes = make([]Node, nodeCount)
	for i := range g.nodes {
		node := &g.nodes[i]
		node.Origin = br.vec()
		node.Peek = br.vec()
		node.Info = NodeType(br.i32())
		node.HintType = br.i32()
		node.HintActivity = br.i32()
		node.HintYaw = br.f64()
		node.Region[0] = br.u8()
		node.Region[1] = br.u8()
		node.Region[2] = br.u8()
		node.FirstLink = br.i32()
		node.NumLinks = br.i32()
		for hull := 0; hull < NumHulls; hull++ {
			for class := 0; class < NumCapClasses; class++ {
				node.NextBest[hull][class] = br.i32()
			}
		}
	}

	g.links = make([]Link, linkCount)
	for i := range g.links {
		link := &g.links[i]
		link.Src = br.i32()
		link.Dest = br.i32()
		link.Weight = br.f64()
		link.Info = LinkInfo(br.i32())
		nameLen := int(br.u16())
		if nameLen > maxModelName {
			return nil, fmt.Errorf("graph: link %d model name length %d", i, nameLen)
		}
		if nameLen > 0 {
			name := make([]byte, nameLen)
			br.read(name)
			link.ModelName = string(name)
		}
	}

	routingComplete := br.u8() != 0
	blobLen := int(br.i32())
	if br.err != nil {
		return nil, fmt.Errorf("graph: read links: %w", br.err)
	}
	if blobLen < 0 || blobLen > NumHulls*NumCapClasses*nodeCount*nodeCount*2+1 {
		return nil, fmt.Errorf("graph: routing blob length %d out of range", blobLen)
	}
	blob := make([]byte, blobLen)
	br.read(blob)

	g.regionMin = br.vec()
	g.regionMax = br.vec()
	for axis := 0; axis < 3; axis++ {
		sorted := make([]int32, nodeCount)
		for i := range sorted {
			sorted[i] = br.i32()
		}
		g.sortedBy[axis] = sorted
	}
	for axis := 0; axis < 3; axis++ {
		for r := 0; r < numRanges; r++ {
			g.rangeStart[axis][r] = br.i32()
		}
	}
	for axis := 0; axis < 3; axis++ {
		for r := 0; r < numRanges; r++ {
			g.rangeEnd[axis][r] = br.i32()
		}
	}

	hashSize := int(br.i32())
	if br.err != nil {
		return nil, fmt.Errorf("graph: read region tables: %w", br.err)
	}
	if hashSize < 0 || hashSize > 3*linkCount/2+3 {
		return nil, fmt.Errorf("graph: hash table size %d out of range", hashSize)
	}
	for k := range g.hashPrimes {
		g.hashPrimes[k] = br.i32()
	}
	g.hashLinks = make([]int32, hashSize)
	for i := range g.hashLinks {
		g.hashLinks[i] = br.i32()
	}
	if br.err != nil {
		return nil, fmt.Errorf("graph: read hash table: %w", br.err)
	}

	g.routeInfo = blob
	g.routingComplete = routingComplete
	if err := g.validate(); err != nil {
		return nil, err
	}
	g.checked = make([]uint32, nodeCount)
	g.present = true
	g.pointersSet = false
	g.storeGauges()
	return g, nil
}

// validate rejects indices that would let a corrupt file crash queries.
func (g *Graph) validate() error {
	n, l := int32(len(g.nodes)), int32(len(g.links))
	for i, node := range g.nodes {
		if node.FirstLink < 0 || node.NumLinks < 0 || node.FirstLink+node.NumLinks > l {
			return fmt.Errorf("graph: node %d link range out of bounds", i)
		}
		if g.routingComplete {
			for hull := 0; hull < NumHulls; hull++ {
				for class := 0; class < NumCapClasses; class++ {
					if off := node.NextBest[hull][class]; off < 0 || int(off) >= len(g.routeInfo) {
						return fmt.Errorf("graph: node %d routing offset %d out of bounds", i, off)
					}
				}
			}
		}
	}
	for i, link := range g.links {
		if link.Src < 0 || link.Src >= n || link.Dest < 0 || link.Dest >= n {
			return fmt.Errorf("graph: link %d endpoints out of bounds", i)
		}
	}
	for axis := 0; axis < 3; axis++ {
		for _, node := range g.sortedBy[axis] {
			if node < 0 || node >= n {
				return fmt.Errorf("graph: sorted index out of bounds")
			}
		}
		for r := 0; r < numRanges; r++ {
			start, end := g.rangeStart[axis][r], g.rangeEnd[axis][r]
			if start < -1 || start >= n || end < -1 || end >= n || (start == -1) != (end == -1) || start > end {
				return fmt.Errorf("graph: region range %d/%d out of bounds", axis, r)
			}
		}
	}
	for _, slot := range g.hashLinks {
		if slot < -1 || slot >= l {
			return fmt.Errorf("graph: hash slot out of bounds")
		}
	}
	if len(g.hashLinks) > 0 {
		for _, p := range g.hashPrimes {
			if p <= 0 || int(p) >= len(g.hashLinks) && len(g.hashLinks) > 1 {
				return fmt.Errorf("graph: hash probe step %d out of range", p)
			}
		}
	}
	return nil
}

// Store maps map names to .nod files and decides when a cached graph is
// stale.
type Store struct {
	MapsDir   string
	GraphDir  string
	MapExt    string
	Publisher logging.Publisher
}

// GraphPath is <GraphDir>/<map>.nod.
func (s Store) GraphPath(mapName string) string {
	return filepath.Join(s.GraphDir, mapName+".nod")
}

// MapPath is <MapsDir>/<map><MapExt>.
func (s Store) MapPath(mapName string) string {
	return filepath.Join(s.MapsDir, mapName+s.MapExt)
}

// NeedsRebuild reports whether the graph file is missing or older than the
// map file. A missing map file leaves an existing graph in place.
func (s Store) NeedsRebuild(mapName string) bool {
	graphInfo, err := os.Stat(s.GraphPath(mapName))
	if err != nil {
		return true
	}
	mapInfo, err := os.Stat(s.MapPath(mapName))
	if err != nil {
		return false
	}
	return mapInfo.ModTime().After(graphInfo.ModTime())
}

// Save writes the graph atomically through a temporary file.
func (s Store) Save(g *Graph, mapName string) error {
	path := s.GraphPath(mapName)
	err := s.save(g, path)
	if err != nil {
		lognodegraph.GraphSaveFailed(context.Background(), s.publisher(), mapName, lognodegraph.GraphFilePayload{
			Path:   path,
			Reason: err.Error(),
		})
	}
	return err
}

func (s Store) save(g *Graph, path string) error {
	if !g.present {
		return ErrGraphNotReady
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("graph: create graph dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("graph: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := WriteGraph(tmp, g); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("graph: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("graph: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("graph: rename %s: %w", path, err)
	}
	return nil
}

// Load reads the cached graph of mapName. Any failure means the caller
// should rebuild; the cause is returned and published.
func (s Store) Load(mapName string, tracer Tracer, opts Options) (*Graph, error) {
	path := s.GraphPath(mapName)
	if opts.MapName == "" {
		opts.MapName = mapName
	}
	g, err := s.load(path, tracer, opts)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, os.ErrNotExist) {
			reason = "missing"
		}
		lognodegraph.GraphLoadFailed(context.Background(), s.publisher(), mapName, lognodegraph.GraphFilePayload{
			Path:   path,
			Reason: reason,
		})
		return nil, err
	}
	lognodegraph.GraphLoaded(context.Background(), s.publisher(), mapName, lognodegraph.GraphFilePayload{Path: path})
	return g, nil
}

func (s Store) load(path string, tracer Tracer, opts Options) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraph(f, tracer, opts)
}

func (s Store) publisher() logging.Publisher {
	if s.Publisher == nil {
		return logging.NopPublisher()
	}
	return s.Publisher
}
