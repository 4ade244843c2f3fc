package graph

import (
	"encoding/binary"
	"hash/crc32"
	"math/rand"
)

// probePrimes is 1 followed by the first 175 primes.
var probePrimes = firstPrimes(175)

func firstPrimes(count int) []int32 {
	out := []int32{1}
	for candidate := int32(2); len(out) <= count; candidate++ {
		prime := true
		for _, p := range out[1:] {
			if p*p > candidate {
				break
			}
			if candidate%p == 0 {
				prime = false
				break
			}
		}
		if prime {
			out = append(out, candidate)
		}
	}
	return out
}

// BuildLinkLookups fills the open addressing table that maps a
// (source, destination) pair to its link index.
func (g *Graph) BuildLinkLookups() {
	size := 3*len(g.links)/2 + 3
	g.hashPrimes = choosePrimes(size)
	g.hashLinks = make([]int32, size)
	for i := range g.hashLinks {
		g.hashLinks[i] = -1
	}
	for i, link := range g.links {
		g.hashInsert(link.Src, link.Dest, int32(i))
	}
}

func pairHash(src, dest int32) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(src))
	binary.LittleEndian.PutUint32(buf[4:], uint32(dest))
	return crc32.ChecksumIEEE(buf[:])
}

func (g *Graph) probe(src, dest int32) (slot, step int) {
	h := pairHash(src, dest)
	size := len(g.hashLinks)
	return int((h >> 4) % uint32(size)), int(g.hashPrimes[h&15])
}

func (g *Graph) hashInsert(src, dest, link int32) {
	size := len(g.hashLinks)
	slot, step := g.probe(src, dest)
	for g.hashLinks[slot] != -1 {
		slot += step
		if slot >= size {
			slot -= size
		}
	}
	g.hashLinks[slot] = link
}

// HashSearch returns the index of the link from src to dest, or -1.
func (g *Graph) HashSearch(src, dest int) int {
	size := len(g.hashLinks)
	if size == 0 {
		return g.scanForLink(src, dest)
	}
	slot, step := g.probe(int32(src), int32(dest))
	for probes := 0; probes < size; probes++ {
		link := g.hashLinks[slot]
		if link == -1 {
			return -1
		}
		if int(g.links[link].Src) == src && int(g.links[link].Dest) == dest {
			return int(link)
		}
		slot += step
		if slot >= size {
			slot -= size
		}
	}
	return -1
}

func (g *Graph) scanForLink(src, dest int) int {
	if !g.validNode(src) {
		return -1
	}
	for _, link := range g.NodeLinks(src) {
		if int(g.links[link].Dest) == dest {
			return link
		}
	}
	return -1
}

// choosePrimes picks sixteen probe steps spread across the prime table that
// are coprime with size, turns every other one into size-p and shuffles them
// with a generator seeded by size so the choice is reproducible.
func choosePrimes(size int) [16]int32 {
	var out [16]int32
	largest := int32(size / 2)
	if top := probePrimes[len(probePrimes)-1]; largest > top {
		largest = top
	}
	spacing := largest / 16

	zone := int32(1)
	for k := 0; k < 16; zone += spacing {
		lower := probePrimes[0]
		placed := false
		for j, upper := range probePrimes {
			if j != 0 && int32(size)%upper == 0 {
				continue
			}
			if lower <= zone && zone <= upper {
				if zone-lower <= upper-zone {
					out[k] = lower
				} else {
					out[k] = upper
				}
				placed = true
				break
			}
			lower = upper
		}
		if !placed {
			out[k] = lower
		}
		if out[k] >= int32(size) {
			out[k] = 1
		}
		k++
	}

	for k := 0; k < 16; k += 2 {
		if out[k] < int32(size) {
			out[k] = int32(size) - out[k]
		}
	}

	rng := rand.New(rand.NewSource(int64(size)))
	for k := 0; k < 15; k++ {
		pick := k + rng.Intn(16-k)
		out[k], out[pick] = out[pick], out[k]
	}
	return out
}
