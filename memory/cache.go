package memory

import (
	"io"
	"log"
	"slices"

	"github.com/ezrec/csim/translate"
)

const (
	CACHE_LINES = 16 // Lines in the cache.
)

// Line is a single cache line. The tag is the full memory address.
type Line struct {
	Valid bool
	Tag   int
	Data  uint16
	Order int // Insertion order, used for FIFO replacement.
}

// Stats are the running cache counters.
type Stats struct {
	Accesses int
	Hits     int
	Misses   int
}

// HitRate returns hits per access, in [0, 1].
func (st Stats) HitRate() float64 {
	if st.Accesses == 0 {
		return 0
	}
	return float64(st.Hits) / float64(st.Accesses)
}

func (st Stats) String() string {
	return f("accesses %d, hits %d, misses %d, hit rate %.2f%%",
		st.Accesses, st.Hits, st.Misses, st.HitRate()*100)
}

// Cache is a fully associative, write-through, write-allocate cache with
// FIFO replacement, in front of a Memory.
type Cache struct {
	Verbose bool      // If set, log each access.
	Trace   io.Writer // If set, receives one line per access.

	memory *Memory
	line   [CACHE_LINES]Line
	order  int
	stats  Stats
}

// NewCache returns an empty cache in front of memory.
func NewCache(memory *Memory) *Cache {
	return &Cache{memory: memory}
}

// Memory returns the backing memory.
func (cache *Cache) Memory() *Memory {
	return cache.memory
}

// Invalidate empties every line and clears the counters.
func (cache *Cache) Invalidate() {
	clear(cache.line[:])
	cache.order = 0
	cache.stats = Stats{}
}

// Stats returns the running counters.
func (cache *Cache) Stats() Stats {
	return cache.stats
}

// HitRate returns hits per access, in [0, 1].
func (cache *Cache) HitRate() float64 {
	return cache.stats.HitRate()
}

// Lines returns a copy of every cache line.
func (cache *Cache) Lines() []Line {
	return slices.Clone(cache.line[:])
}

// Contains returns true if the address is resident.
func (cache *Cache) Contains(address int) bool {
	return cache.lookup(address) >= 0
}

func (cache *Cache) lookup(address int) int {
	for n, line := range cache.line {
		if line.Valid && line.Tag == address {
			return n
		}
	}
	return -1
}

// insert places a new line in a free slot, or evicts the oldest line.
func (cache *Cache) insert(address int, value uint16) {
	slot := -1
	for n, line := range cache.line {
		if !line.Valid {
			slot = n
			break
		}
		if slot < 0 || line.Order < cache.line[slot].Order {
			slot = n
		}
	}

	if cache.Verbose && cache.line[slot].Valid {
		log.Printf("cache: evict %06o", cache.line[slot].Tag)
	}

	cache.line[slot] = Line{
		Valid: true,
		Tag:   address,
		Data:  value,
		Order: cache.order,
	}
	cache.order++
}

func (cache *Cache) account(op string, hit bool, address int) {
	cache.stats.Accesses++
	if hit {
		cache.stats.Hits++
		op += " HIT"
	} else {
		cache.stats.Misses++
		op += " MISS"
	}

	if cache.Verbose {
		log.Printf("cache: %v %06o", op, address)
	}

	if cache.Trace != nil {
		translate.Fprintf(cache.Trace, "%s: Address=%04X, Hits=%d, Misses=%d, Hit Rate=%.2f%%\n",
			op, address, cache.stats.Hits, cache.stats.Misses, cache.stats.HitRate()*100)
	}
}

// Read a word through the cache.
func (cache *Cache) Read(address int) (value uint16, err error) {
	if n := cache.lookup(address); n >= 0 {
		cache.account("READ", true, address)
		value = cache.line[n].Data
		return
	}

	value, err = cache.memory.Read(address)
	if err != nil {
		return
	}

	cache.account("READ", false, address)
	cache.insert(address, value)
	return
}

// Write a word through the cache to memory.
func (cache *Cache) Write(address int, value uint16) (err error) {
	err = cache.memory.Write(address, value)
	if err != nil {
		return
	}

	if n := cache.lookup(address); n >= 0 {
		cache.account("WRITE", true, address)
		cache.line[n].Data = value
		return
	}

	cache.account("WRITE", false, address)
	cache.insert(address, value)
	return
}
