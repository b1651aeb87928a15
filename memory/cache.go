package memory

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CacheConfig holds cache geometry.
type CacheConfig struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
}

// DefaultCacheConfig returns a 4KB, 4-way cache with 32B lines.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     32,
	}
}

// Validate checks that the geometry describes at least one whole set.
func (c CacheConfig) Validate() error {
	if c.Size <= 0 || c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("cache size, associativity and block_size must be > 0")
	}
	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two, got %d", c.BlockSize)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size must be a multiple of associativity * block_size")
	}
	return nil
}

// Statistics holds cache access statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
	Bypasses   uint64
}

// Backing is the next level below the cache.
type Backing interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
}

// regionBacking is implemented by backings that know which addresses are
// mapped and which are write-protected. Accesses the backing would drop
// bypass the cache, so they neither allocate lines nor linger in dirty
// ones.
type regionBacking interface {
	Mapped(addr uint32) bool
	ReadOnly(addr uint32) bool
}

// Cache is a functional write-back, write-allocate, set-associative cache
// with LRU replacement. It models contents and statistics only; there is
// no latency. Cache satisfies the same interface as Bus and can be handed
// to the CPU in its place: unmapped addresses read 0 and drop writes, and
// writes to read-only addresses are dropped, exactly as on the Bus.
type Cache struct {
	config CacheConfig

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats   Statistics
	backing Backing
}

// NewCache creates a cache in front of backing.
func NewCache(config CacheConfig, backing Backing) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() CacheConfig {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	return uint64(addr) &^ uint64(c.config.BlockSize-1)
}

// crossesBlock reports whether an access of size bytes at addr spans two
// cache lines.
func (c *Cache) crossesBlock(addr uint32, size int) bool {
	return int(uint64(addr)-c.blockAddr(addr))+size > c.config.BlockSize
}

// line returns the line holding addr, filling it on a miss.
func (c *Cache) line(addr uint32) ([]byte, *akitacache.Block) {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return c.dataStore[c.blockIndex(block)], block
	}

	c.stats.Misses++

	victim := c.directory.FindVictim(blockAddr)
	data := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.writeBack(victim.Tag, data)
		}
	}

	for i := range data {
		data[i] = c.backing.Read8(uint32(blockAddr) + uint32(i))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return data, victim
}

func (c *Cache) writeBack(tag uint64, data []byte) {
	c.stats.Writebacks++
	for i, v := range data {
		c.backing.Write8(uint32(tag)+uint32(i), v)
	}
}

func (c *Cache) offset(addr uint32) int {
	return int(uint64(addr) - c.blockAddr(addr))
}

// bypassByte reports whether the byte at addr must go straight to the
// backing. Unmapped bytes always do; read-only bytes do for writes.
func (c *Cache) bypassByte(addr uint32, write bool) bool {
	rb, ok := c.backing.(regionBacking)
	if !ok {
		return false
	}
	return !rb.Mapped(addr) || (write && rb.ReadOnly(addr))
}

func (c *Cache) bypassed(addr uint32, size int, write bool) bool {
	for i := 0; i < size; i++ {
		if c.bypassByte(addr+uint32(i), write) {
			return true
		}
	}
	return false
}

// read composes a little-endian value. An access spanning two lines, or
// touching a bypassed byte, is performed one byte at a time, each cached
// byte counting as a lookup.
func (c *Cache) read(addr uint32, size int) uint32 {
	c.stats.Reads++

	var value uint32
	bypass := c.bypassed(addr, size, false)
	if bypass {
		c.stats.Bypasses++
	}

	if bypass || c.crossesBlock(addr, size) {
		for i := 0; i < size; i++ {
			a := addr + uint32(i)
			if c.bypassByte(a, false) {
				value |= uint32(c.backing.Read8(a)) << (8 * i)
				continue
			}
			data, _ := c.line(a)
			value |= uint32(data[c.offset(a)]) << (8 * i)
		}
		return value
	}

	data, _ := c.line(addr)
	offset := c.offset(addr)
	for i := 0; i < size; i++ {
		value |= uint32(data[offset+i]) << (8 * i)
	}
	return value
}

func (c *Cache) write(addr uint32, size int, value uint32) {
	c.stats.Writes++

	bypass := c.bypassed(addr, size, true)
	if bypass {
		c.stats.Bypasses++
	}

	if bypass || c.crossesBlock(addr, size) {
		for i := 0; i < size; i++ {
			a := addr + uint32(i)
			if c.bypassByte(a, true) {
				c.backing.Write8(a, uint8(value>>(8*i)))
				continue
			}
			data, block := c.line(a)
			data[c.offset(a)] = uint8(value >> (8 * i))
			block.IsDirty = true
		}
		return
	}

	data, block := c.line(addr)
	offset := c.offset(addr)
	for i := 0; i < size; i++ {
		data[offset+i] = uint8(value >> (8 * i))
	}
	block.IsDirty = true
}

// Read8 reads one byte through the cache.
func (c *Cache) Read8(addr uint32) uint8 { return uint8(c.read(addr, 1)) }

// Read16 reads a little-endian halfword through the cache.
func (c *Cache) Read16(addr uint32) uint16 { return uint16(c.read(addr, 2)) }

// Read32 reads a little-endian word through the cache.
func (c *Cache) Read32(addr uint32) uint32 { return c.read(addr, 4) }

// Write8 writes one byte through the cache.
func (c *Cache) Write8(addr uint32, value uint8) { c.write(addr, 1, uint32(value)) }

// Write16 writes a little-endian halfword through the cache.
func (c *Cache) Write16(addr uint32, value uint16) { c.write(addr, 2, uint32(value)) }

// Write32 writes a little-endian word through the cache.
func (c *Cache) Write32(addr uint32, value uint32) { c.write(addr, 4, value) }

// Invalidate drops the line holding addr without writing it back.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty lines and invalidates every line.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.writeBack(block.Tag, c.dataStore[c.blockIndex(block)])
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all lines without write-back and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
