package memory

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/mem/mem"
)

type mappedRegion struct {
	Region
	storage *mem.Storage
}

// Bus dispatches byte accesses to the region containing the address.
// Halfword and word accesses are composed little-endian from byte
// accesses at addr, addr+1, addr+2 and addr+3.
//
// Reads outside every region return 0. Writes outside every region or into
// a read-only region are dropped.
type Bus struct {
	regions []*mappedRegion
	logger  logr.Logger
}

// BusOption is a functional option for configuring the Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report dropped accesses at V(1).
func WithLogger(logger logr.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates a Bus with zero-filled storage for every region of the
// layout.
func NewBus(layout *Layout, opts ...BusOption) (*Bus, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid memory layout: %w", err)
	}

	b := &Bus{logger: logr.Discard()}
	for _, opt := range opts {
		opt(b)
	}

	for _, r := range layout.sorted() {
		b.regions = append(b.regions, &mappedRegion{
			Region:  r,
			storage: mem.NewStorage(uint64(r.Size)),
		})
	}

	return b, nil
}

// Regions returns the regions of the bus ordered by base address.
func (b *Bus) Regions() []Region {
	regions := make([]Region, len(b.regions))
	for i, r := range b.regions {
		regions[i] = r.Region
	}
	return regions
}

// find returns the region containing addr, or nil.
func (b *Bus) find(addr uint32) *mappedRegion {
	i := sort.Search(len(b.regions), func(i int) bool {
		return uint64(addr) < b.regions[i].End()
	})
	if i < len(b.regions) && b.regions[i].Contains(addr) {
		return b.regions[i]
	}
	return nil
}

// Mapped reports whether addr lies in some region.
func (b *Bus) Mapped(addr uint32) bool {
	return b.find(addr) != nil
}

// ReadOnly reports whether addr lies in a read-only region. Unmapped
// addresses are not read-only.
func (b *Bus) ReadOnly(addr uint32) bool {
	r := b.find(addr)
	return r != nil && r.ReadOnly
}

// Read8 reads one byte.
func (b *Bus) Read8(addr uint32) uint8 {
	r := b.find(addr)
	if r == nil {
		b.logger.V(1).Info("read from unmapped address", "addr", hex(addr))
		return 0
	}

	data, err := r.storage.Read(uint64(addr-r.Base), 1)
	if err != nil {
		b.logger.V(1).Info("storage read failed", "addr", hex(addr), "err", err.Error())
		return 0
	}
	return data[0]
}

// Write8 writes one byte.
func (b *Bus) Write8(addr uint32, value uint8) {
	r := b.find(addr)
	switch {
	case r == nil:
		b.logger.V(1).Info("write to unmapped address", "addr", hex(addr))
		return
	case r.ReadOnly:
		b.logger.V(1).Info("write to read-only region", "addr", hex(addr), "region", r.Name)
		return
	}

	b.store(r, addr, value)
}

func (b *Bus) store(r *mappedRegion, addr uint32, value uint8) {
	if err := r.storage.Write(uint64(addr-r.Base), []byte{value}); err != nil {
		b.logger.V(1).Info("storage write failed", "addr", hex(addr), "err", err.Error())
	}
}

// Read16 reads a little-endian halfword.
func (b *Bus) Read16(addr uint32) uint16 {
	return uint16(b.Read8(addr)) | uint16(b.Read8(addr+1))<<8
}

// Read32 reads a little-endian word.
func (b *Bus) Read32(addr uint32) uint32 {
	return uint32(b.Read16(addr)) | uint32(b.Read16(addr+2))<<16
}

// Write16 writes a little-endian halfword.
func (b *Bus) Write16(addr uint32, value uint16) {
	b.Write8(addr, uint8(value))
	b.Write8(addr+1, uint8(value>>8))
}

// Write32 writes a little-endian word.
func (b *Bus) Write32(addr uint32, value uint32) {
	b.Write16(addr, uint16(value))
	b.Write16(addr+2, uint16(value>>16))
}

// Load copies data into memory starting at addr, including read-only
// regions. It is used by hosts to place code and images before execution.
func (b *Bus) Load(addr uint32, data []byte) error {
	for i, v := range data {
		a := addr + uint32(i)
		r := b.find(a)
		if r == nil {
			return fmt.Errorf("load at %s: address %s is unmapped", hex(addr), hex(a))
		}
		b.store(r, a, v)
	}
	return nil
}

// LoadWords stores words little-endian starting at addr. Like Load it
// ignores read-only protection.
func (b *Bus) LoadWords(addr uint32, words ...uint32) error {
	data := make([]byte, 0, len(words)*4)
	for _, w := range words {
		data = append(data, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return b.Load(addr, data)
}

func hex(addr uint32) string {
	return fmt.Sprintf("0x%08X", addr)
}
