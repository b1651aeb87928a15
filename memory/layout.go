// Package memory provides a region-dispatched implementation of the CPU
// memory capability and a functional cache that can sit in front of it.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Region describes one contiguous address range.
type Region struct {
	// Name identifies the region in logs and errors.
	Name string `json:"name"`

	// Base is the first address of the region.
	Base uint32 `json:"base"`

	// Size is the length of the region in bytes.
	Size uint32 `json:"size"`

	// ReadOnly regions ignore CPU writes. They can still be filled with
	// Bus.Load.
	ReadOnly bool `json:"read_only"`
}

// End returns the address one past the last byte of the region, as a
// 64-bit value so that a region ending at 0xFFFFFFFF is representable.
func (r Region) End() uint64 {
	return uint64(r.Base) + uint64(r.Size)
}

// Contains reports whether addr falls inside the region.
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr) < r.End()
}

// Layout is the set of regions making up an address space.
type Layout struct {
	Regions []Region `json:"regions"`
}

// DefaultLayout returns a single 1MB read-write region at address 0.
func DefaultLayout() *Layout {
	return &Layout{
		Regions: []Region{
			{Name: "ram", Base: 0, Size: 1 << 20},
		},
	}
}

// LoadLayout loads a Layout from a JSON file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory layout file: %w", err)
	}

	layout := &Layout{}
	if err := json.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("failed to parse memory layout: %w", err)
	}

	return layout, nil
}

// SaveLayout writes a Layout to a JSON file.
func (l *Layout) SaveLayout(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize memory layout: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory layout file: %w", err)
	}

	return nil
}

// Validate checks that the layout has at least one region, that no region
// is empty or wraps past the top of the address space, and that regions
// do not overlap.
func (l *Layout) Validate() error {
	if len(l.Regions) == 0 {
		return fmt.Errorf("layout has no regions")
	}

	regions := l.sorted()
	for i, r := range regions {
		if r.Size == 0 {
			return fmt.Errorf("region %q has zero size", r.Name)
		}
		if r.End() > 1<<32 {
			return fmt.Errorf("region %q extends past the 32-bit address space", r.Name)
		}
		if i > 0 && uint64(r.Base) < regions[i-1].End() {
			return fmt.Errorf("region %q overlaps region %q", r.Name, regions[i-1].Name)
		}
	}

	return nil
}

// sorted returns the regions ordered by base address.
func (l *Layout) sorted() []Region {
	regions := make([]Region, len(l.Regions))
	copy(regions, l.Regions)
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Base < regions[j].Base
	})
	return regions
}
