package geometry

import (
	"errors"
	"fmt"
)

const (
	// DefaultSectors is the number of sectors on the chip.
	DefaultSectors = 1024
	// DefaultCellsPerSector is the number of addressable cells in one sector.
	DefaultCellsPerSector = 65536
	// DefaultBitsPerCell is the word width of one cell.
	DefaultBitsPerCell = 16
)

// SectorID identifies a sector by its starting address.
type SectorID uint64

// Layout is the address-space geometry.
type Layout struct {
	Sectors        int `toml:"sectors"`
	CellsPerSector int `toml:"cells_per_sector"`
	BitsPerCell    int `toml:"bits_per_cell"`
}

// DefaultLayout returns the 1024 x 65536 x 16 chip geometry.
func DefaultLayout() Layout {
	return Layout{
		Sectors:        DefaultSectors,
		CellsPerSector: DefaultCellsPerSector,
		BitsPerCell:    DefaultBitsPerCell,
	}
}

// Validate reports whether the layout describes a usable geometry.
func (l Layout) Validate() error {
	if l.Sectors <= 0 {
		return errors.New("geometry.sectors must be positive")
	}
	if l.CellsPerSector <= 0 {
		return errors.New("geometry.cells_per_sector must be positive")
	}
	if l.BitsPerCell <= 0 || l.BitsPerCell > 64 {
		return errors.New("geometry.bits_per_cell must be between 1 and 64")
	}
	return nil
}

// AddressSpace returns the total number of addresses.
func (l Layout) AddressSpace() uint64 {
	return uint64(l.Sectors) * uint64(l.CellsPerSector)
}

// BitsPerSector returns the number of bits tracked per sector.
func (l Layout) BitsPerSector() int {
	return l.CellsPerSector * l.BitsPerCell
}

// Sector returns the identifier of the sector at the given index.
func (l Layout) Sector(index int) SectorID {
	return SectorID(uint64(index) * uint64(l.CellsPerSector))
}

// Index returns the sector index for id, or an error when id is not a sector
// boundary inside the address space.
func (l Layout) Index(id SectorID) (int, error) {
	if l.CellsPerSector <= 0 {
		return 0, errors.New("geometry: cells per sector not set")
	}
	addr := uint64(id)
	if addr%uint64(l.CellsPerSector) != 0 {
		return 0, fmt.Errorf("sector %d is not aligned to %d", addr, l.CellsPerSector)
	}
	if addr >= l.AddressSpace() {
		return 0, fmt.Errorf("sector %d outside address space [0, %d)", addr, l.AddressSpace())
	}
	return int(addr / uint64(l.CellsPerSector)), nil
}

// AllSectors enumerates every sector identifier in ascending order.
func (l Layout) AllSectors() []SectorID {
	ids := make([]SectorID, l.Sectors)
	for i := range ids {
		ids[i] = l.Sector(i)
	}
	return ids
}
