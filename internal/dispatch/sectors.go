package dispatch

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"flipscan/internal/geometry"
	"flipscan/internal/services"
)

// AllSectors enumerates every sector identifier of the layout in address order.
func AllSectors(layout geometry.Layout) []geometry.SectorID {
	return layout.AllSectors()
}

// ParseSectors parses a comma-separated list of sector start addresses,
// validating each against layout. The result is sorted and deduplicated.
func ParseSectors(layout geometry.Layout, list string) ([]geometry.SectorID, error) {
	var ids []uint64
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sector %q", services.ErrConfiguration, field)
		}
		ids = append(ids, v)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty sector list", services.ErrConfiguration)
	}
	return ResolveSectors(layout, ids)
}

// ResolveSectors validates raw sector addresses against layout and returns
// them sorted without duplicates.
func ResolveSectors(layout geometry.Layout, ids []uint64) ([]geometry.SectorID, error) {
	out := make([]geometry.SectorID, 0, len(ids))
	for _, raw := range ids {
		id := geometry.SectorID(raw)
		if _, err := layout.Index(id); err != nil {
			return nil, fmt.Errorf("%w: %w", services.ErrConfiguration, err)
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
