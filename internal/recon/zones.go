package recon

import "strings"

// Zones is the set of accepted spellings for the boundary zone.
// Location names are folded (lower + trim) but not serial-stripped;
// "Dock-12" is a real location name, not a label with a serial.
type Zones struct {
	set map[string]struct{}
}

func NewZones(aliases []string) Zones {
	set := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		if f := foldLocation(a); f != "" {
			set[f] = struct{}{}
		}
	}
	return Zones{set: set}
}

func (z Zones) Contains(location string) bool {
	_, ok := z.set[foldLocation(location)]
	return ok
}

// Classify returns the crossing direction for an old -> new move.
func (z Zones) Classify(oldLocation, newLocation string) Direction {
	oldIn := z.Contains(oldLocation)
	newIn := z.Contains(newLocation)
	switch {
	case oldIn && !newIn:
		return DirectionOut
	case newIn && !oldIn:
		return DirectionIn
	default:
		return DirectionNone
	}
}

func foldLocation(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
