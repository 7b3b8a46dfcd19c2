package renderer

// LocationCache caches attribute or uniform locations of one program so each
// name is queried from the device at most once. Missing names are cached as -1.
type LocationCache struct {
	locations map[string]int32
	lookup    func(name string) int32
}

// NewLocationCache creates a cache resolving misses through lookup.
func NewLocationCache(lookup func(name string) int32) *LocationCache {
	return &LocationCache{
		locations: make(map[string]int32),
		lookup:    lookup,
	}
}

// GetLocation returns the cached location or fetches and caches it
func (lc *LocationCache) GetLocation(name string) int32 {
	if loc, exists := lc.locations[name]; exists {
		return loc
	}

	loc := lc.lookup(name)
	lc.locations[name] = loc
	return loc
}

// Len reports how many names have been resolved.
func (lc *LocationCache) Len() int {
	return len(lc.locations)
}

// Clear drops every cached location.
func (lc *LocationCache) Clear() {
	lc.locations = make(map[string]int32)
}
