package atmos

import "github.com/san-kum/terrasim/internal/scale"

// StaleReason says why a cached field must be recomputed.
type StaleReason int

const (
	Fresh StaleReason = iota
	StaleEmpty
	StaleScale
	StaleElevation
	StaleAge
	StaleExplicit
)

func (r StaleReason) String() string {
	switch r {
	case Fresh:
		return "fresh"
	case StaleEmpty:
		return "empty"
	case StaleScale:
		return "scale changed"
	case StaleElevation:
		return "elevation changed"
	case StaleAge:
		return "refresh interval elapsed"
	case StaleExplicit:
		return "invalidated"
	}
	return "unknown"
}

// CacheKey identifies the inputs a cached field was computed from.
type CacheKey struct {
	Scale     scale.WorldScale
	Elevation uint64
}

// FieldCache tracks the validity of one derived field. It holds no data;
// the owner keeps the field and asks Stale before reusing it.
type FieldCache struct {
	refreshTicks int
	key          CacheKey
	filled       bool
	age          int
	invalidated  bool
}

// NewFieldCache expires entries after refreshTicks calls to Age. Zero or
// negative disables age-based expiry.
func NewFieldCache(refreshTicks int) *FieldCache {
	return &FieldCache{refreshTicks: refreshTicks}
}

func (c *FieldCache) Stale(key CacheKey) StaleReason {
	switch {
	case !c.filled:
		return StaleEmpty
	case c.invalidated:
		return StaleExplicit
	case key.Scale != c.key.Scale:
		return StaleScale
	case key.Elevation != c.key.Elevation:
		return StaleElevation
	case c.refreshTicks > 0 && c.age >= c.refreshTicks:
		return StaleAge
	}
	return Fresh
}

// Store records that the field was recomputed for key.
func (c *FieldCache) Store(key CacheKey) {
	c.key = key
	c.filled = true
	c.age = 0
	c.invalidated = false
}

// Age advances the entry by one tick.
func (c *FieldCache) Age() { c.age++ }

func (c *FieldCache) Invalidate() { c.invalidated = true }
