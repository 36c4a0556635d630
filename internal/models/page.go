package models

const (
	DefaultPageLimit int64 = 50
	MaxPageLimit     int64 = 100
)

// PageLimit applies the listing defaults: absent or non-positive means 50, anything above 100 is capped.
func PageLimit(limit *int64) int64 {
	if limit == nil || *limit <= 0 {
		return DefaultPageLimit
	}
	if *limit > MaxPageLimit {
		return MaxPageLimit
	}
	return *limit
}
