package cache

import "github.com/Sternrassler/moviemeta/pkg/movie"

// Key identifies a cached lookup.
type Key string

// KeyFor returns the cache key for a free-text title. Case and surrounding
// whitespace are ignored, so "Inception" and "inception " share one entry.
func KeyFor(title string) Key {
	return Key(movie.NormalizeTitle(title))
}

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}
