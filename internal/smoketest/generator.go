package smoketest

import "strings"

// DefaultFavorites is the pool used when none is configured.
var DefaultFavorites = []string{
	"Catan", "Ticket to Ride", "Pandemic", "Azul", "Wingspan",
	"Carcassonne", "Terraforming Mars", "Gloomhaven",
}

// generateRequests builds n favorites lists from the pool. The lists cycle,
// so any pool yields repeated inputs and the determinism check has pairs to
// compare.
func generateRequests(pool []string, n int) [][]string {
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		size := 1 + i%maxFavoritesPerRequest
		if size > len(pool) {
			size = len(pool)
		}
		start := (i / maxFavoritesPerRequest) % len(pool)
		favs := make([]string, 0, size)
		for j := 0; j < size; j++ {
			favs = append(favs, pool[(start+j)%len(pool)])
		}
		out = append(out, favs)
	}
	return out
}

// ParseFavorites splits a comma separated list, dropping blanks.
func ParseFavorites(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func requestKey(favorites []string) string {
	return strings.Join(favorites, "\x1f")
}
