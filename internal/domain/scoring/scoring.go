// Package scoring ranks cached candidates against a free-text favorites list.
//
// The engine is a pure function of its inputs: it performs no I/O and keeps
// no state between calls, so one Engine may serve any number of concurrent
// requests.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/meeple/internal/domain/model"
)

// Default scoring parameters.
const (
	defaultLimit        = 5
	defaultKeywordBonus = 10.0
	defaultWeightWindow = 5.0
)

// Reason templates.
const (
	matchReasonFormat = "Matches your favorite games with a score of %s."
	popularReason     = "Recommended as a popular game you might enjoy."
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLimit caps the number of recommendations returned.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithKeywordBonus sets the score added per favorite found in a name.
func WithKeywordBonus(bonus float64) Option {
	return func(e *Engine) {
		if bonus > 0 {
			e.keywordBonus = bonus
		}
	}
}

// WithWeightWindow sets the maximum weight-proximity contribution.
func WithWeightWindow(window float64) Option {
	return func(e *Engine) {
		if window >= 0 {
			e.weightWindow = window
		}
	}
}

// Scored is a candidate with its per-request score.
type Scored struct {
	Candidate model.Candidate
	Score     float64
}

// Engine scores and ranks candidates.
type Engine struct {
	limit        int
	keywordBonus float64
	weightWindow float64
}

// NewEngine creates an engine with the default parameters.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		limit:        defaultLimit,
		keywordBonus: defaultKeywordBonus,
		weightWindow: defaultWeightWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score returns every candidate with its score, in input order.
func (e *Engine) Score(candidates []model.Candidate, favorites []string) []Scored {
	terms := normalizeTerms(favorites)
	avg := meanWeight(candidates)

	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		score := 0.0
		name := strings.ToLower(c.Name)
		for _, term := range terms {
			if strings.Contains(name, term) {
				score += e.keywordBonus
			}
		}
		if c.Weight != 0 && len(favorites) > 0 {
			score += math.Max(0, e.weightWindow-math.Abs(c.Weight-avg))
		}
		out[i] = Scored{Candidate: c, Score: score}
	}
	return out
}

// Rank scores candidates and returns the top entries, highest score first.
// Ties keep input order.
func (e *Engine) Rank(candidates []model.Candidate, favorites []string) []Scored {
	scored := e.Score(candidates, favorites)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > e.limit {
		scored = scored[:e.limit]
	}
	return scored
}

// Recommend ranks candidates and renders them with a reason each.
// An empty pool yields an empty, non-nil slice.
func (e *Engine) Recommend(candidates []model.Candidate, favorites []string) []model.Recommendation {
	ranked := e.Rank(candidates, favorites)
	out := make([]model.Recommendation, 0, len(ranked))
	for _, s := range ranked {
		rec := model.Recommendation{
			Name:   s.Candidate.Name,
			Reason: Reason(s.Score),
		}
		if s.Candidate.Image != "" {
			img := s.Candidate.Image
			rec.Image = &img
		}
		out = append(out, rec)
	}
	return out
}

// Reason renders the justification sentence for a score.
func Reason(score float64) string {
	if score > 0 {
		return fmt.Sprintf(matchReasonFormat, formatScore(score))
	}
	return popularReason
}

// formatScore rounds to one decimal and drops a trailing ".0".
func formatScore(score float64) string {
	return strconv.FormatFloat(math.Round(score*10)/10, 'f', -1, 64)
}

// normalizeTerms lower-cases and trims favorites. Blank entries are dropped;
// repeated entries are kept since each one counts on its own.
func normalizeTerms(favorites []string) []string {
	terms := make([]string, 0, len(favorites))
	for _, f := range favorites {
		if t := strings.ToLower(strings.TrimSpace(f)); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// meanWeight averages weight over the whole pool, unknown (zero) weights
// included.
func meanWeight(candidates []model.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candidates {
		sum += c.Weight
	}
	return sum / float64(len(candidates))
}
