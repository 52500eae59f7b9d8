package smoketest

import (
	"errors"
	"fmt"
)

var (
	ErrTooMany       = errors.New("too many recommendations")
	ErrDuplicateName = errors.New("duplicate recommendation")
	ErrEmptyField    = errors.New("recommendation has an empty field")
	ErrNondetermined = errors.New("identical input produced different output")
)

type recKey struct {
	name     string
	image    string
	hasImage bool
}

// verifyResponse checks one /recommend result against the response contract.
// The catalog may list two games under one title, so only entries that match
// on both name and image count as duplicates.
func verifyResponse(recs []Recommendation) error {
	if len(recs) > MaxRecommendations {
		return fmt.Errorf("%w: got %d", ErrTooMany, len(recs))
	}
	seen := make(map[recKey]struct{}, len(recs))
	for i, r := range recs {
		if r.Name == "" || r.Reason == "" {
			return fmt.Errorf("%w: index %d", ErrEmptyField, i)
		}
		key := recKey{name: r.Name}
		if r.Image != nil {
			key.image, key.hasImage = *r.Image, true
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, r.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// verifySame reports whether two results for the same input are identical.
func verifySame(a, b []Recommendation) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: lengths %d and %d", ErrNondetermined, len(a), len(b))
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Reason != b[i].Reason || !sameImage(a[i].Image, b[i].Image) {
			return fmt.Errorf("%w: index %d (%q vs %q)", ErrNondetermined, i, a[i].Name, b[i].Name)
		}
	}
	return nil
}

func sameImage(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
