package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var errDown = errors.New("catalog down")

// fakeCatalog serves canned pages and details.
type fakeCatalog struct {
	mu         sync.Mutex
	pages      map[int][]model.ListingEntry
	details    map[string]model.Detail
	pageErrors map[int]error
	failIDs    map[string]bool

	// gate, when set, holds every ListPage call until it is closed.
	gate chan struct{}
	// detailGate, when set, holds every FetchDetail call until it is closed.
	detailGate chan struct{}

	listCalls   atomic.Int64
	detailCalls atomic.Int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		pages:      make(map[int][]model.ListingEntry),
		details:    make(map[string]model.Detail),
		pageErrors: make(map[int]error),
		failIDs:    make(map[string]bool),
	}
}

// addGame puts a game on a page with the given detail.
func (f *fakeCatalog) addGame(page int, id, name string, weight float64, mechanics ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = append(f.pages[page], model.ListingEntry{ID: id, Image: "img/" + id + ".jpg"})
	f.details[id] = model.Detail{Name: name, Mechanics: mechanics, Categories: []string{}, Weight: weight}
}

func (f *fakeCatalog) ListPage(ctx context.Context, page int) ([]model.ListingEntry, error) {
	f.listCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, model.WrapKind("fake.list_page", model.ErrFetch, ctx.Err())
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pageErrors[page]; err != nil {
		return nil, model.WrapKind("fake.list_page", model.ErrFetch, err)
	}
	return append([]model.ListingEntry(nil), f.pages[page]...), nil
}

func (f *fakeCatalog) FetchDetail(ctx context.Context, id string) (model.Detail, error) {
	f.detailCalls.Add(1)
	if f.detailGate != nil {
		select {
		case <-f.detailGate:
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return model.Detail{}, model.WrapKind("fake.fetch_detail", model.ErrFetch, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return model.Detail{}, model.WrapKind("fake.fetch_detail", model.ErrFetch, errDown)
	}
	d, ok := f.details[id]
	if !ok {
		return model.Detail{}, model.WrapKind("fake.fetch_detail", model.ErrParse, fmt.Errorf("no item %s", id))
	}
	return d, nil
}

func names(snap model.Snapshot) []string {
	out := make([]string, 0, snap.Len())
	for _, c := range snap.Candidates {
		out = append(out, c.Name)
	}
	return out
}
