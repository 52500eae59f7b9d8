package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/okian/meeple/internal/adapters/catalog"
	"github.com/okian/meeple/internal/adapters/pacing"
	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const listingHTML = `<html><body>
<table class="collection_table">
  <tr>
    <td class="collection_thumbnail"><a href="/boardgame/174430/gloomhaven"><img src="https://cf.example/gloom.jpg"></a></td>
  </tr>
  <tr>
    <td><a href="/boardgame/224517/brass-birmingham"><div class="collection_thumbnail"><img src="https://cf.example/brass.jpg"></div></a></td>
  </tr>
  <tr>
    <td class="collection_thumbnail"><a href="/boardgame/161936/pandemic-legacy"></a></td>
  </tr>
  <tr>
    <td class="collection_thumbnail"><img src="https://cf.example/orphan.jpg"></td>
  </tr>
</table>
</body></html>`

const emptyHTML = `<html><body><table class="collection_table"></table></body></html>`

const thingXML = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://example.org/terms">
  <item type="boardgame" id="174430">
    <name type="primary" sortindex="1" value="Gloomhaven"/>
    <name type="alternate" sortindex="1" value="Gloomhaven (alt)"/>
    <link type="boardgamecategory" id="1022" value="Adventure"/>
    <link type="boardgamemechanic" id="2023" value="Cooperative Game"/>
    <link type="boardgamecategory" id="1020" value="Exploration"/>
    <link type="boardgamedesigner" id="69802" value="Isaac Childres"/>
    <statistics page="1">
      <ratings>
        <averageweight value="3.9"/>
      </ratings>
    </statistics>
  </item>
</items>`

const singleNameXML = `<items><item id="1">
  <name type="alternate" value="Solo Name"/>
  <statistics><ratings><averageweight>2.25</averageweight></ratings></statistics>
</item></items>`

const badWeightXML = `<items><item id="2">
  <name type="primary" value="Odd Weight"/>
  <statistics><ratings><averageweight value="n/a"/></ratings></statistics>
</item></items>`

const noPrimaryXML = `<items><item id="3">
  <name type="alternate" value="A"/>
  <name type="alternate" value="B"/>
</item></items>`

type countingPacer struct{ n int64 }

func (p *countingPacer) Wait(ctx context.Context) error {
	atomic.AddInt64(&p.n, 1)
	return ctx.Err()
}

func newServer(userAgent *atomic.Value) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/browse/boardgame/page/", func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/browse/boardgame/page/1":
			fmt.Fprint(w, listingHTML)
		case "/browse/boardgame/page/2":
			fmt.Fprint(w, emptyHTML)
		default:
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	})
	mux.HandleFunc("/xmlapi2/thing", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stats") != "1" {
			http.Error(w, "stats required", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("id") {
		case "174430":
			fmt.Fprint(w, thingXML)
		case "1":
			fmt.Fprint(w, singleNameXML)
		case "2":
			fmt.Fprint(w, badWeightXML)
		case "3":
			fmt.Fprint(w, noPrimaryXML)
		case "4":
			fmt.Fprint(w, `<items></items>`)
		case "5":
			fmt.Fprint(w, `<items><item>`)
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	convey.Convey("Given a catalog client against a fake catalog", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		var ua atomic.Value
		srv := newServer(&ua)
		defer srv.Close()

		pages := &countingPacer{}
		details := &countingPacer{}
		c := catalog.New(
			catalog.WithBaseURL(srv.URL+"/"),
			catalog.WithUserAgent("meeple-test"),
			catalog.WithPagePacer(pages),
			catalog.WithDetailPacer(details),
		)

		convey.Convey("When listing a page with rows", func() {
			entries, err := c.ListPage(ctx, 1)

			convey.Convey("Then rows with ids are returned in page order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldResemble, []model.ListingEntry{
					{ID: "174430", Image: "https://cf.example/gloom.jpg"},
					{ID: "224517", Image: "https://cf.example/brass.jpg"},
					{ID: "161936", Image: ""},
				})
				convey.So(ua.Load(), convey.ShouldEqual, "meeple-test")
				convey.So(atomic.LoadInt64(&pages.n), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When listing a page without rows", func() {
			entries, err := c.ListPage(ctx, 2)

			convey.Convey("Then the result is empty and not an error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the listing endpoint fails", func() {
			_, err := c.ListPage(ctx, 3)

			convey.Convey("Then a fetch error is returned", func() {
				convey.So(errors.Is(err, model.ErrFetch), convey.ShouldBeTrue)
				convey.So(errors.Is(err, catalog.ErrUnexpectedStatus), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When asking for page zero", func() {
			_, err := c.ListPage(ctx, 0)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When fetching a full detail record", func() {
			d, err := c.FetchDetail(ctx, "174430")

			convey.Convey("Then the primary name, tags and weight are extracted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.Name, convey.ShouldEqual, "Gloomhaven")
				convey.So(d.Mechanics, convey.ShouldResemble, []string{"Cooperative Game"})
				convey.So(d.Categories, convey.ShouldResemble, []string{"Adventure", "Exploration"})
				convey.So(d.Weight, convey.ShouldEqual, 3.9)
				convey.So(atomic.LoadInt64(&details.n), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the record has a single non-primary name", func() {
			d, err := c.FetchDetail(ctx, "1")

			convey.Convey("Then that name is used and the weight text is read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.Name, convey.ShouldEqual, "Solo Name")
				convey.So(d.Weight, convey.ShouldEqual, 2.25)
				convey.So(d.Mechanics, convey.ShouldNotBeNil)
				convey.So(d.Categories, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the weight is unparsable", func() {
			d, err := c.FetchDetail(ctx, "2")

			convey.Convey("Then it falls back to zero", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.Weight, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When records are malformed", func() {
			for _, id := range []string{"3", "4", "5"} {
				_, err := c.FetchDetail(ctx, id)
				convey.So(errors.Is(err, model.ErrParse), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When the detail endpoint returns 404", func() {
			_, err := c.FetchDetail(ctx, "999")
			convey.So(errors.Is(err, model.ErrFetch), convey.ShouldBeTrue)
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.FetchDetail(cctx, "174430")

			convey.Convey("Then no request is sent and a fetch error is returned", func() {
				convey.So(errors.Is(err, model.ErrFetch), convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func TestClientTransportFailure(t *testing.T) {
	convey.Convey("Given a client pointing at a closed server", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		c := catalog.New(
			catalog.WithBaseURL(base),
			catalog.WithPagePacer(pacing.Noop()),
			catalog.WithDetailPacer(pacing.Noop()),
		)

		_, err := c.ListPage(context.Background(), 1)
		convey.So(errors.Is(err, model.ErrFetch), convey.ShouldBeTrue)
		_, err = c.FetchDetail(context.Background(), "1")
		convey.So(errors.Is(err, model.ErrFetch), convey.ShouldBeTrue)
	})
}
