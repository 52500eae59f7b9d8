package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/meeple/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(100)

		Convey("Then it starts empty", func() {
			So(d, ShouldNotBeNil)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When an id is new", func() {
			seen := d.SeenAndRecord(ctx, "174430")

			Convey("Then it should return false and record the id", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id repeats", func() {
			d.SeenAndRecord(ctx, "174430")
			seen := d.SeenAndRecord(ctx, "174430")

			Convey("Then it should return true without growing", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When more ids than the hint are recorded", func() {
			for i := 0; i < 500; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)), ShouldBeFalse)
			}

			Convey("Then none of them are forgotten", func() {
				So(d.Size(), ShouldEqual, 500)
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "id-499"), ShouldBeTrue)
			})
		})

		Convey("When a negative hint is given", func() {
			nd := dedupe.NewInMemoryDeduper(-1)
			So(nd.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(0)
		var admitted atomic.Int64
		var wg sync.WaitGroup

		for g := 0; g < 16; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)) {
						admitted.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is admitted exactly once", func() {
			So(admitted.Load(), ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
