package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors use the meeple namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.cacheHits.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "meeple_recommender_cache_hits_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.rebuildsStarted.Inc()

			Convey("Then names and labels reflect the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_sub_pfx_rebuilds_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording cache and rebuild metrics", func() {
			before := testutil.ToFloat64(globalManager.cacheMisses)
			RecordCacheMiss()
			RecordCacheHit()
			RecordCacheCorrupt()
			RecordRebuildStarted()
			RecordRebuildFailed()
			RecordRebuildShared()
			RecordRebuildDuration(2 * time.Second)
			UpdateSnapshotCandidates(42)
			UpdateSnapshotAge(time.Hour)

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.cacheMisses), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.snapshotCandidates), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.snapshotAgeSeconds), ShouldEqual, 3600)
			})
		})

		Convey("When recording acquisition metrics", func() {
			So(func() {
				RecordListingPage(100)
				RecordListingDuplicate()
				RecordDetailFetched()
				RecordDetailError("fetch")
				RecordDetailError("parse")
				RecordFetchLatency("listing", 120)
				RecordFetchLatency("detail", 40)
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				RecordQueueEnqueueError()
				AddWorkerActive(2)
				AddWorkerActive(-2)
			}, ShouldNotPanic)
		})

		Convey("When recording request metrics", func() {
			So(func() {
				RecordRecommendRequest("ok")
				RecordRecommendLatency(12)
				RecordRecommendResults(5)
				RecordHTTPRequest("recommend", "POST", "200")
				RecordHTTPRequestDuration("recommend", "POST", "200", 12)
				RecordErrorByEndpoint("recommend", "POST", "client_error")
				RecordErrorByType("client_error", "medium")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("When reading the registry", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
