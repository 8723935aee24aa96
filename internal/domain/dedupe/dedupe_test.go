package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/formcheck/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, int64(0))
			})
		})

		Convey("When recording attempts", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the attempt is new", func() {
				seen := d.SeenAndRecord(ctx, "attempt-1")

				Convey("Then it should return false and record the attempt", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, int64(1))
				})
			})

			Convey("And the attempt was already seen", func() {
				d.SeenAndRecord(ctx, "attempt-1")
				seen := d.SeenAndRecord(ctx, "attempt-1")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, int64(1))
				})
			})
		})

		Convey("When unrecording attempts", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the attempt exists", func() {
				d.SeenAndRecord(ctx, "attempt-1")
				d.Unrecord(ctx, "attempt-1")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, int64(0))
					So(d.SeenAndRecord(ctx, "attempt-1"), ShouldBeFalse)
				})
			})

			Convey("And the attempt does not exist", func() {
				d.Unrecord(ctx, "nonexistent")

				Convey("Then the size is unchanged", func() {
					So(d.Size(), ShouldEqual, int64(0))
				})
			})
		})

		Convey("When using bounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"attempt-1", "attempt-2", "attempt-3"} {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}

			Convey("And one more attempt arrives", func() {
				So(d.SeenAndRecord(ctx, "attempt-4"), ShouldBeFalse)

				Convey("Then the oldest is evicted and the rest are kept", func() {
					So(d.Size(), ShouldEqual, int64(3))
					So(d.SeenAndRecord(ctx, "attempt-4"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "attempt-3"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "attempt-2"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "attempt-1"), ShouldBeFalse)
					So(d.Size(), ShouldEqual, int64(3))
				})
			})

			Convey("And a middle attempt is unrecorded before overflow", func() {
				d.Unrecord(ctx, "attempt-2")
				So(d.SeenAndRecord(ctx, "attempt-4"), ShouldBeFalse)

				Convey("Then nothing is evicted", func() {
					So(d.Size(), ShouldEqual, int64(3))
					So(d.SeenAndRecord(ctx, "attempt-1"), ShouldBeTrue)
				})
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const n = 1000
			for i := 0; i < n; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("attempt-%d", i))
			}

			Convey("Then every attempt is kept", func() {
				So(d.Size(), ShouldEqual, int64(n))
				So(d.SeenAndRecord(ctx, "attempt-0"), ShouldBeTrue)
				d.Unrecord(ctx, "attempt-0")
				So(d.Size(), ShouldEqual, int64(n-1))
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		ctx := context.Background()
		const numGoroutines = 10
		const perGoroutine = 100

		Convey("When multiple goroutines record attempts concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("attempt-%d-%d", g, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then all attempts should be recorded", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*perGoroutine))
			})
		})

		Convey("When the same attempt is submitted concurrently", func() {
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fresh int
			)
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "same") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one caller records it", func() {
				So(fresh, ShouldEqual, 1)
			})
		})
	})
}
