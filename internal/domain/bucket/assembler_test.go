package bucket_test

import (
	"errors"
	"testing"

	"github.com/okian/pdmimport/internal/domain/bucket"
	"github.com/okian/pdmimport/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(category string, ts int64, fields map[string]any) model.Record {
	f := map[string]any{"timestamp": ts, "source": true}
	for k, v := range fields {
		f[k] = v
	}
	return model.Record{Category: category, Timestamp: ts, Fields: f}
}

func TestAssembler(t *testing.T) {
	Convey("Given an empty assembler", t, func() {
		a := bucket.New()

		Convey("When nothing is appended", func() {
			cols := a.Assemble()

			Convey("Then all collections are empty", func() {
				So(cols.Len(), ShouldEqual, 0)
				So(a.Len(), ShouldEqual, 0)
				So(a.Counts(), ShouldHaveLength, 6)
			})
		})

		Convey("When an unknown category is appended", func() {
			err := a.Append(rec("occlusion", 1, nil))

			Convey("Then it is refused", func() {
				So(errors.Is(err, bucket.ErrUnknownBucket), ShouldBeTrue)
				So(a.Len(), ShouldEqual, 0)
			})
		})

		Convey("When records of every bucket are interleaved", func() {
			in := []model.Record{
				rec("download", 9, map[string]any{"type": "download"}),
				rec("carb", 1, map[string]any{"carbs": int64(30)}),
				rec("bolus", 5, map[string]any{"units": 2.5}),
				rec("deactivate", 8, map[string]any{"type": "deactivate"}),
				rec("blood_glucose", 3, map[string]any{"bgReading": int64(140)}),
				rec("bolus", 2, map[string]any{"units": 1.0, "extendedDurationMinutes": int64(45)}),
				rec("activate", 7, map[string]any{"type": "activate"}),
				rec("carb", 4, map[string]any{"carbs": int64(12)}),
				rec("blood_glucose", 1, map[string]any{"bgReading": int64(90)}),
			}
			for _, r := range in {
				So(a.Append(r), ShouldBeNil)
			}
			cols := a.Assemble()

			Convey("Then glucose readings keep decode order", func() {
				So(cols.GlucoseReadings, ShouldResemble, []model.GlucoseReading{
					{Date: 3, SVG: int64(140), Source: true},
					{Date: 1, SVG: int64(90), Source: true},
				})
			})

			Convey("Then treatments are bolus then carb", func() {
				So(cols.TreatmentEvents, ShouldHaveLength, 4)
				So(cols.TreatmentEvents[0], ShouldResemble, model.BolusTreatment{Timestamp: 5, Insulin: 2.5, Source: true})
				So(cols.TreatmentEvents[1], ShouldResemble, model.BolusTreatment{
					Timestamp: 2, Insulin: 1.0, ExtendedDurationMinutes: int64(45), Source: true,
				})
				So(cols.TreatmentEvents[2], ShouldResemble, model.Document{"timestamp": int64(1), "source": true, "carbs": int64(30)})
				So(cols.TreatmentEvents[3], ShouldResemble, model.Document{"timestamp": int64(4), "source": true, "carbs": int64(12)})
			})

			Convey("Then status events are activate, deactivate, download", func() {
				So(cols.StatusEvents, ShouldHaveLength, 3)
				So(cols.StatusEvents[0]["type"], ShouldEqual, "activate")
				So(cols.StatusEvents[1]["type"], ShouldEqual, "deactivate")
				So(cols.StatusEvents[2]["type"], ShouldEqual, "download")
			})

			Convey("Then counts reflect every bucket", func() {
				So(a.Len(), ShouldEqual, len(in))
				counts := a.Counts()
				So(counts["bolus"], ShouldEqual, 2)
				So(counts["carb"], ShouldEqual, 2)
				So(counts["blood_glucose"], ShouldEqual, 2)
				So(counts["download"], ShouldEqual, 1)
			})
		})

		Convey("When a bolus carries a zero duration", func() {
			So(a.Append(rec("bolus", 1, map[string]any{"units": 3.0, "extendedDurationMinutes": 0})), ShouldBeNil)
			cols := a.Assemble()

			Convey("Then the treatment omits it", func() {
				So(cols.TreatmentEvents[0].(model.BolusTreatment).ExtendedDurationMinutes, ShouldBeNil)
			})
		})
	})
}
