package watermark_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/internal/domain/watermark"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeFinder struct {
	doc   model.Document
	found bool
	err   error

	coll   model.Collection
	filter model.Document
	sort   string
}

func (f *fakeFinder) FindLatest(_ context.Context, coll model.Collection, filter model.Document, sortField string) (model.Document, bool, error) {
	f.coll, f.filter, f.sort = coll, filter, sortField
	return f.doc, f.found, f.err
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store holding a prior download event", t, func() {
		f := &fakeFinder{doc: model.Document{"timestamp": int64(1704067200000), "type": "download"}, found: true}
		r := watermark.NewResolver(f)

		Convey("When resolving", func() {
			wm, err := r.Resolve(ctx)

			Convey("Then its timestamp is the watermark", func() {
				So(err, ShouldBeNil)
				So(wm, ShouldEqual, model.Watermark(1704067200000))
			})

			Convey("Then the query targets download status events by timestamp", func() {
				So(f.coll, ShouldEqual, model.CollectionStatus)
				So(f.filter, ShouldResemble, model.Document{"type": "download"})
				So(f.sort, ShouldEqual, "timestamp")
			})
		})
	})

	Convey("Given a download timestamp stored as a double or date", t, func() {
		Convey("Then both resolve", func() {
			wm, err := watermark.NewResolver(&fakeFinder{doc: model.Document{"timestamp": 42.0}, found: true}).Resolve(ctx)
			So(err, ShouldBeNil)
			So(wm, ShouldEqual, model.Watermark(42))

			at := time.UnixMilli(99)
			wm, err = watermark.NewResolver(&fakeFinder{doc: model.Document{"timestamp": at}, found: true}).Resolve(ctx)
			So(err, ShouldBeNil)
			So(wm, ShouldEqual, model.Watermark(99))
		})
	})

	Convey("Given a store without download events", t, func() {
		f := &fakeFinder{}

		Convey("When bootstrap is off", func() {
			_, err := watermark.NewResolver(f).Resolve(ctx)

			Convey("Then resolution fails", func() {
				So(errors.Is(err, watermark.ErrNoPriorImport), ShouldBeTrue)
			})
		})

		Convey("When bootstrap is on", func() {
			wm, err := watermark.NewResolver(f, watermark.WithBootstrap(true)).Resolve(ctx)

			Convey("Then everything is imported", func() {
				So(err, ShouldBeNil)
				So(wm, ShouldEqual, watermark.Beginning)
			})
		})
	})

	Convey("Given a download event with an unusable timestamp", t, func() {
		for _, doc := range []model.Document{{}, {"timestamp": "2024-01-01"}, {"timestamp": nil}, {"timestamp": true}} {
			_, err := watermark.NewResolver(&fakeFinder{doc: doc, found: true}).Resolve(ctx)
			So(errors.Is(err, watermark.ErrInvalidWatermark), ShouldBeTrue)
		}
	})

	Convey("Given a failing store", t, func() {
		boom := errors.New("boom")
		_, err := watermark.NewResolver(&fakeFinder{err: boom}, watermark.WithBootstrap(true)).Resolve(ctx)

		Convey("Then the error is returned even in bootstrap mode", func() {
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
