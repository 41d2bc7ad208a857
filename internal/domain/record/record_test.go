package record_test

import (
	"testing"

	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/internal/domain/record"
	"github.com/smartystreets/goconvey/convey"
)

func score(level string, t float64) model.Score {
	return model.Score{LevelID: level, Time: t, Username: "marble"}
}

func TestDiff(t *testing.T) {
	convey.Convey("Given a confirmed record of 32.5 on L1", t, func() {
		confirmed := record.Confirmed{"L1": score("L1", 32.5)}

		convey.Convey("A faster fetched time is announced and confirmed", func() {
			res := record.Diff(confirmed, []model.Score{score("L1", 31.9)})

			convey.So(res.Announcements, convey.ShouldHaveLength, 1)
			convey.So(res.Announcements[0].New.Time, convey.ShouldEqual, 31.9)
			convey.So(res.Announcements[0].Previous.Time, convey.ShouldEqual, 32.5)
			convey.So(res.Announcements[0].Improvement(), convey.ShouldAlmostEqual, 0.6, 1e-9)
			convey.So(confirmed["L1"].Time, convey.ShouldEqual, 31.9)
			convey.So(res.Missing, convey.ShouldBeEmpty)
		})

		convey.Convey("An equal time is not announced", func() {
			res := record.Diff(confirmed, []model.Score{score("L1", 32.5)})

			convey.So(res.Announcements, convey.ShouldBeEmpty)
			convey.So(confirmed["L1"].Time, convey.ShouldEqual, 32.5)
		})

		convey.Convey("A slower time is ignored", func() {
			res := record.Diff(confirmed, []model.Score{score("L1", 40)})

			convey.So(res.Announcements, convey.ShouldBeEmpty)
			convey.So(confirmed["L1"].Time, convey.ShouldEqual, 32.5)
		})

		convey.Convey("A level without a confirmed record is reported missing", func() {
			res := record.Diff(confirmed, []model.Score{score("L9", 10)})

			convey.So(res.Announcements, convey.ShouldBeEmpty)
			convey.So(res.Missing, convey.ShouldResemble, []string{"L9"})
			_, ok := confirmed["L9"]
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("The confirmed time never increases across ticks", func() {
			ticks := [][]model.Score{
				{score("L1", 31.0)},
				{score("L1", 33.0)},
				{score("L1", 31.0)},
				{score("L1", 30.2)},
			}
			announced := 0
			for _, batch := range ticks {
				announced += len(record.Diff(confirmed, batch).Announcements)
			}
			convey.So(announced, convey.ShouldEqual, 2)
			convey.So(confirmed["L1"].Time, convey.ShouldEqual, 30.2)
		})
	})

	convey.Convey("Announcements keep discovery order", t, func() {
		confirmed := record.Confirmed{"A": score("A", 10), "B": score("B", 20), "C": score("C", 30)}
		res := record.Diff(confirmed, []model.Score{score("C", 29), score("A", 9), score("B", 25)})

		convey.So(res.Announcements, convey.ShouldHaveLength, 2)
		convey.So(res.Announcements[0].New.LevelID, convey.ShouldEqual, "C")
		convey.So(res.Announcements[1].New.LevelID, convey.ShouldEqual, "A")
	})

	convey.Convey("Clone is independent of the original", t, func() {
		confirmed := record.Confirmed{"A": score("A", 10)}
		snap := confirmed.Clone()
		record.Diff(confirmed, []model.Score{score("A", 5)})

		convey.So(snap["A"].Time, convey.ShouldEqual, 10)
		convey.So(confirmed["A"].Time, convey.ShouldEqual, 5)
	})
}
