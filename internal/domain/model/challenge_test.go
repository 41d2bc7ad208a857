package model_test

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

const bucketsJSON = `{
	"current": {
		"chapterSet": "WC_12_",
		"challengeID": "c12",
		"levels": [
			{"name": "Gravity Well", "id": "SP_3", "physicsmod": {"gravity": 0.5, "airjumps": 2, "nogems": true, "futuremod": 7}},
			{"name": "Slide", "id": "SP_9", "physicsmod": {"startpowerup": "Blast"}}
		],
		"name": {"en": "Low Gravity", "de": "Niedrige Schwerkraft"},
		"startDate": "2024-01-03T17:00:00.000Z",
		"endDate": "2024-01-10T17:00:00.000Z"
	},
	"previous": {
		"chapterSet": "WC_11_",
		"challengeID": "c11",
		"levels": [],
		"name": {"en": "Bouncy"},
		"startDate": "2023-12-27T17:00:00.000Z",
		"endDate": "2024-01-03T17:00:00.000Z"
	},
	"sheetID": 3,
	"curID": 12,
	"level": "CHALLENGE_DATA"
}`

func TestBuckets(t *testing.T) {
	convey.Convey("Given a decoded score bucket pair", t, func() {
		var b model.Buckets
		err := sonic.UnmarshalString(bucketsJSON, &b)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then bucket metadata should be available", func() {
			convey.So(b.CurID, convey.ShouldEqual, 12)
			convey.So(b.Current.ChallengeID, convey.ShouldEqual, "c12")
			convey.So(b.Current.StartDate.Before(b.Current.EndDate), convey.ShouldBeTrue)
			convey.So(b.Previous.EndDate.Equal(b.Current.StartDate), convey.ShouldBeTrue)
		})

		convey.Convey("Then names should resolve per language", func() {
			convey.So(b.Current.Name(model.LangEnglish), convey.ShouldEqual, "Low Gravity")
			convey.So(b.Current.Name(model.LangGerman), convey.ShouldEqual, "Niedrige Schwerkraft")
			convey.So(b.Current.Name(model.LangKorean), convey.ShouldEqual, model.UnknownName)
		})

		convey.Convey("Then transient ids should be positional", func() {
			convey.So(b.Current.TransientID(0), convey.ShouldEqual, "WC_12_0")
			convey.So(b.Current.TransientID(1), convey.ShouldEqual, "WC_12_1")
		})

		convey.Convey("Then modifiers should be sorted by key", func() {
			mods := b.Current.Levels[0].Modifiers
			convey.So(len(mods), convey.ShouldEqual, 4)
			convey.So(mods[0].Key, convey.ShouldEqual, "airjumps")
			convey.So(mods[1].Key, convey.ShouldEqual, "futuremod")
			convey.So(mods[1].Known(), convey.ShouldBeFalse)
			convey.So(mods[2].Key, convey.ShouldEqual, "gravity")
			convey.So(mods[3].Key, convey.ShouldEqual, "nogems")
		})
	})
}
