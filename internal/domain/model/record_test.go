package model_test

import (
	"testing"
	"time"

	model "github.com/okian/ladder/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestWinRate(t *testing.T) {
	convey.Convey("Given won/played pairs", t, func() {
		cases := []struct {
			won, played int
			want        float64
		}{
			{2, 3, 0.67},
			{1, 3, 0.33},
			{5, 7, 0.71},
			{2, 2, 1.0},
			{0, 2, 0.0},
			{1, 8, 0.13},
			{0, 0, 0.0},
		}

		convey.Convey("Then the rate is rounded half up to two decimals", func() {
			for _, c := range cases {
				convey.So(model.WinRate(c.won, c.played), convey.ShouldEqual, c.want)
			}
		})
	})
}

func TestRecord_Apply(t *testing.T) {
	convey.Convey("Given a zeroed record", t, func() {
		created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		rec := model.Record{ID: "r1", PlayerID: "p1", Season: "2025", CreatedAt: created, UpdatedAt: created}

		convey.Convey("When a win and a loss are applied", func() {
			t1 := created.Add(time.Minute)
			rec.Apply(model.Delta{Points: 3, Played: 1, Won: 1}, t1)
			t2 := t1.Add(time.Minute)
			rec.Apply(model.Delta{Played: 1}, t2)

			convey.Convey("Then counters and win rate follow", func() {
				convey.So(rec.TotalPoints, convey.ShouldEqual, 3)
				convey.So(rec.MatchesPlayed, convey.ShouldEqual, 2)
				convey.So(rec.MatchesWon, convey.ShouldEqual, 1)
				convey.So(rec.WinRate, convey.ShouldEqual, 0.5)
				convey.So(rec.LastUpdated, convey.ShouldEqual, t2)
				convey.So(rec.UpdatedAt, convey.ShouldEqual, t2)
				convey.So(rec.CreatedAt, convey.ShouldEqual, created)
			})
		})

		convey.Convey("When a zero delta is applied", func() {
			t1 := created.Add(time.Hour)
			rec.Apply(model.Delta{}, t1)

			convey.Convey("Then only UpdatedAt moves", func() {
				convey.So(rec.UpdatedAt, convey.ShouldEqual, t1)
				convey.So(rec.LastUpdated.IsZero(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestStanding_Compare(t *testing.T) {
	convey.Convey("Given standings", t, func() {
		top := model.Standing{Points: 10, WinRate: 0.8, Won: 4}

		convey.Convey("Then points dominate", func() {
			convey.So(top.Compare(model.Standing{Points: 7, WinRate: 1, Won: 9}), convey.ShouldEqual, 1)
		})
		convey.Convey("Then win rate breaks equal points", func() {
			convey.So(top.Compare(model.Standing{Points: 10, WinRate: 0.9, Won: 1}), convey.ShouldEqual, -1)
		})
		convey.Convey("Then matches won breaks equal rates", func() {
			convey.So(top.Compare(model.Standing{Points: 10, WinRate: 0.8, Won: 3}), convey.ShouldEqual, 1)
		})
		convey.Convey("Then identical tuples tie", func() {
			convey.So(top.Compare(top), convey.ShouldEqual, 0)
			convey.So(top.Outranks(top), convey.ShouldBeFalse)
		})
	})
}

func TestBefore(t *testing.T) {
	convey.Convey("Given two tied records", t, func() {
		a := &model.Record{PlayerID: "alice", TotalPoints: 5}
		b := &model.Record{PlayerID: "bob", TotalPoints: 5}

		convey.Convey("Then player id orders them", func() {
			convey.So(model.Before(a, b), convey.ShouldBeTrue)
			convey.So(model.Before(b, a), convey.ShouldBeFalse)
		})
	})
}

func TestMatchResult_Finalized(t *testing.T) {
	convey.Convey("Given match results", t, func() {
		convey.So((&model.MatchResult{WinnerPlayerIDs: []string{"a"}, LoserPlayerIDs: []string{"b"}}).Finalized(), convey.ShouldBeTrue)
		convey.So((&model.MatchResult{WinnerPlayerIDs: []string{"a"}}).Finalized(), convey.ShouldBeFalse)
		convey.So((&model.MatchResult{}).Finalized(), convey.ShouldBeFalse)
	})
}
