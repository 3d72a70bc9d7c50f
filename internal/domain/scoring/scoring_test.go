package scoring_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
)

func TestRules(t *testing.T) {
	Convey("Given the default rules", t, func() {
		rules := scoring.NewRules()

		Convey("Then a win is worth 3 points and a loss nothing", func() {
			So(rules.MatchDelta(true), ShouldResemble, model.Delta{Points: 3, Played: 1, Won: 1})
			So(rules.MatchDelta(false), ShouldResemble, model.Delta{Points: 0, Played: 1})
		})

		Convey("Then both bonus awards are worth 1 point", func() {
			So(rules.BonusFor(scoring.AwardMVP), ShouldEqual, 1)
			So(rules.BonusFor(scoring.AwardLoserMVP), ShouldEqual, 1)
			So(rules.BonusFor("ace"), ShouldEqual, 0)
		})
	})

	Convey("Given custom rules", t, func() {
		rules := scoring.NewRules(
			scoring.WithWinPoints(2),
			scoring.WithLossPoints(1),
			scoring.WithMVPBonus(5),
			scoring.WithLoserMVPBonus(2),
		)

		Convey("Then the overrides apply", func() {
			So(rules.MatchDelta(true).Points, ShouldEqual, 2)
			So(rules.MatchDelta(false), ShouldResemble, model.Delta{Points: 1, Played: 1})
			So(rules.BonusFor(scoring.AwardMVP), ShouldEqual, 5)
			So(rules.BonusFor(scoring.AwardLoserMVP), ShouldEqual, 2)
		})
	})

	Convey("Given negative overrides", t, func() {
		rules := scoring.NewRules(scoring.WithWinPoints(-1), scoring.WithMVPBonus(-4))

		Convey("Then the defaults are kept", func() {
			So(rules.WinPoints, ShouldEqual, scoring.DefaultWinPoints)
			So(rules.MVPBonus, ShouldEqual, scoring.DefaultMVPBonus)
		})
	})
}
