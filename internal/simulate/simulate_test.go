package simulate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/http/api"
	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
)

func TestGenerate(t *testing.T) {
	Convey("Given a small simulation config", t, func() {
		cfg := NewConfig()
		cfg.Matches, cfg.Players, cfg.TeamSize, cfg.Season = 30, 10, 3, "sim"

		matches := Generate(cfg)

		Convey("Then every match has disjoint full teams and MVPs from each side", func() {
			So(matches, ShouldHaveLength, 30)
			ids := map[string]bool{}
			for _, m := range matches {
				So(ids[m.MatchID], ShouldBeFalse)
				ids[m.MatchID] = true
				So(m.Season, ShouldEqual, "sim")
				So(m.WinnerPlayerIDs, ShouldHaveLength, 3)
				So(m.LoserPlayerIDs, ShouldHaveLength, 3)
				for _, w := range m.WinnerPlayerIDs {
					So(m.LoserPlayerIDs, ShouldNotContain, w)
				}
				So(m.WinnerPlayerIDs, ShouldContain, m.MVPPlayerID)
				So(m.LoserPlayerIDs, ShouldContain, m.LoserMVPPlayerID)
				_, err := time.Parse(time.RFC3339, m.FinalizedAt)
				So(err, ShouldBeNil)
			}
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given configs that cannot be generated", t, func() {
		for _, mut := range []func(*Config){
			func(c *Config) { c.BaseURL = "" },
			func(c *Config) { c.Matches = 0 },
			func(c *Config) { c.TeamSize = 0 },
			func(c *Config) { c.Players = 2*c.TeamSize - 1 },
			func(c *Config) { c.Workers = 0 },
		} {
			cfg := NewConfig()
			mut(cfg)
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		}
		So(NewConfig().Validate(), ShouldBeNil)
	})
}

func TestExpect(t *testing.T) {
	Convey("Given two matches under the default rules", t, func() {
		matches := []Match{
			{MatchID: "m1", WinnerPlayerIDs: []string{"a", "b", "a"}, LoserPlayerIDs: []string{"c"}, MVPPlayerID: "a", LoserMVPPlayerID: "c"},
			{MatchID: "m2", WinnerPlayerIDs: []string{"c"}, LoserPlayerIDs: []string{"a"}},
		}

		tallies := Expect(matches, scoring.NewRules())

		Convey("Then repeated ids count once and bonuses are added", func() {
			So(tallies["a"], ShouldResemble, Tally{Points: 4, Won: 1, Played: 2})
			So(tallies["b"], ShouldResemble, Tally{Points: 3, Won: 1, Played: 1})
			So(tallies["c"], ShouldResemble, Tally{Points: 4, Won: 1, Played: 2})
			So(Players(tallies), ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("Then a zero bonus is skipped", func() {
			rules := scoring.NewRules(scoring.WithMVPBonus(0), scoring.WithLoserMVPBonus(0))
			So(Expect(matches, rules)["a"].Points, ShouldEqual, 3)
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given leaderboard slices", t, func() {
		Convey("Then competition ranks with ties pass", func() {
			top := []Entry{
				{PlayerID: "a", TotalPoints: 9, WinRate: 1, MatchesWon: 3, Rank: 1},
				{PlayerID: "b", TotalPoints: 6, WinRate: 1, MatchesWon: 2, Rank: 2},
				{PlayerID: "c", TotalPoints: 6, WinRate: 1, MatchesWon: 2, Rank: 2},
				{PlayerID: "d", TotalPoints: 6, WinRate: 0.5, MatchesWon: 2, Rank: 4},
			}
			So(verifyLeaderboard(top), ShouldBeNil)
		})

		Convey("Then dense ranks after a tie fail", func() {
			top := []Entry{
				{PlayerID: "a", TotalPoints: 6, Rank: 1},
				{PlayerID: "b", TotalPoints: 6, Rank: 1},
				{PlayerID: "c", TotalPoints: 3, Rank: 2},
			}
			So(errors.Is(verifyLeaderboard(top), ErrMismatch), ShouldBeTrue)
		})

		Convey("Then misordered entries fail", func() {
			top := []Entry{
				{PlayerID: "a", TotalPoints: 3, Rank: 1},
				{PlayerID: "b", TotalPoints: 6, Rank: 2},
			}
			So(errors.Is(verifyLeaderboard(top), ErrMismatch), ShouldBeTrue)
		})

		Convey("Then a leader beaten by the tally fails", func() {
			top := []Entry{{PlayerID: "a", TotalPoints: 3, MatchesWon: 1, WinRate: 1, Rank: 1}}
			tallies := map[string]Tally{"a": {Points: 3, Won: 1, Played: 1}, "b": {Points: 6, Won: 2, Played: 2}}
			So(errors.Is(verifyTopAgainstTally(top, tallies), ErrMismatch), ShouldBeTrue)
		})
	})
}

func TestCompareEntry(t *testing.T) {
	Convey("Given a tally of 2 wins in 3 matches", t, func() {
		want := Tally{Points: 6, Won: 2, Played: 3}

		So(compareEntry(Entry{PlayerID: "a", TotalPoints: 6, MatchesWon: 2, MatchesPlayed: 3, WinRate: 0.67}, want), ShouldBeNil)
		So(errors.Is(compareEntry(Entry{PlayerID: "a", TotalPoints: 5, MatchesWon: 2, MatchesPlayed: 3, WinRate: 0.67}, want), ErrMismatch), ShouldBeTrue)
		So(errors.Is(compareEntry(Entry{PlayerID: "a", TotalPoints: 6, MatchesWon: 2, MatchesPlayed: 3, WinRate: 0.66}, want), ErrMismatch), ShouldBeTrue)
	})
}

func newLadderServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.New()
	cfg.Season = "sim"
	cfg.WorkerCount = 4
	svc := app.New(cfg)
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, func(ctx context.Context) any { return svc.GetStats(ctx) }).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(ctx)
	})
	return srv
}

func TestRun(t *testing.T) {
	for _, sync := range []bool{true, false} {
		name := "async"
		if sync {
			name = "sync"
		}
		t.Run(name, func(t *testing.T) {
			srv := newLadderServer(t)
			cfg := NewConfig()
			cfg.BaseURL = srv.URL
			cfg.Matches, cfg.Players, cfg.TeamSize = 60, 12, 3
			cfg.Workers = 4
			cfg.Settle = 10 * time.Second
			cfg.Sync = sync

			stats, err := Run(context.Background(), cfg, logger.Nop())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if stats.MatchesAccepted != 60 || stats.Mismatches != 0 || stats.PlayersVerified != 12 {
				t.Fatalf("unexpected stats: %+v", stats)
			}
		})
	}
}

func TestRun_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := NewConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = time.Second
	if _, err := Run(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatal("expected health check error")
	}
}
