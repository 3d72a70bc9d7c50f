package leaderboard_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/leaderboard"
	"github.com/okian/ladder/internal/domain/model"
)

type names map[string]string

func (n names) DisplayName(_ context.Context, id string) string { return n[id] }

type failingStore struct {
	repository.Store
	err error
}

func (f failingStore) Page(context.Context, string, int, int) ([]repository.Entry, error) {
	return nil, f.err
}

func (f failingStore) Seasons(context.Context) ([]string, error) {
	return nil, f.err
}

var ts = time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *repository.TreapStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewTreapStore(ctx)
	t.Cleanup(func() { _ = store.Close() })

	rows := []struct {
		player, season string
		d              model.Delta
	}{
		{"alice", "2025", model.Delta{Points: 10, Played: 5, Won: 4}},
		{"bob", "2025", model.Delta{Points: 10, Played: 5, Won: 4}},
		{"carol", "2025", model.Delta{Points: 7, Played: 4, Won: 2}},
		{"dave", "2025", model.Delta{Points: 3, Played: 3, Won: 1}},
		{"alice", "2024", model.Delta{Points: 1, Played: 1}},
	}
	for _, r := range rows {
		if _, err := store.Apply(ctx, model.Key{PlayerID: r.player, Season: r.season}, r.d, ts); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestQuery_RankWithTies(t *testing.T) {
	Convey("Given records (10,0.8,4) twice and (7,0.5,2)", t, func() {
		q := leaderboard.NewQuery(seededStore(t), leaderboard.WithDefaultSeason("2025"))
		ctx := context.Background()

		Convey("When ranking each player", func() {
			a, errA := q.RankOf(ctx, "alice", "2025")
			b, errB := q.RankOf(ctx, "bob", "2025")
			c, errC := q.RankOf(ctx, "carol", "2025")

			Convey("Then the tied pair shares rank 1 and the next is rank 3", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(errC, ShouldBeNil)
				So(a, ShouldEqual, 1)
				So(b, ShouldEqual, 1)
				So(c, ShouldEqual, 3)
			})
		})

		Convey("When reading the full leaderboard", func() {
			page, err := q.Leaderboard(ctx, "2025", 1, 10)

			Convey("Then entries come in order with competition ranks", func() {
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 4)
				So(len(page.Entries), ShouldEqual, 4)
				got := make([]int, len(page.Entries))
				for i, e := range page.Entries {
					got[i] = e.Rank
				}
				So(got, ShouldResemble, []int{1, 1, 3, 4})
				So(page.Entries[0].PlayerID, ShouldEqual, "alice")
				So(page.Entries[3].PlayerID, ShouldEqual, "dave")
			})
		})
	})
}

func TestQuery_Pagination(t *testing.T) {
	Convey("Given a seeded season", t, func() {
		q := leaderboard.NewQuery(seededStore(t), leaderboard.WithMaxPageSize(2), leaderboard.WithDefaultSeason("2025"))
		ctx := context.Background()

		Convey("When asking for page 2 of size 2", func() {
			page, err := q.Leaderboard(ctx, "", 2, 2)

			Convey("Then the second half is returned with global ranks", func() {
				So(err, ShouldBeNil)
				So(page.Season, ShouldEqual, "2025")
				So(len(page.Entries), ShouldEqual, 2)
				So(page.Entries[0].PlayerID, ShouldEqual, "carol")
				So(page.Entries[0].Rank, ShouldEqual, 3)
				So(page.Entries[1].Rank, ShouldEqual, 4)
			})
		})

		Convey("When the page size exceeds the maximum", func() {
			page, err := q.Leaderboard(ctx, "2025", 1, 50)

			Convey("Then it is capped", func() {
				So(err, ShouldBeNil)
				So(page.PageSize, ShouldEqual, 2)
				So(len(page.Entries), ShouldEqual, 2)
			})
		})

		Convey("When the page is out of range", func() {
			_, err0 := q.Leaderboard(ctx, "2025", 0, 10)
			_, errSize := q.Leaderboard(ctx, "2025", 1, 0)

			Convey("Then ErrInvalidPage is returned", func() {
				So(errors.Is(err0, leaderboard.ErrInvalidPage), ShouldBeTrue)
				So(errors.Is(errSize, leaderboard.ErrInvalidPage), ShouldBeTrue)
			})
		})

		Convey("When the page is so large its offset would overflow", func() {
			_, err := q.Leaderboard(ctx, "2025", math.MaxInt/2+2, 2)
			_, errUnknown := q.Leaderboard(ctx, "1999", math.MaxInt, 2)

			Convey("Then ErrInvalidPage is returned instead of a store error", func() {
				So(errors.Is(err, leaderboard.ErrInvalidPage), ShouldBeTrue)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeFalse)
				So(errors.Is(errUnknown, leaderboard.ErrInvalidPage), ShouldBeTrue)
			})
		})

		Convey("When the last representable page is requested", func() {
			page, err := q.Leaderboard(ctx, "2025", math.MaxInt/2+1, 2)

			Convey("Then the page is empty", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldBeEmpty)
			})
		})

		Convey("When paging past the end", func() {
			page, err := q.Leaderboard(ctx, "2025", 10, 2)

			Convey("Then the page is empty", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldBeEmpty)
			})
		})
	})
}

func TestQuery_TopNAndCard(t *testing.T) {
	Convey("Given a seeded season with display names", t, func() {
		q := leaderboard.NewQuery(seededStore(t),
			leaderboard.WithNameResolver(names{"alice": "Alice A.", "carol": "Carol C."}),
			leaderboard.WithMaxLimit(3),
		)
		ctx := context.Background()

		Convey("When asking for the top 2", func() {
			top, err := q.TopN(ctx, "2025", 2)

			Convey("Then the leaders are returned with names", func() {
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
				So(top[0].PlayerDisplayName, ShouldEqual, "Alice A.")
				So(top[1].PlayerDisplayName, ShouldEqual, "")
			})
		})

		Convey("When n exceeds the maximum or is invalid", func() {
			top, err := q.TopN(ctx, "2025", 100)
			_, errZero := q.TopN(ctx, "2025", 0)

			Convey("Then n is capped and zero is rejected", func() {
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)
				So(errors.Is(errZero, leaderboard.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When reading a ranking card", func() {
			card, err := q.Card(ctx, "carol", "2025")

			Convey("Then the card carries the full response shape", func() {
				So(err, ShouldBeNil)
				So(card.PlayerID, ShouldEqual, "carol")
				So(card.PlayerDisplayName, ShouldEqual, "Carol C.")
				So(card.TotalPoints, ShouldEqual, 7)
				So(card.MatchesWon, ShouldEqual, 2)
				So(card.MatchesPlayed, ShouldEqual, 4)
				So(card.WinRate, ShouldEqual, 0.5)
				So(card.Rank, ShouldEqual, 3)
				So(card.Season, ShouldEqual, "2025")
				So(card.LastUpdated, ShouldEqual, ts)
			})
		})

		Convey("When the player has no record", func() {
			_, err := q.Card(ctx, "zoe", "2025")
			_, rankErr := q.RankOf(ctx, "alice", "1999")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, leaderboard.ErrNotFound), ShouldBeTrue)
				So(errors.Is(rankErr, leaderboard.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestQuery_UnknownSeasonAndSeasons(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		q := leaderboard.NewQuery(seededStore(t))
		ctx := context.Background()

		Convey("When reading an unknown season", func() {
			page, err := q.Leaderboard(ctx, "1999", 1, 10)
			top, topErr := q.TopN(ctx, "1999", 5)

			Convey("Then results are empty, not errors", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldBeEmpty)
				So(page.Total, ShouldEqual, 0)
				So(topErr, ShouldBeNil)
				So(top, ShouldBeEmpty)
			})
		})

		Convey("When listing seasons", func() {
			seasons, err := q.Seasons(ctx)

			Convey("Then they are distinct and descending", func() {
				So(err, ShouldBeNil)
				So(seasons, ShouldResemble, []string{"2025", "2024"})
			})
		})
	})
}

func TestQuery_StoreErrorsPropagate(t *testing.T) {
	Convey("Given an unavailable store", t, func() {
		boom := errors.New("store unavailable")
		q := leaderboard.NewQuery(failingStore{err: boom})
		ctx := context.Background()

		Convey("Then query errors wrap the store error unchanged", func() {
			_, err := q.TopN(ctx, "2025", 3)
			So(errors.Is(err, boom), ShouldBeTrue)

			_, err = q.Seasons(ctx)
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
