package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRoster(t *testing.T) {
	Convey("Given a roster seeded from config", t, func() {
		r := NewRoster(map[string]string{"p1": "Ada", "p2": "", " ": "blank"})
		ctx := context.Background()

		Convey("Then known players resolve and blank ids are ignored", func() {
			ok, err := r.Exists(ctx, "p1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(r.DisplayName(ctx, "p1"), ShouldEqual, "Ada")
			So(r.DisplayName(ctx, "p2"), ShouldEqual, "p2")
			So(r.Len(), ShouldEqual, 2)
		})

		Convey("Then unknown players do not resolve", func() {
			ok, err := r.Exists(ctx, "ghost")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(r.DisplayName(ctx, "ghost"), ShouldBeEmpty)
		})
	})
}

func TestRoster_LoadCSV(t *testing.T) {
	Convey("Given an empty roster", t, func() {
		r := NewRoster(nil)

		Convey("When a CSV with reordered columns is loaded", func() {
			n, err := r.LoadCSV(strings.NewReader("Display_Name, player_id\nAda Lovelace,p1\n,p2\n"))

			Convey("Then every row is added", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(r.DisplayName(context.Background(), "p1"), ShouldEqual, "Ada Lovelace")
				So(r.DisplayName(context.Background(), "p2"), ShouldEqual, "p2")
			})
		})

		Convey("When the player_id column is missing", func() {
			_, err := r.LoadCSV(strings.NewReader("name\nAda\n"))

			Convey("Then ErrInvalidRoster is returned", func() {
				So(errors.Is(err, ErrInvalidRoster), ShouldBeTrue)
			})
		})

		Convey("When a row has an empty id", func() {
			n, err := r.LoadCSV(strings.NewReader("player_id\np1\n\"\"\n"))

			Convey("Then the line is reported", func() {
				So(errors.Is(err, ErrInvalidRoster), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "line 3")
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the document is empty", func() {
			_, err := r.LoadCSV(strings.NewReader(""))
			So(errors.Is(err, ErrInvalidRoster), ShouldBeTrue)
		})
	})
}

func TestRoster_LoadFile(t *testing.T) {
	Convey("Given a roster file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "players.csv")
		So(os.WriteFile(path, []byte("player_id,display_name\np1,Ada\np2,Grace\n"), 0o600), ShouldBeNil)
		r := NewRoster(nil)

		Convey("Then it loads every player", func() {
			n, err := r.LoadFile(path)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(r.Len(), ShouldEqual, 2)
		})

		Convey("Then a missing file is an error", func() {
			_, err := r.LoadFile(filepath.Join(t.TempDir(), "absent.csv"))
			So(err, ShouldNotBeNil)
		})
	})
}
