package scoring_test

import (
	"fmt"
	"testing"

	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func pool(names ...string) []model.Candidate {
	out := make([]model.Candidate, len(names))
	for i, n := range names {
		out[i] = model.Candidate{ID: fmt.Sprint(i + 1), Name: n}
	}
	return out
}

func TestEngine_Recommend(t *testing.T) {
	Convey("Given a default engine", t, func() {
		engine := scoring.NewEngine()

		Convey("When a favorite matches one of two weighted candidates", func() {
			candidates := []model.Candidate{
				{ID: "13", Name: "Catan", Weight: 2.3, Image: "catan.jpg"},
				{ID: "174430", Name: "Gloomhaven", Weight: 3.9},
			}
			recs := engine.Recommend(candidates, []string{"catan"})

			Convey("Then the match ranks first with a cited score", func() {
				So(recs, ShouldHaveLength, 2)
				So(recs[0].Name, ShouldEqual, "Catan")
				So(recs[0].Reason, ShouldEqual, "Matches your favorite games with a score of 14.2.")
				So(*recs[0].Image, ShouldEqual, "catan.jpg")
				So(recs[1].Name, ShouldEqual, "Gloomhaven")
				So(recs[1].Reason, ShouldEqual, "Matches your favorite games with a score of 4.2.")
				So(recs[1].Image, ShouldBeNil)
			})

			Convey("And the keyword term alone is at least ten", func() {
				scored := engine.Score(candidates, []string{"catan"})
				So(scored[0].Score, ShouldBeGreaterThanOrEqualTo, 10)
				So(scored[0].Score, ShouldAlmostEqual, 14.2, 1e-9)
				So(scored[1].Score, ShouldAlmostEqual, 4.2, 1e-9)
			})
		})

		Convey("When nothing matches and no weights are known", func() {
			recs := engine.Recommend(pool("Azul", "Brass", "Root"), []string{"chess"})

			Convey("Then all candidates carry the generic reason in pool order", func() {
				So(recs, ShouldHaveLength, 3)
				So(recs[0].Name, ShouldEqual, "Azul")
				So(recs[1].Name, ShouldEqual, "Brass")
				So(recs[2].Name, ShouldEqual, "Root")
				for _, r := range recs {
					So(r.Reason, ShouldEqual, "Recommended as a popular game you might enjoy.")
				}
			})
		})

		Convey("When the pool is empty", func() {
			recs := engine.Recommend(nil, []string{"catan"})

			Convey("Then the result is empty, not nil", func() {
				So(recs, ShouldNotBeNil)
				So(recs, ShouldBeEmpty)
			})
		})

		Convey("When the pool is larger than the limit", func() {
			recs := engine.Recommend(pool("A1", "A2", "A3", "A4", "A5", "A6", "Ticket to Ride"), []string{"ticket"})

			Convey("Then at most five are returned and the match leads", func() {
				So(recs, ShouldHaveLength, 5)
				So(recs[0].Name, ShouldEqual, "Ticket to Ride")
				So(recs[1].Name, ShouldEqual, "A1")
				So(recs[4].Name, ShouldEqual, "A4")
			})
		})

		Convey("When favorites are blank or differ in case and padding", func() {
			scored := engine.Score(pool("Terraforming Mars"), []string{"   ", "", "  MARS "})

			Convey("Then blank entries are inert and matching is case-insensitive", func() {
				So(scored[0].Score, ShouldEqual, 10)
			})
		})

		Convey("When called twice with identical input", func() {
			candidates := []model.Candidate{
				{ID: "1", Name: "Wingspan", Weight: 2.4},
				{ID: "2", Name: "Spirit Island", Weight: 4.0},
				{ID: "3", Name: "Spirit of the Wild", Weight: 0},
			}
			favs := []string{"spirit", "wing"}

			Convey("Then the output is identical", func() {
				So(engine.Recommend(candidates, favs), ShouldResemble, engine.Recommend(candidates, favs))
			})
		})
	})
}

func TestEngine_ScoreProperties(t *testing.T) {
	Convey("Given a pool with weights", t, func() {
		engine := scoring.NewEngine()
		candidates := []model.Candidate{
			{ID: "1", Name: "Pandemic Legacy", Weight: 2.8},
			{ID: "2", Name: "Pandemic", Weight: 2.4},
			{ID: "3", Name: "Azul", Weight: 1.8},
		}

		Convey("When adding a distinct favorite that matches a name", func() {
			base := engine.Score(candidates, []string{"legacy"})
			more := engine.Score(candidates, []string{"legacy", "pandemic"})

			Convey("Then that candidate gains exactly one bonus", func() {
				So(more[0].Score-base[0].Score, ShouldAlmostEqual, 10, 1e-9)
				So(more[1].Score-base[1].Score, ShouldAlmostEqual, 10, 1e-9)
				So(more[2].Score, ShouldAlmostEqual, base[2].Score, 1e-9)
			})
		})

		Convey("When the same favorite is listed twice", func() {
			once := engine.Score(candidates, []string{"azul"})
			twice := engine.Score(candidates, []string{"azul", "azul"})

			Convey("Then each listing counts", func() {
				So(twice[2].Score-once[2].Score, ShouldAlmostEqual, 10, 1e-9)
			})
		})

		Convey("When there are no favorites at all", func() {
			scored := engine.Score(candidates, nil)

			Convey("Then the weight term does not apply", func() {
				for _, s := range scored {
					So(s.Score, ShouldEqual, 0)
				}
			})
		})

		Convey("When a weight is far from the pool average", func() {
			far := []model.Candidate{
				{ID: "1", Name: "Light", Weight: 1},
				{ID: "2", Name: "Heavy", Weight: 21},
			}
			scored := engine.Score(far, []string{"x"})

			Convey("Then the proximity term is clamped at zero", func() {
				So(scored[0].Score, ShouldEqual, 0)
				So(scored[1].Score, ShouldEqual, 0)
			})
		})
	})
}

func TestEngine_Rank(t *testing.T) {
	Convey("Given tied candidates", t, func() {
		engine := scoring.NewEngine(scoring.WithLimit(3))
		candidates := pool("Dune Imperium", "Dune", "Arrakis Dune", "Everdell")

		Convey("When ranking with a favorite all three Dune titles match", func() {
			ranked := engine.Rank(candidates, []string{"dune"})

			Convey("Then earlier candidates win ties and the limit applies", func() {
				So(ranked, ShouldHaveLength, 3)
				So(ranked[0].Candidate.Name, ShouldEqual, "Dune Imperium")
				So(ranked[1].Candidate.Name, ShouldEqual, "Dune")
				So(ranked[2].Candidate.Name, ShouldEqual, "Arrakis Dune")
			})
		})

		Convey("When the pool contains no duplicates", func() {
			recs := scoring.NewEngine().Recommend(candidates, []string{"e"})
			seen := map[string]bool{}
			for _, r := range recs {
				So(seen[r.Name], ShouldBeFalse)
				seen[r.Name] = true
			}
		})
	})
}

func TestEngineOptions(t *testing.T) {
	Convey("Given custom options", t, func() {
		engine := scoring.NewEngine(
			scoring.WithKeywordBonus(3),
			scoring.WithWeightWindow(0),
			scoring.WithLimit(0),
		)

		Convey("Then invalid values keep defaults and valid ones apply", func() {
			scored := engine.Score([]model.Candidate{{Name: "Root", Weight: 3.7}}, []string{"root"})
			So(scored[0].Score, ShouldEqual, 3)
			So(engine.Recommend(pool("1", "2", "3", "4", "5", "6"), []string{"z"}), ShouldHaveLength, 5)
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given scores", t, func() {
		So(scoring.Reason(0), ShouldEqual, "Recommended as a popular game you might enjoy.")
		So(scoring.Reason(10), ShouldEqual, "Matches your favorite games with a score of 10.")
		So(scoring.Reason(14.249), ShouldEqual, "Matches your favorite games with a score of 14.2.")
		So(scoring.Reason(20.06), ShouldEqual, "Matches your favorite games with a score of 20.1.")
	})
}
