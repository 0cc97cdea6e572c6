package scoring_test

import (
	"errors"
	"testing"
	"time"

	scoring "github.com/okian/soe/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func healthy() scoring.Metrics {
	return scoring.Metrics{
		Uptime:            99.99,
		ErrorRate:         0.01,
		CPUUtilization:    45,
		MemoryUtilization: 60,
		Throughput:        1200,
		ResponseTime:      120,
	}
}

func TestScore_ReferenceSystem(t *testing.T) {
	Convey("Given a healthy production system", t, func() {
		m := healthy()

		Convey("When its breakdown is computed", func() {
			b := scoring.Categories(m)

			Convey("Then every intermediate value follows the formulas", func() {
				So(b.Availability, ShouldAlmostEqual, 99.8, 1e-9)
				So(b.Reliability, ShouldAlmostEqual, 99.8, 1e-9)
				So(b.Efficiency, ShouldEqual, 100)
				So(b.ResourceAverage, ShouldEqual, 52.5)
				So(b.ThroughputScore, ShouldEqual, 100)
				So(b.LatencyScore, ShouldEqual, 65)
				So(b.Performance, ShouldAlmostEqual, 86, 1e-9)
				So(b.Overall(scoring.DefaultWeights()), ShouldAlmostEqual, 97.08, 1e-9)
			})
		})

		Convey("When it is scored with default weights", func() {
			r := scoring.ScoreDefault(m)

			Convey("Then the rounded scores match the reference", func() {
				So(r.Overall, ShouldEqual, 97)
				So(r.Categories.Availability, ShouldEqual, 100)
				So(r.Categories.Reliability, ShouldEqual, 100)
				So(r.Categories.Efficiency, ShouldEqual, 100)
				So(r.Categories.Performance, ShouldEqual, 86)
				So(r.Trend, ShouldEqual, scoring.TrendStable)
				So(r.Metrics, ShouldResemble, m)
			})
		})
	})
}

func TestScore_Categories(t *testing.T) {
	Convey("Given the availability ramp", t, func() {
		Convey("Then it floors at 0 below 95% uptime", func() {
			So(scoring.Categories(scoring.Metrics{Uptime: 90}).Availability, ShouldEqual, 0)
		})
		Convey("Then it is linear in between", func() {
			So(scoring.Categories(scoring.Metrics{Uptime: 97.5}).Availability, ShouldEqual, 50)
		})
		Convey("Then it caps at 100 above 100% uptime", func() {
			So(scoring.Categories(scoring.Metrics{Uptime: 101}).Availability, ShouldEqual, 100)
		})
	})

	Convey("Given the reliability slope", t, func() {
		Convey("Then 1% errors scores 80 and 5% scores 0", func() {
			So(scoring.Categories(scoring.Metrics{ErrorRate: 1}).Reliability, ShouldEqual, 80)
			So(scoring.Categories(scoring.Metrics{ErrorRate: 5}).Reliability, ShouldEqual, 0)
			So(scoring.Categories(scoring.Metrics{ErrorRate: 12}).Reliability, ShouldEqual, 0)
		})
		Convey("Then a negative error rate is not capped at 100", func() {
			So(scoring.Categories(scoring.Metrics{ErrorRate: -1}).Reliability, ShouldEqual, 120)
		})
	})

	Convey("Given the efficiency band", t, func() {
		eff := func(cpu, mem float64) float64 {
			return scoring.Categories(scoring.Metrics{CPUUtilization: cpu, MemoryUtilization: mem}).Efficiency
		}
		Convey("Then both band edges are inclusive", func() {
			So(eff(40, 40), ShouldEqual, 100)
			So(eff(75, 75), ShouldEqual, 100)
			So(eff(30, 50), ShouldEqual, 100)
		})
		Convey("Then under-utilisation starts from 80", func() {
			So(eff(30, 30), ShouldEqual, 65)
			So(eff(0, 0), ShouldEqual, 20)
		})
		Convey("Then saturation is penalised three points per percent", func() {
			So(eff(85, 85), ShouldEqual, 70)
			So(eff(100, 100), ShouldEqual, 25)
		})
		Convey("Then the result floors at 0", func() {
			So(eff(120, 120), ShouldEqual, 0)
		})
	})

	Convey("Given the performance blend", t, func() {
		Convey("When throughput is 0 and latency is at baseline", func() {
			b := scoring.Categories(scoring.Metrics{Throughput: 0, ResponseTime: 50})

			Convey("Then performance is the latency share only", func() {
				So(b.ThroughputScore, ShouldEqual, 0)
				So(b.LatencyScore, ShouldEqual, 100)
				So(b.Performance, ShouldAlmostEqual, 40, 1e-9)
			})
		})

		Convey("When latency is below baseline", func() {
			b := scoring.Categories(scoring.Metrics{Throughput: 1000, ResponseTime: 0})

			Convey("Then the latency score exceeds 100", func() {
				So(b.LatencyScore, ShouldEqual, 125)
				So(b.Performance, ShouldAlmostEqual, 110, 1e-9)
			})
		})

		Convey("When throughput is negative", func() {
			b := scoring.Categories(scoring.Metrics{Throughput: -500, ResponseTime: 250})

			Convey("Then nothing floors the throughput score", func() {
				So(b.ThroughputScore, ShouldEqual, -50)
				So(b.LatencyScore, ShouldEqual, 0)
				So(b.Performance, ShouldAlmostEqual, -30, 1e-9)
			})
		})
	})
}

func TestScore_Weights(t *testing.T) {
	Convey("Given the default weights", t, func() {
		w := scoring.DefaultWeights()

		Convey("Then they sum to one", func() {
			So(w.Sum(), ShouldAlmostEqual, 1, 1e-12)
			So(w.Normalized(), ShouldBeTrue)
		})
	})

	Convey("Given uptime-only weights", t, func() {
		w := scoring.Weights{Uptime: 1}
		m := healthy()
		m.Uptime = 98.26

		Convey("Then the overall score is the rounded availability", func() {
			r := scoring.Score(m, w)
			So(r.Overall, ShouldEqual, scoring.Round(scoring.Categories(m).Availability))
			So(r.Overall, ShouldEqual, 65)
		})
	})

	Convey("Given weights that do not sum to one", t, func() {
		w := scoring.Weights{Uptime: 2, ErrorRate: 2, ResourceEfficiency: 2, Throughput: 2}

		Convey("Then the overall score is not clamped to 100", func() {
			r := scoring.Score(healthy(), w)
			So(w.Normalized(), ShouldBeFalse)
			So(r.Overall, ShouldEqual, 771)
		})
	})

	Convey("Given extreme inputs under default weights", t, func() {
		m := scoring.Metrics{Uptime: 100, ErrorRate: -50, CPUUtilization: 50, MemoryUtilization: 50, Throughput: 5000, ResponseTime: -1000}

		Convey("Then the overall score exceeds 100", func() {
			So(scoring.ScoreDefault(m).Overall, ShouldBeGreaterThan, 100)
		})
	})
}

func TestScore_RoundingAndClock(t *testing.T) {
	Convey("Given the score rounding", t, func() {
		So(scoring.Round(2.5), ShouldEqual, 3)
		So(scoring.Round(2.49), ShouldEqual, 2)
		So(scoring.Round(-2.5), ShouldEqual, -2)
		So(scoring.Round(-2.51), ShouldEqual, -3)
	})

	Convey("Given an engine with a fixed clock", t, func() {
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
		e := scoring.Engine{Now: func() time.Time { return at }}

		Convey("When scoring twice", func() {
			a := e.Score(healthy(), scoring.DefaultWeights())
			b := e.Score(healthy(), scoring.DefaultWeights())

			Convey("Then results are identical and stamped in UTC", func() {
				So(a, ShouldResemble, b)
				So(a.Timestamp.Location(), ShouldEqual, time.UTC)
				So(a.Timestamp.Equal(at), ShouldBeTrue)
			})
		})
	})

	Convey("Given the category scores as a map", t, func() {
		m := scoring.ScoreDefault(healthy()).Categories.AsMap()
		So(m, ShouldHaveLength, 4)
		So(m["performance"], ShouldEqual, 86)
	})
}

func TestScore_NonFinite(t *testing.T) {
	Convey("Given a healthy system", t, func() {
		Convey("Then every score is representable", func() {
			So(scoring.ScoreDefault(healthy()).NonFinite(), ShouldBeNil)
			So(scoring.ScoreDefault(healthy()).Finite(), ShouldBeNil)
			So(scoring.Categories(healthy()).NonFinite(), ShouldBeNil)
		})
	})

	Convey("Given an error rate so negative that reliability overflows", t, func() {
		m := healthy()
		m.ErrorRate = -1e308
		res := scoring.ScoreDefault(m)

		Convey("Then the error rate is named", func() {
			So(res.NonFinite(), ShouldResemble, []string{"errorRate"})
			err := res.Finite()
			So(errors.Is(err, scoring.ErrNonFinite), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "errorRate")
		})
	})

	Convey("Given weights large enough to overflow the overall score", t, func() {
		w := scoring.DefaultWeights()
		w.Uptime = 1e308
		res := scoring.Score(healthy(), w)

		Convey("Then only the weights are named", func() {
			So(res.NonFinite(), ShouldResemble, []string{"weights"})
		})
	})

	Convey("Given utilisation values whose average overflows", t, func() {
		m := healthy()
		m.CPUUtilization = 1e308
		m.MemoryUtilization = 1e308

		Convey("Then the rounded result stays finite but the breakdown does not", func() {
			So(scoring.ScoreDefault(m).NonFinite(), ShouldBeNil)
			So(scoring.Categories(m).NonFinite(), ShouldResemble, []string{"cpuUtilization", "memoryUtilization"})
		})
	})
}
