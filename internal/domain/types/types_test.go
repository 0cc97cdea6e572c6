package types_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	types "github.com/okian/soe/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshots(n int) []model.Snapshot {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Snapshot, n)
	for i := range out {
		m := scoring.Metrics{Uptime: 99.9, ErrorRate: 0.05, CPUUtilization: 45, MemoryUtilization: 50, Throughput: float64(100 * (i + 1)), ResponseTime: 150}
		out[i] = model.Snapshot{
			ID:        fmt.Sprint(i),
			Name:      "sys",
			Timestamp: base.AddDate(0, 0, i),
			Metrics:   m,
			Score:     scoring.ScoreDefault(m),
		}
	}
	return out
}

func TestBandFor(t *testing.T) {
	Convey("Given overall scores around the band edges", t, func() {
		So(types.BandFor(91), ShouldEqual, types.BandSuccess)
		So(types.BandFor(90), ShouldEqual, types.BandAccent)
		So(types.BandFor(76), ShouldEqual, types.BandAccent)
		So(types.BandFor(75), ShouldEqual, types.BandDanger)
		So(types.BandFor(-3), ShouldEqual, types.BandDanger)
	})
}

func TestBuildOverview(t *testing.T) {
	Convey("Given an empty history", t, func() {
		ov := types.BuildOverview(nil, 0)

		Convey("Then there is no current snapshot", func() {
			So(ov.Current, ShouldBeNil)
			So(ov.KPIs, ShouldBeEmpty)
			So(ov.Chart, ShouldBeEmpty)
			So(ov.HistorySize, ShouldEqual, 0)
		})
	})

	Convey("Given fifteen snapshots", t, func() {
		history := snapshots(15)
		ov := types.BuildOverview(history, types.DefaultChartPoints)

		Convey("Then the last snapshot is current", func() {
			So(ov.Current.ID, ShouldEqual, "14")
			So(ov.HistorySize, ShouldEqual, 15)
		})

		Convey("Then only the last ten points are charted", func() {
			So(ov.Chart, ShouldHaveLength, 10)
			So(ov.Chart[0].Label, ShouldEqual, "2024-03-06")
			So(ov.Chart[9].Throughput, ShouldEqual, 1500)
		})

		Convey("Then the category bars follow the current score", func() {
			So(ov.Categories, ShouldHaveLength, 4)
			So(ov.Categories[0].Name, ShouldEqual, "Avail")
			So(ov.Categories[3].Value, ShouldEqual, ov.Current.Score.Categories.Performance)
		})
	})
}

func TestKPIsFor(t *testing.T) {
	Convey("Given metrics", t, func() {
		k := types.KPIsFor(scoring.Metrics{Uptime: 99.9, ErrorRate: 0.05, CPUUtilization: 45, MemoryUtilization: 50, Throughput: 800, ResponseTime: 150})

		Convey("Then the cards mirror the dashboard", func() {
			So(k, ShouldHaveLength, 4)
			So(k[1].Value, ShouldEqual, 99.95)
			So(k[1].Subtext, ShouldEqual, "Error Rate: 0.05%")
			So(k[2].Value, ShouldEqual, 48)
			So(k[2].Subtext, ShouldEqual, "CPU: 45% | MEM: 50%")
			So(k[3].Subtext, ShouldEqual, "Latency: 150ms")
		})
	})
}
