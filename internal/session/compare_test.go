package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/ayusman/mudra/internal/hand"
)

func TestComparisonBanding(t *testing.T) {
	convey.Convey("Given a previous peak of 0.50", t, func() {
		tests := []struct {
			current float64
			percent float64
			trend   Trend
		}{
			{0.60, 20.0, Improved},
			{0.48, -4.0, Stable},
			{0.40, -20.0, Declined},
			{0.525, 5.0, Stable},
			{0.475, -5.0, Stable},
			{0.53, 6.0, Improved},
		}

		for _, tt := range tests {
			p := PercentChange(0.50, tt.current)
			convey.So(p, convey.ShouldAlmostEqual, tt.percent, 1e-9)
			convey.So(Classify(p), convey.ShouldEqual, tt.trend)
		}
	})

	convey.Convey("Given a previous peak of zero", t, func() {
		convey.Convey("Then the change is measured against one", func() {
			convey.So(PercentChange(0, 0.3), convey.ShouldAlmostEqual, 30.0, 1e-9)
			convey.So(PercentChange(0, 0.04), convey.ShouldAlmostEqual, 4.0, 1e-9)
			convey.So(Classify(PercentChange(0, 0.04)), convey.ShouldEqual, Stable)
		})
	})
}

func TestCompareReport(t *testing.T) {
	convey.Convey("Given two records", t, func() {
		prev := &Record{MaxStrength: [hand.NumFingers]float64{0, 0.5, 0.5, 0.5, 0.5}}
		cur := &Record{MaxStrength: [hand.NumFingers]float64{0, 0.6, 0.48, 0.4, 0.5}}

		rep := Compare(prev, cur)

		convey.Convey("Then every finger slot is compared", func() {
			convey.So(rep.Channels, convey.ShouldHaveLength, hand.NumFingers)
			convey.So(rep.Channels[hand.Index].Trend, convey.ShouldEqual, Improved)
			convey.So(rep.Channels[hand.Middle].Trend, convey.ShouldEqual, Stable)
			convey.So(rep.Channels[hand.Ring].Trend, convey.ShouldEqual, Declined)
		})

		convey.Convey("Then the narrative lists each finger", func() {
			text := rep.String()
			convey.So(strings.HasPrefix(text, "Session Comparison (Max Strength):"), convey.ShouldBeTrue)
			convey.So(text, convey.ShouldContainSubstring, "Index: 60% (+20%)")
			convey.So(text, convey.ShouldContainSubstring, "Middle: 48% (Stable)")
			convey.So(text, convey.ShouldContainSubstring, "Ring: 40% (-20%)")
			convey.So(text, convey.ShouldContainSubstring, "Pinky: 50% (Stable)")
		})
	})

	convey.Convey("Given no previous record", t, func() {
		rep := Compare(nil, &Record{})
		convey.So(rep.FirstSession, convey.ShouldBeTrue)
		convey.So(rep.Channels, convey.ShouldBeEmpty)
		convey.So(rep.String(), convey.ShouldEqual, FirstSessionMessage)
	})
}

func TestStatus(t *testing.T) {
	convey.Convey("Given a two-rep hold task", t, func() {
		sig := &fakeSignals{}
		task := Task{Label: "hold", Instruction: "Pinch your index finger", Kind: HoldAtTarget, Channel: hand.Index, TargetStrength: 0.5, Hold: time.Second, Reps: 2}
		o := newOrchestrator([]Task{task}, sig, &MemoryStore{})

		convey.Convey("Then an idle orchestrator reports no task", func() {
			st := o.Status()
			convey.So(st.State, convey.ShouldEqual, StateIdle)
			convey.So(st.TaskIndex, convey.ShouldEqual, -1)
		})

		convey.Convey("When half the hold has elapsed", func() {
			o.StartSession(context.Background())
			sig.strength[hand.Left][hand.Index] = 0.7
			tickN(o, 5)
			st := o.Status()

			convey.Convey("Then progress reflects it", func() {
				convey.So(st.Instruction, convey.ShouldEqual, "Pinch your index finger")
				convey.So(st.Kind, convey.ShouldEqual, "hold_at_target")
				convey.So(st.Progress, convey.ShouldAlmostEqual, 0.5, 1e-9)
				convey.So(st.Phase, convey.ShouldEqual, PhaseHolding)
				convey.So(st.Message, convey.ShouldEqual, "Hold: 0.5s / 1.0s (rep 1 / 2)")
			})
		})
	})
}
