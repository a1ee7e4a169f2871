package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/mudra/internal/hand"
)

// FirstSessionMessage is reported when no previous session exists.
const FirstSessionMessage = "First session complete! Data saved for next time."

// Band is the percent change beyond which a channel counts as improved
// or declined.
const Band = 5.0

// Trend classifies a channel's change between sessions.
type Trend int

const (
	Stable Trend = iota
	Improved
	Declined
)

func (t Trend) String() string {
	switch t {
	case Improved:
		return "improved"
	case Declined:
		return "declined"
	default:
		return "stable"
	}
}

// MarshalText encodes the trend by name.
func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ChannelComparison is one finger's change between sessions.
type ChannelComparison struct {
	Finger   hand.Finger `json:"-"`
	Name     string      `json:"finger"`
	Previous float64     `json:"previous"`
	Current  float64     `json:"current"`
	Percent  float64     `json:"percent"`
	Trend    Trend       `json:"trend"`
}

// Report is the end-of-session comparison.
type Report struct {
	FirstSession bool                     `json:"first_session"`
	Empty        bool                     `json:"empty"`
	Current      [hand.NumFingers]float64 `json:"current"`
	Channels     []ChannelComparison      `json:"channels,omitempty"`
}

// PercentChange is (current - previous) / previous * 100, with a zero
// previous treated as 1. The result is rounded to 1e-9.
func PercentChange(previous, current float64) float64 {
	base := previous
	if base == 0 {
		base = 1
	}
	p := (current - previous) / base * 100
	return math.Round(p*1e9) / 1e9
}

// Classify bands a percent change. Exactly ±5 is stable.
func Classify(percent float64) Trend {
	switch {
	case percent > Band:
		return Improved
	case percent < -Band:
		return Declined
	default:
		return Stable
	}
}

// Compare builds the report for current against previous. A nil previous
// yields a first-session report.
func Compare(previous, current *Record) Report {
	var rep Report
	if current != nil {
		rep.Current = current.MaxStrength
	}
	if previous == nil {
		rep.FirstSession = true
		return rep
	}
	for f := hand.Thumb; f <= hand.Pinky; f++ {
		p := PercentChange(previous.MaxStrength[f], rep.Current[f])
		rep.Channels = append(rep.Channels, ChannelComparison{
			Finger:   f,
			Name:     f.String(),
			Previous: previous.MaxStrength[f],
			Current:  rep.Current[f],
			Percent:  p,
			Trend:    Classify(p),
		})
	}
	return rep
}

// String renders the report as the text shown to the user.
func (r Report) String() string {
	if r.Empty {
		return "No tasks configured."
	}
	if r.FirstSession {
		return FirstSessionMessage
	}

	var b strings.Builder
	b.WriteString("Session Comparison (Max Strength):\n")
	for _, c := range r.Channels {
		fmt.Fprintf(&b, "%s: %.0f%% (", strings.ToUpper(c.Name[:1])+c.Name[1:], c.Current*100)
		switch c.Trend {
		case Improved:
			fmt.Fprintf(&b, "+%.0f%%)\n", c.Percent)
		case Declined:
			fmt.Fprintf(&b, "%.0f%%)\n", c.Percent)
		default:
			b.WriteString("Stable)\n")
		}
	}
	return b.String()
}
