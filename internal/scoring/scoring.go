// Package scoring classifies 0..100 scores into display tiers and turns
// feedback lists into typed tips.
package scoring

// Tier is a display band for a score.
type Tier string

const (
	TierGood    Tier = "good"
	TierWarning Tier = "warning"
	TierPoor    Tier = "poor"
)

// Scheme holds the exclusive lower bounds of the good and warning tiers.
type Scheme struct {
	Name    string
	Good    int
	Warning int
}

// The ATS widget and the overall gauge use different boundaries.
var (
	SchemeATS   = Scheme{Name: "ats", Good: 75, Warning: 50}
	SchemeGauge = Scheme{Name: "gauge", Good: 70, Warning: 49}
)

// Clamp bounds a score to 0..100.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Classify maps a score to its tier under the scheme.
func Classify(score int, s Scheme) Tier {
	score = Clamp(score)
	switch {
	case score > s.Good:
		return TierGood
	case score > s.Warning:
		return TierWarning
	default:
		return TierPoor
	}
}

// TipType is the icon category of a tip.
type TipType string

const (
	TipGood    TipType = "good"
	TipImprove TipType = "improve"
)

// Tip is one display line.
type Tip struct {
	Type    TipType `json:"type"`
	Section string  `json:"section"`
	Tip     string  `json:"tip"`
}

// Lists is the list part of a feedback result.
type Lists struct {
	Strengths    []string
	Weaknesses   []string
	Improvements []string
}

// TipsFromFeedback flattens the lists: strengths are good, the rest improve.
func TipsFromFeedback(l Lists) []Tip {
	tips := make([]Tip, 0, len(l.Strengths)+len(l.Weaknesses)+len(l.Improvements))
	add := func(section string, typ TipType, items []string) {
		for _, item := range items {
			if item == "" {
				continue
			}
			tips = append(tips, Tip{Type: typ, Section: section, Tip: item})
		}
	}
	add("strengths", TipGood, l.Strengths)
	add("weaknesses", TipImprove, l.Weaknesses)
	add("improvements", TipImprove, l.Improvements)
	return tips
}

// Widget is a scored display element.
type Widget struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// Summary is the display payload for one feedback result.
type Summary struct {
	Overall Widget `json:"overall"`
	ATS     Widget `json:"ats"`
	Tips    []Tip  `json:"tips"`
}

// Summarize builds the overall gauge, the ATS widget and the tips.
func Summarize(score int, l Lists) Summary {
	clamped := Clamp(score)
	return Summary{
		Overall: Widget{Score: clamped, Tier: Classify(clamped, SchemeGauge)},
		ATS:     Widget{Score: clamped, Tier: Classify(clamped, SchemeATS)},
		Tips:    TipsFromFeedback(l),
	}
}
