package resumes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

var feedbackLists = []string{"strengths", "weaknesses", "improvements"}

// ParseFeedback validates an extracted payload against the canonical
// schema. Unknown fields are ignored; missing or mistyped ones are not.
func ParseFeedback(payload string) (Feedback, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		if json.Valid([]byte(payload)) {
			return Feedback{}, fmt.Errorf("%w: top level is not an object", ErrSchemaMismatch)
		}
		return Feedback{}, fmt.Errorf("%w: %v", ErrInvalidAIOutput, err)
	}

	var problems []string
	var fb Feedback

	if raw, ok := fields["score"]; !ok {
		problems = append(problems, "score is required")
	} else {
		var score float64
		if err := json.Unmarshal(raw, &score); err != nil {
			problems = append(problems, "score must be a number")
		} else if score < 0 || score > 100 || math.IsNaN(score) {
			problems = append(problems, "score must be between 0 and 100")
		} else {
			fb.Score = int(math.Round(score))
		}
	}

	if raw, ok := fields["summary"]; !ok {
		problems = append(problems, "summary is required")
	} else if err := json.Unmarshal(raw, &fb.Summary); err != nil || isNull(raw) {
		problems = append(problems, "summary must be a string")
	}

	lists := map[string]*[]string{
		"strengths":    &fb.Strengths,
		"weaknesses":   &fb.Weaknesses,
		"improvements": &fb.Improvements,
	}
	for _, name := range feedbackLists {
		raw, ok := fields[name]
		if !ok {
			problems = append(problems, name+" is required")
			continue
		}
		if isNull(raw) || json.Unmarshal(raw, lists[name]) != nil {
			problems = append(problems, name+" must be an array of strings")
			continue
		}
		if *lists[name] == nil {
			*lists[name] = []string{}
		}
	}

	if len(problems) > 0 {
		return Feedback{}, fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(problems, "; "))
	}
	return fb, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

type legacyTip struct {
	Type        string `json:"type"`
	Tip         string `json:"tip"`
	Explanation string `json:"explanation,omitempty"`
}

type legacyCategory struct {
	Score float64     `json:"score"`
	Tips  []legacyTip `json:"tips"`
}

type legacyFeedback struct {
	OverallScore float64        `json:"overallScore"`
	ATS          legacyCategory `json:"ATS"`
	ToneAndStyle legacyCategory `json:"toneAndStyle"`
	Content      legacyCategory `json:"content"`
	Structure    legacyCategory `json:"structure"`
	Skills       legacyCategory `json:"skills"`
}

// UnmarshalJSON decodes canonical feedback and migrates the legacy
// per-category shape (recognized by "overallScore").
func (f *Feedback) UnmarshalJSON(data []byte) error {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	if _, ok := shape["overallScore"]; ok {
		var legacy legacyFeedback
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("legacy feedback: %w", err)
		}
		*f = legacy.migrate()
		return nil
	}
	type plain Feedback
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Feedback(p)
	return nil
}

func (l legacyFeedback) migrate() Feedback {
	fb := Feedback{
		Score:        clampScore(l.OverallScore),
		Strengths:    []string{},
		Weaknesses:   []string{},
		Improvements: []string{},
	}
	categories := []struct {
		label string
		cat   legacyCategory
	}{
		{"ATS", l.ATS},
		{"Tone & Style", l.ToneAndStyle},
		{"Content", l.Content},
		{"Structure", l.Structure},
		{"Skills", l.Skills},
	}
	scores := make([]string, 0, len(categories))
	for _, c := range categories {
		scores = append(scores, fmt.Sprintf("%s %d/100", c.label, clampScore(c.cat.Score)))
		for _, tip := range c.cat.Tips {
			text := strings.TrimSpace(tip.Tip)
			if text == "" {
				continue
			}
			if tip.Type == "good" {
				fb.Strengths = append(fb.Strengths, text)
				continue
			}
			fb.Weaknesses = append(fb.Weaknesses, text)
			if exp := strings.TrimSpace(tip.Explanation); exp != "" {
				fb.Improvements = append(fb.Improvements, exp)
			} else {
				fb.Improvements = append(fb.Improvements, text)
			}
		}
	}
	fb.Summary = "Category scores: " + strings.Join(scores, ", ") + "."
	return fb
}

func clampScore(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
