package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const fenceOpen = "```json"

// ExtractJSON pulls the JSON object out of a model reply. A ```json fence takes priority
// (an unclosed fence runs to the end); otherwise the text from the first '{' to the last '}'
// is used. It returns "" when nothing object-shaped is present.
func ExtractJSON(text string) string {
	if idx := strings.Index(text, fenceOpen); idx >= 0 {
		rest := text[idx+len(fenceOpen):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

type rawRecommendation struct {
	ShouldTake           *bool    `json:"shouldTake"`
	Confidence           *float64 `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	Precautions          []string `json:"precautions"`
	Alternatives         []string `json:"alternatives"`
	DosageRecommendation string   `json:"dosageRecommendation"`
}

// ParseRecommendation extracts and decodes the model reply. Missing confidence defaults to
// 0.5; out-of-range confidence is clamped to [0,1].
func ParseRecommendation(text string) (Recommendation, error) {
	payload := ExtractJSON(text)
	if payload == "" {
		return Recommendation{}, errors.New("no json object in reply")
	}
	var raw rawRecommendation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Recommendation{}, fmt.Errorf("parse ai response: %w", err)
	}

	rec := Recommendation{
		ShouldTake:           raw.ShouldTake,
		Confidence:           0.5,
		Reasoning:            strings.TrimSpace(raw.Reasoning),
		Precautions:          nonNil(raw.Precautions),
		Alternatives:         nonNil(raw.Alternatives),
		DosageRecommendation: strings.TrimSpace(raw.DosageRecommendation),
	}
	if raw.Confidence != nil {
		rec.Confidence = clampFloat(*raw.Confidence, 0, 1)
	}
	return rec, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func clampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
