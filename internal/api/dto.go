package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"supplement-safety/backend/internal/ai"
	"supplement-safety/backend/internal/scoring"
	"supplement-safety/backend/internal/store"
)

// PredictResponse is the /predict payload. The assessment is repeated at the top level and as
// the single element of Supplements.
type PredictResponse struct {
	SupplementName string               `json:"supplementName"`
	TotalNutrients map[string]string    `json:"totalNutrients"`
	Supplements    []scoring.Assessment `json:"supplements"`
	AnalysisID     string               `json:"analysisId,omitempty"`
}

// AdvisoryRequest is the /gpt-analysis body. Both members stay raw so a malformed
// flaskAnalysis never hides a valid uid.
type AdvisoryRequest struct {
	UserInfo      json.RawMessage `json:"userInfo"`
	FlaskAnalysis json.RawMessage `json:"flaskAnalysis"`
}

// UID returns userInfo.uid; numbers are accepted, anything else reads as missing. Other
// keys sent by clients are ignored.
func (r AdvisoryRequest) UID() string {
	var info map[string]any
	if err := json.Unmarshal(r.UserInfo, &info); err != nil {
		return ""
	}
	switch uid := info["uid"].(type) {
	case string:
		return strings.TrimSpace(uid)
	case float64:
		return fmt.Sprint(uid)
	default:
		return ""
	}
}

// Prior decodes flaskAnalysis. A missing or non-object value yields an empty analysis.
func (r AdvisoryRequest) Prior() PriorAnalysis {
	var raw map[string]any
	if err := json.Unmarshal(r.FlaskAnalysis, &raw); err != nil || raw == nil {
		return PriorAnalysis{}
	}
	prior := PriorAnalysis{
		Name:           looseText(raw["name"]),
		SupplementName: looseText(raw["supplementName"]),
		OverallSafety:  looseText(raw["overallSafety"]),
	}
	switch reasons := raw["reasons"].(type) {
	case []any:
		prior.Reasons = reasons
	case string:
		if strings.TrimSpace(reasons) != "" {
			prior.Reasons = []any{reasons}
		}
	}
	if nutrients, ok := raw["nutrients"].(map[string]any); ok {
		prior.Nutrients = nutrients
	}
	return prior
}

func looseText(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	default:
		return fmt.Sprint(typed)
	}
}

// PriorAnalysis is the earlier /predict result echoed back by the client, after the loose
// values it forwarded have been read into text.
type PriorAnalysis struct {
	Name           string
	SupplementName string
	OverallSafety  string
	Reasons        []any
	Nutrients      map[string]any
}

// Label returns name, falling back to supplementName.
func (p PriorAnalysis) Label() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.SupplementName)
}

// ReasonStrings keeps the string reasons in order.
func (p PriorAnalysis) ReasonStrings() []string {
	out := make([]string, 0, len(p.Reasons))
	for _, r := range p.Reasons {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// NutrientStrings renders every nutrient value as text.
func (p PriorAnalysis) NutrientStrings() map[string]string {
	if p.Nutrients == nil {
		return nil
	}
	out := make(map[string]string, len(p.Nutrients))
	for k, v := range p.Nutrients {
		switch typed := v.(type) {
		case string:
			out[k] = typed
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(typed)
		}
	}
	return out
}

// ProfileRequest replaces a user profile.
type ProfileRequest struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Diseases    []any  `json:"diseases"`
	Medications []any  `json:"medications"`
	Allergies   []any  `json:"allergies"`
}

// ProfilePatchRequest changes the supplied fields of a profile.
type ProfilePatchRequest struct {
	Name        *string `json:"name"`
	Age         *int    `json:"age"`
	Gender      *string `json:"gender"`
	Diseases    []any   `json:"diseases"`
	Medications []any   `json:"medications"`
	Allergies   []any   `json:"allergies"`
}

// ProfileDTO is the API representation of a stored profile.
type ProfileDTO struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	Diseases    []any     `json:"diseases"`
	Medications []any     `json:"medications"`
	Allergies   []any     `json:"allergies"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileFromModel converts a store.UserProfile into a DTO.
func ProfileFromModel(u store.UserProfile) ProfileDTO {
	return ProfileDTO{
		UID:         u.UID,
		Name:        u.Name,
		Age:         u.Age,
		Gender:      u.Gender,
		Diseases:    orEmpty(u.RawDiseases()),
		Medications: orEmpty(u.RawMedications()),
		Allergies:   orEmpty(u.RawAllergies()),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// AnalysisDTO is one history entry.
type AnalysisDTO struct {
	ID               string             `json:"id"`
	Kind             string             `json:"kind"`
	SupplementName   string             `json:"supplementName"`
	OverallSafety    string             `json:"overallSafety,omitempty"`
	Reasons          []string           `json:"reasons"`
	Nutrients        map[string]string  `json:"nutrients,omitempty"`
	Recommendation   *ai.Recommendation `json:"recommendation,omitempty"`
	Classifier       string             `json:"classifier,omitempty"`
	ImageKey         string             `json:"imageKey,omitempty"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
	CreatedAt        time.Time          `json:"created_at"`
}

// AnalysisFromModel converts a store.Analysis into a DTO.
func AnalysisFromModel(a store.Analysis) AnalysisDTO {
	dto := AnalysisDTO{
		ID:               a.ID,
		Kind:             a.Kind,
		SupplementName:   a.SupplementName,
		OverallSafety:    a.OverallSafety,
		Reasons:          a.Reasons(),
		Nutrients:        a.Nutrients(),
		Classifier:       a.Classifier,
		ImageKey:         a.ImageKey,
		ProcessingTimeMs: a.ProcessingTimeMs,
		CreatedAt:        a.CreatedAt,
	}
	if strings.TrimSpace(a.RecommendationJSON) != "" {
		var rec ai.Recommendation
		if err := json.Unmarshal([]byte(a.RecommendationJSON), &rec); err == nil {
			dto.Recommendation = &rec
		}
	}
	return dto
}

// HistoryResponse is a page of history entries.
type HistoryResponse struct {
	Items []AnalysisDTO `json:"items"`
	Total int64         `json:"total"`
}

func orEmpty(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}
