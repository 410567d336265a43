package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Analysis kinds stored in the history table.
const (
	KindPredict  = "predict"
	KindAdvisory = "advisory"
)

// UserProfile is the per-user health document keyed by the client uid. List fields are kept
// as raw JSON so entries of any type survive a round trip; readers filter to strings.
type UserProfile struct {
	UID             string `gorm:"primaryKey;size:128"`
	Name            string `gorm:"size:128"`
	Age             int
	Gender          string `gorm:"size:32"`
	DiseasesJSON    string `gorm:"type:text"`
	MedicationsJSON string `gorm:"type:text"`
	AllergiesJSON   string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetDiseases stores the disease entries verbatim.
func (u *UserProfile) SetDiseases(values []any) { u.DiseasesJSON = encodeList(values) }

// SetMedications stores the medication entries verbatim.
func (u *UserProfile) SetMedications(values []any) { u.MedicationsJSON = encodeList(values) }

// SetAllergies stores the allergy entries verbatim.
func (u *UserProfile) SetAllergies(values []any) { u.AllergiesJSON = encodeList(values) }

// Diseases returns the string entries of the disease list. Entries of other types are dropped.
func (u *UserProfile) Diseases() []string { return decodeStrings(u.DiseasesJSON) }

// Medications returns the string entries of the medication list.
func (u *UserProfile) Medications() []string { return decodeStrings(u.MedicationsJSON) }

// Allergies returns the string entries of the allergy list.
func (u *UserProfile) Allergies() []string { return decodeStrings(u.AllergiesJSON) }

// RawDiseases returns the stored disease entries including non-string values.
func (u *UserProfile) RawDiseases() []any { return decodeAny(u.DiseasesJSON) }

// RawMedications returns the stored medication entries including non-string values.
func (u *UserProfile) RawMedications() []any { return decodeAny(u.MedicationsJSON) }

// RawAllergies returns the stored allergy entries including non-string values.
func (u *UserProfile) RawAllergies() []any { return decodeAny(u.AllergiesJSON) }

// Analysis is one /predict or /gpt-analysis outcome kept for the user's history.
type Analysis struct {
	ID                 string `gorm:"primaryKey;size:36"`
	UID                string `gorm:"size:128;index"`
	Kind               string `gorm:"size:16;index"`
	SupplementName     string `gorm:"size:128;index"`
	OverallSafety      string `gorm:"size:16"`
	ReasonsJSON        string `gorm:"type:text"`
	NutrientsJSON      string `gorm:"type:text"`
	RecommendationJSON string `gorm:"type:text"`
	ImageKey           string `gorm:"size:255"`
	Classifier         string `gorm:"size:64"`
	ProcessingTimeMs   int64
	CreatedAt          time.Time `gorm:"index"`
}

// SetReasons saves the reasons as JSON.
func (a *Analysis) SetReasons(reasons []string) {
	if reasons == nil {
		reasons = []string{}
	}
	payload, _ := json.Marshal(reasons)
	a.ReasonsJSON = string(payload)
}

// Reasons returns the decoded reasons.
func (a *Analysis) Reasons() []string {
	out := decodeStrings(a.ReasonsJSON)
	if out == nil {
		return []string{}
	}
	return out
}

// SetNutrients saves the nutrient composition as JSON.
func (a *Analysis) SetNutrients(nutrients map[string]string) {
	payload, _ := json.Marshal(nutrients)
	a.NutrientsJSON = string(payload)
}

// Nutrients returns the decoded nutrient composition.
func (a *Analysis) Nutrients() map[string]string {
	if strings.TrimSpace(a.NutrientsJSON) == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(a.NutrientsJSON), &out); err != nil {
		return nil
	}
	return out
}

// SupplementCount is an aggregate of how often a supplement was analysed.
type SupplementCount struct {
	SupplementName string `json:"name"`
	Total          int    `json:"total"`
}

func encodeList(values []any) string {
	if values == nil {
		return "[]"
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func decodeAny(raw string) []any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func decodeStrings(raw string) []string {
	values := decodeAny(raw)
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (UserProfile) TableName() string { return "user_profiles" }

func (Analysis) TableName() string { return "analyses" }
