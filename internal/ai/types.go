package ai

// Recommendation is the advisory returned to the client. ShouldTake is null when the model
// (or a fallback) declines to decide.
type Recommendation struct {
	Error                string   `json:"error,omitempty"`
	ShouldTake           *bool    `json:"shouldTake"`
	Confidence           float64  `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	Precautions          []string `json:"precautions"`
	Alternatives         []string `json:"alternatives"`
	DosageRecommendation string   `json:"dosageRecommendation"`
}

// AdvisoryInput is everything the prompt is built from: the stored profile plus the prior
// rule-based analysis.
type AdvisoryInput struct {
	Age         int
	Gender      string
	Diseases    []string
	Medications []string
	Allergies   []string

	SupplementName string
	OverallSafety  string
	Reasons        []string
	Nutrients      map[string]string
}

// ParseFailureFallback is returned when the model replied but no usable JSON could be read.
func ParseFailureFallback() Recommendation {
	return Recommendation{
		Confidence:           0.5,
		Reasoning:            "분석 실패. 의료 전문가와 상담하세요.",
		Precautions:          []string{"의료 전문가 상담 필요"},
		Alternatives:         []string{},
		DosageRecommendation: "상담 필요",
	}
}

// SystemErrorFallback is returned when the model could not be reached at all.
func SystemErrorFallback() Recommendation {
	return Recommendation{
		Error:                "GPT 분석 중 오류가 발생했습니다",
		Confidence:           0.5,
		Reasoning:            "시스템 오류로 분석 불가. 의료 전문가와 상담하세요.",
		Precautions:          []string{"의료 전문가와 상담 후 복용하세요"},
		Alternatives:         []string{},
		DosageRecommendation: "전문가와 상담 후 결정하세요",
	}
}
