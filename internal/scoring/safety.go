package scoring

import (
	"fmt"
	"strings"

	"supplement-safety/backend/internal/catalog"
)

// NoDisease is the profile entry users pick to say they have no condition.
const NoDisease = "없음"

// GenericCautionReason is reported when the user has conditions but none lists the supplement.
const GenericCautionReason = "알려진 위험 성분은 없지만 주의가 필요합니다."

// SafetyResult is the verdict for one supplement and one disease list.
type SafetyResult struct {
	Verdict Verdict  `json:"overallSafety"`
	Reasons []string `json:"reasons"`
}

// Assessment bundles the safety result with the supplement's nutrient composition.
type Assessment struct {
	SupplementName string            `json:"name"`
	SafetyResult
	Nutrients map[string]string `json:"nutrients"`
}

// Evaluate cross-references the label against the user's diseases. Blank entries and the
// NoDisease sentinel are ignored; every disease whose risk list names the label adds a reason.
func Evaluate(cat *catalog.Catalog, label string, diseases []string) SafetyResult {
	result := SafetyResult{Verdict: Safe, Reasons: []string{}}
	considered := 0

	for _, disease := range diseases {
		disease = strings.TrimSpace(disease)
		if disease == "" || disease == NoDisease {
			continue
		}
		considered++
		if cat.IsRisky(disease, label) {
			result.Verdict = Combine(result.Verdict, Danger)
			result.Reasons = append(result.Reasons, dangerReason(disease, label))
		}
	}

	if result.Verdict != Danger && considered > 0 {
		result.Verdict = Combine(result.Verdict, Caution)
		if len(result.Reasons) == 0 {
			result.Reasons = append(result.Reasons, GenericCautionReason)
		}
	}
	return result
}

// Assess runs Evaluate and attaches the nutrient composition.
func Assess(cat *catalog.Catalog, label string, diseases []string) Assessment {
	return Assessment{
		SupplementName: label,
		SafetyResult:   Evaluate(cat, label, diseases),
		Nutrients:      cat.Nutrients(label),
	}
}

func dangerReason(disease, label string) string {
	return fmt.Sprintf("%s 환자에게 %s은 위험할 수 있습니다.", disease, label)
}
