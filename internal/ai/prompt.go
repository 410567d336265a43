package ai

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SystemPrompt fixes the model persona.
const SystemPrompt = "당신은 영양제 전문 AI 의사입니다."

const unknownValue = "정보 없음"

// BuildPrompt renders the user message for one advisory request.
func BuildPrompt(input AdvisoryInput) string {
	age := unknownValue
	if input.Age > 0 {
		age = strconv.Itoa(input.Age)
	}

	builder := &strings.Builder{}
	builder.WriteString("당신은 영양제 복용에 대한 전문적인 조언을 제공하는 AI 의사입니다.\n")
	builder.WriteString("사용자 정보:\n")
	fmt.Fprintf(builder, "- 나이: %s\n", age)
	fmt.Fprintf(builder, "- 성별: %s\n", orUnknown(input.Gender))
	fmt.Fprintf(builder, "- 기존 질병: %s\n", formatList(input.Diseases))
	fmt.Fprintf(builder, "- 현재 복용 중인 약물: %s\n", formatList(input.Medications))
	fmt.Fprintf(builder, "- 알레르기: %s\n", formatList(input.Allergies))
	builder.WriteString("\n영양제 정보:\n")
	fmt.Fprintf(builder, "- 제품명: %s\n", strings.TrimSpace(input.SupplementName))
	builder.WriteString("\n기존 안전성 분석:\n")
	fmt.Fprintf(builder, "- 안전성 등급: %s\n", orUnknown(input.OverallSafety))
	fmt.Fprintf(builder, "- 주의 사유: %s\n", formatList(input.Reasons))
	builder.WriteString("\n주요 성분 정보:\n")
	fmt.Fprintf(builder, "- %s\n", formatNutrients(input.Nutrients))
	builder.WriteString("\nJSON 형식으로 응답해주세요:\n")
	builder.WriteString(`{
    "shouldTake": true/false/null,
    "confidence": 0.0-1.0,
    "reasoning": "추천 이유",
    "precautions": [],
    "alternatives": [],
    "dosageRecommendation": ""
}
`)
	return builder.String()
}

// Messages returns the system and user turns for input.
func Messages(input AdvisoryInput) []Message {
	return []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: BuildPrompt(input)},
	}
}

func orUnknown(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return unknownValue
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func formatNutrients(nutrients map[string]string) string {
	keys := make([]string, 0, len(nutrients))
	for k := range nutrients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+nutrients[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
