package scoring

import (
	"reflect"
	"testing"

	"supplement-safety/backend/internal/catalog"
)

func TestEvaluate(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		name     string
		label    string
		diseases []string
		verdict  Verdict
		reasons  []string
	}{
		{
			name:     "kidney disease and magnesium",
			label:    "마그네슘",
			diseases: []string{"신장질환"},
			verdict:  Danger,
			reasons:  []string{"신장질환 환자에게 마그네슘은 위험할 수 있습니다."},
		},
		{
			name:     "gout without matching risk",
			label:    "비타민C",
			diseases: []string{"통풍"},
			verdict:  Caution,
			reasons:  []string{GenericCautionReason},
		},
		{
			name:     "no diseases",
			label:    "비타민C",
			diseases: nil,
			verdict:  Safe,
			reasons:  []string{},
		},
		{
			name:     "every matching disease adds a reason",
			label:    "마그네슘",
			diseases: []string{"통풍", "고혈압", "신장질환"},
			verdict:  Danger,
			reasons: []string{
				"통풍 환자에게 마그네슘은 위험할 수 있습니다.",
				"신장질환 환자에게 마그네슘은 위험할 수 있습니다.",
			},
		},
		{
			name:     "neutral disease after danger keeps danger",
			label:    "홍삼",
			diseases: []string{"당뇨병", "관절염"},
			verdict:  Danger,
			reasons:  []string{"당뇨병 환자에게 홍삼은 위험할 수 있습니다."},
		},
		{
			name:     "repeated disease is not deduplicated",
			label:    "오메가3",
			diseases: []string{"심장병", "심장병"},
			verdict:  Danger,
			reasons: []string{
				"심장병 환자에게 오메가3은 위험할 수 있습니다.",
				"심장병 환자에게 오메가3은 위험할 수 있습니다.",
			},
		},
		{
			name:     "unknown disease only",
			label:    "아연",
			diseases: []string{"기타"},
			verdict:  Caution,
			reasons:  []string{GenericCautionReason},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(cat, tc.label, tc.diseases)
			if result.Verdict != tc.verdict {
				t.Fatalf("expected verdict %s got %s", tc.verdict, result.Verdict)
			}
			if !reflect.DeepEqual(result.Reasons, tc.reasons) {
				t.Fatalf("expected reasons %q got %q", tc.reasons, result.Reasons)
			}
		})
	}
}

func TestEvaluateIgnoresSentinelAndBlankEntries(t *testing.T) {
	cat := catalog.Default()
	base := [][]string{
		nil,
		{"통풍"},
		{"신장질환"},
		{"간질환", "통풍"},
	}
	noise := []string{NoDisease, "", "   "}

	for _, label := range []string{"마그네슘", "비타민C", "비타민A1"} {
		for _, diseases := range base {
			expected := Evaluate(cat, label, diseases)
			for _, extra := range noise {
				withNoise := append([]string{extra}, diseases...)
				withNoise = append(withNoise, extra)
				got := Evaluate(cat, label, withNoise)
				if !reflect.DeepEqual(expected, got) {
					t.Fatalf("label %s diseases %q: noise %q changed result %+v -> %+v", label, diseases, extra, expected, got)
				}
			}
		}
	}
}

func TestEvaluateVerdictProperties(t *testing.T) {
	cat := catalog.Default()
	diseases := append(cat.Diseases(), "관절염", "골다골증")

	for _, label := range cat.Labels() {
		for _, disease := range diseases {
			result := Evaluate(cat, label.Name, []string{disease})
			if cat.IsRisky(disease, label.Name) {
				if result.Verdict != Danger || len(result.Reasons) != 1 {
					t.Fatalf("%s/%s: expected danger with one reason, got %+v", label.Name, disease, result)
				}
				continue
			}
			if result.Verdict != Caution {
				t.Fatalf("%s/%s: expected caution, got %s", label.Name, disease, result.Verdict)
			}
		}
		if got := Evaluate(cat, label.Name, []string{}).Verdict; got != Safe {
			t.Fatalf("%s: expected safe for empty disease list, got %s", label.Name, got)
		}
	}
}

func TestAssessBundlesNutrients(t *testing.T) {
	cat := catalog.Default()

	assessment := Assess(cat, "마그네슘", []string{"신장질환"})
	if assessment.Verdict != Danger {
		t.Fatalf("expected danger got %s", assessment.Verdict)
	}
	expected := map[string]string{"마그네슘": "350mg", "비타민B6": "20mg"}
	if !reflect.DeepEqual(assessment.Nutrients, expected) {
		t.Fatalf("expected nutrients %v got %v", expected, assessment.Nutrients)
	}

	unknown := Assess(cat, "콜라겐", nil)
	if unknown.Nutrients[catalog.UnknownNutrient] != catalog.UnknownNutrient {
		t.Fatalf("expected unknown sentinel, got %v", unknown.Nutrients)
	}
	if unknown.Verdict != Safe {
		t.Fatalf("expected safe got %s", unknown.Verdict)
	}
}
