package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	reply    string
	err      error
	messages []Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	s.messages = messages
	return s.reply, s.err
}

func sampleInput() AdvisoryInput {
	return AdvisoryInput{
		Age:            45,
		Gender:         "여성",
		Diseases:       []string{"신장질환"},
		Medications:    []string{},
		SupplementName: "마그네슘",
		OverallSafety:  "danger",
		Reasons:        []string{"신장질환 환자에게 마그네슘은 위험할 수 있습니다."},
		Nutrients:      map[string]string{"마그네슘": "350mg", "비타민B6": "20mg"},
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		expect string
	}{
		{"fenced", "here:\n```json\n{\"a\":1}\n```\nbye", `{"a":1}`},
		{"unclosed fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"bare object", `Sure! {"a":{"b":2}} hope that helps`, `{"a":{"b":2}}`},
		{"no object", "I cannot help with that.", ""},
		{"reversed braces", "} oops {", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, ExtractJSON(tc.text))
		})
	}
}

func TestComposeSuccess(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{\"shouldTake\": false, \"confidence\": 1.7, \"reasoning\": \"신장 기능 저하\", \"precautions\": [\"복용 중단\"], \"dosageRecommendation\": \"복용하지 마세요\"}\n```"}
	rec, err := NewComposer(stub).Compose(context.Background(), sampleInput())
	require.NoError(t, err)

	require.NotNil(t, rec.ShouldTake)
	assert.False(t, *rec.ShouldTake)
	assert.Equal(t, 1.0, rec.Confidence)
	assert.Equal(t, "신장 기능 저하", rec.Reasoning)
	assert.Equal(t, []string{"복용 중단"}, rec.Precautions)
	assert.Equal(t, []string{}, rec.Alternatives)
	assert.Empty(t, rec.Error)

	require.Len(t, stub.messages, 2)
	assert.Equal(t, SystemPrompt, stub.messages[0].Content)
	prompt := stub.messages[1].Content
	assert.Contains(t, prompt, "- 나이: 45")
	assert.Contains(t, prompt, "- 제품명: 마그네슘")
	assert.Contains(t, prompt, "- 안전성 등급: danger")
	assert.Contains(t, prompt, "{마그네슘: 350mg, 비타민B6: 20mg}")
	assert.Contains(t, prompt, "- 알레르기: []")
}

func TestComposeParseFailure(t *testing.T) {
	stub := &stubCompleter{reply: "죄송합니다. 답변할 수 없습니다."}
	rec, err := NewComposer(stub).Compose(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, ParseFailureFallback(), rec)
	assert.Nil(t, rec.ShouldTake)
	assert.Equal(t, 0.5, rec.Confidence)
}

func TestComposeCompletionFailure(t *testing.T) {
	boom := errors.New("connection refused")
	rec, err := NewComposer(&stubCompleter{err: boom}).Compose(context.Background(), sampleInput())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, SystemErrorFallback(), rec)
	assert.Equal(t, "GPT 분석 중 오류가 발생했습니다", rec.Error)
}

func TestComposeDisabled(t *testing.T) {
	rec, err := NewComposer(nil).Compose(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, SystemErrorFallback(), rec)

	var client *Client
	assert.False(t, NewComposer(client).Enabled())
}

func TestBuildPromptUnknowns(t *testing.T) {
	prompt := BuildPrompt(AdvisoryInput{SupplementName: "콜라겐"})
	assert.Contains(t, prompt, "- 나이: 정보 없음")
	assert.Contains(t, prompt, "- 성별: 정보 없음")
	assert.Contains(t, prompt, "- 안전성 등급: 정보 없음")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(prompt), "}"))
}
