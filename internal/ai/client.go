// Package ai wraps the language-model backends used by the scorer and the agent router.
package ai

import (
	"context"
	"errors"
	"strings"
)

// Backend classes
const (
	ClassProxy  = "proxy"
	ClassGemini = "gemini"
)

// ErrEmptyCompletion is returned when a backend answers without any text
var ErrEmptyCompletion = errors.New("AI 응답에서 텍스트를 찾을 수 없습니다")

// Backend is a chat-style model endpoint.
// Complete takes a system instruction plus one user message and returns free text.
// ListModels is the cheapest capability-listing call, used for reachability checks.
type Backend interface {
	Complete(ctx context.Context, systemInstruction, userMessage string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// ExtractJSON 코드블록(```json ... ```)에서 JSON 추출
func ExtractJSON(rawText string) string {
	if idx := strings.Index(rawText, "```"); idx >= 0 {
		start := strings.Index(rawText[idx:], "\n")
		if start >= 0 {
			end := strings.Index(rawText[idx+start+1:], "```")
			if end >= 0 {
				return strings.TrimSpace(rawText[idx+start+1 : idx+start+1+end])
			}
		}
	}
	// 앞뒤 잡담이 붙은 경우 첫 { 부터 마지막 } 까지
	if first, last := strings.Index(rawText, "{"), strings.LastIndex(rawText, "}"); first >= 0 && last > first {
		return rawText[first : last+1]
	}
	return strings.TrimSpace(rawText)
}

// truncateStr truncates a string to maxLen runes
func truncateStr(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
