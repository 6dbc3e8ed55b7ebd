package imagesource

import (
	"strings"
	"unicode"
)

// MaxPromptRunes bounds the sanitized seed text
const MaxPromptRunes = 200

const promptStyle = "editorial news photograph, realistic, natural light"

// 키워드 추출에서 제외할 흔한 단어 (영어/인도네시아어)
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "into": true, "over": true, "after": true, "about": true,
	"yang": true, "dan": true, "dari": true, "untuk": true, "dengan": true, "pada": true,
	"akan": true, "dalam": true, "oleh": true, "tidak": true, "sebagai": true, "atas": true,
}

// Sanitize keeps letters, digits and single spaces, truncated to MaxPromptRunes
func Sanitize(seed string) string {
	var b strings.Builder
	lastSpace := true
	count := 0
	for _, r := range seed {
		if count >= MaxPromptRunes {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
			count++
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
			count++
		}
	}
	return strings.TrimSpace(b.String())
}

// Keywords derives 1-3 lowercase keywords; "news" when nothing usable remains
func Keywords(seed string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(Sanitize(seed))) {
		if len([]rune(w)) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		return []string{"news"}
	}
	return out
}

// PromptForAttempt trades specificity for reliability as attempts increase:
// 0 = full sanitized text + style, 1 = first 8 words + style, 2+ = keywords only.
func PromptForAttempt(seed string, attempt int) string {
	clean := Sanitize(seed)
	switch {
	case attempt <= 0:
		if clean == "" {
			return promptStyle
		}
		return clean + " " + promptStyle
	case attempt == 1:
		words := strings.Fields(clean)
		if len(words) > 8 {
			words = words[:8]
		}
		return strings.TrimSpace(strings.Join(words, " ") + " news photo")
	default:
		return strings.Join(Keywords(seed), " ") + " news"
	}
}
