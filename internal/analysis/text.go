package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var numberedLine = regexp.MustCompile(`^\d+[).\s-]+(.+)$`)

// NormalizeResult turns a workflow result into text. Strings pass through;
// objects carrying a string "raw" or "output" field yield that field; anything
// else is rendered as indented JSON.
func NormalizeResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if raw, ok := v["raw"].(string); ok {
			return raw
		}
		if out, ok := v["output"].(string); ok {
			return out
		}
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(b)
}

// ExtractSentences returns the first max sentences of text joined by a space.
// A sentence ends at '.', '!' or '?' followed by whitespace.
func ExtractSentences(text string, max int) string {
	text = strings.TrimSpace(text)
	if text == "" || max <= 0 {
		return ""
	}

	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(".!?", runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
		if len(sentences) >= max {
			break
		}
	}
	if len(sentences) < max && start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return strings.Join(sentences, " ")
}

// ExtractBullets collects up to limit "-", "*" or numbered list items. Leading
// bullet glyphs and tabs are stripped before matching.
func ExtractBullets(text string, limit int) []string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.Trim(strings.TrimRight(line, "\r"), " •\t")
		if cleaned == "" {
			continue
		}
		switch {
		case strings.HasPrefix(cleaned, "-"), strings.HasPrefix(cleaned, "*"):
			bullets = append(bullets, strings.TrimSpace(strings.TrimLeft(cleaned, "-* ")))
		default:
			if m := numberedLine.FindStringSubmatch(cleaned); m != nil {
				bullets = append(bullets, strings.TrimSpace(m[1]))
			}
		}
		if len(bullets) >= limit {
			break
		}
	}

	out := bullets[:0]
	for _, b := range bullets {
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}
