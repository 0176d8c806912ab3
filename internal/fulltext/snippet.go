package fulltext

import (
	"strings"
)

const (
	snippetWindow  = 10
	snippetContext = 2
)

// Snippet picks the passage of body that best covers terms, trimmed to maxLen runes.
//
// Paragraphs are blank-line separated with heading lines removed. The paragraph
// containing the most distinct terms wins (earliest on ties). Short winners are
// returned whole; longer ones are cut to the best 10-word window plus two words of
// context on either side, marked with "..." where text was left out.
func Snippet(body string, terms []string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSnippetLength
	}
	paragraphs := splitParagraphs(body)
	if len(paragraphs) == 0 {
		return ""
	}

	lower := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lower = append(lower, t)
		}
	}

	best, bestScore := 0, 0
	for i, p := range paragraphs {
		if score := countTerms(p, lower); score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore == 0 {
		return truncate(paragraphs[0], maxLen)
	}

	words := strings.Fields(paragraphs[best])
	if len(words) <= snippetWindow {
		return truncate(paragraphs[best], maxLen)
	}

	start, startScore := 0, -1
	for i := 0; i+snippetWindow <= len(words); i++ {
		score := countTerms(strings.Join(words[i:i+snippetWindow], " "), lower)
		if score > startScore {
			start, startScore = i, score
		}
	}

	from := max(start-snippetContext, 0)
	to := min(start+snippetWindow+snippetContext, len(words))

	var b strings.Builder
	if from > 0 {
		b.WriteString("... ")
	}
	b.WriteString(strings.Join(words[from:to], " "))
	if to < len(words) {
		b.WriteString(" ...")
	}
	return truncate(b.String(), maxLen)
}

func splitParagraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		var kept []string
		for _, line := range strings.Split(p, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				continue
			}
			kept = append(kept, line)
		}
		if para := strings.TrimSpace(strings.Join(kept, "\n")); para != "" {
			out = append(out, para)
		}
	}
	return out
}

func countTerms(s string, terms []string) int {
	s = strings.ToLower(s)
	n := 0
	for _, t := range terms {
		if strings.Contains(s, t) {
			n++
		}
	}
	return n
}

// truncate cuts s to maxLen runes, ending with "..." when anything was dropped.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
