package completion

import "strings"

const questionPrompt = `You are an exam author. Using only the study material below, write between 15 and 30 multiple-choice questions that check understanding of it.
Every question has exactly four options and exactly one correct option.
Respond with JSON only, no markdown and no commentary, in this exact shape:
{"questions":[{"questionText":"...","optionA":"...","optionB":"...","optionC":"...","optionD":"...","correctAnswer":"A"}]}
correctAnswer must be one of "A", "B", "C" or "D".

Study material:
`

func buildQuestionPrompt(content string) string {
	var b strings.Builder
	b.Grow(len(questionPrompt) + len(content))
	b.WriteString(questionPrompt)
	b.WriteString(strings.TrimSpace(content))
	return b.String()
}

// stripCodeFence removes a surrounding ```json ... ``` block some models add
// even when JSON output was requested.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func normalizeAnswerLetter(raw string) string {
	letter := strings.ToUpper(strings.TrimSpace(raw))
	letter = strings.TrimPrefix(letter, "OPTION")
	letter = strings.TrimSpace(letter)
	if letter == "" {
		return ""
	}
	switch letter[0] {
	case 'A', 'B', 'C', 'D':
		if len(letter) == 1 || !isLetter(letter[1]) {
			return letter[:1]
		}
	}
	return ""
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
