package study

import "strings"

const PassingScore = 8.0

// ScoreOutOfTen scales correct/total to the 0-10 range.
func ScoreOutOfTen(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct*10) / float64(total)
}

// Passed is a display-only threshold and is never persisted.
func Passed(score float64) bool {
	return score >= PassingScore
}

func normalizeLetter(answer string) string {
	letter := strings.ToUpper(strings.TrimSpace(answer))
	switch letter {
	case "A", "B", "C", "D":
		return letter
	default:
		return ""
	}
}
