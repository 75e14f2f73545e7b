package match

import (
	"math"
	"sort"
	"strings"
)

// Score returns how much of the job description vocabulary is present in the
// resume, as a percentage in [0,100] rounded half-to-even to two decimals.
func Score(resumeText, jobDescription string) float64 {
	jobTokens := tokenSet(jobDescription)
	if len(jobTokens) == 0 {
		return 0
	}
	resumeTokens := tokenSet(resumeText)

	matched := 0
	for tok := range jobTokens {
		if _, ok := resumeTokens[tok]; ok {
			matched++
		}
	}

	score := float64(matched) / float64(len(jobTokens)) * 100
	return math.RoundToEven(score*100) / 100
}

// Matched lists the shared tokens in lexical order.
func Matched(resumeText, jobDescription string) []string {
	resumeTokens := tokenSet(resumeText)
	var out []string
	for tok := range tokenSet(jobDescription) {
		if _, ok := resumeTokens[tok]; ok {
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
