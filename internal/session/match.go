package session

import "strings"

// punctuation stripped before word comparison. Anything else, including
// accents and apostrophes, is significant.
var punctuationReplacer = strings.NewReplacer(".", "", ",", "", "!", "", "?", "")

// normalizeWords lowercases the text, strips sentence punctuation, and
// splits on whitespace.
func normalizeWords(text string) []string {
	return strings.Fields(punctuationReplacer.Replace(strings.ToLower(text)))
}

// MatchRatio scores a spoken transcript against the target sentence as
// matchedTargetWords / totalTargetWords. A target word counts as matched
// when any transcript word equals it or is a substring of it in either
// direction — speech recognizers routinely merge or clip word endings,
// and the loose match absorbs that without crediting unrelated words.
func MatchRatio(transcript, target string) float64 {
	targetWords := normalizeWords(target)
	if len(targetWords) == 0 {
		return 0
	}
	userWords := normalizeWords(transcript)

	matched := 0
	for _, tw := range targetWords {
		for _, uw := range userWords {
			if uw == tw || strings.Contains(tw, uw) || strings.Contains(uw, tw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(targetWords))
}
