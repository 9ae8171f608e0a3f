package domain

// QuestionKind selects how a question is prompted. A listen question
// plays the target-language audio and the user repeats it; a speak
// question presents the translation and the user produces the target
// sentence unaided.
type QuestionKind string

// Possible question kinds.
const (
	QuestionListen QuestionKind = "listen"
	QuestionSpeak  QuestionKind = "speak"
)

// Question is one item in a constructed exam or review queue. The answer
// is always a spoken attempt matched against TargetText.
type Question struct {
	Kind            QuestionKind `json:"kind"`
	PromptText      string       `json:"prompt_text"`
	TargetText      string       `json:"target_text"`
	TranslationText string       `json:"translation_text"`
	Day             int          `json:"day"`
	SentenceID      string       `json:"sentence_id"`
}
