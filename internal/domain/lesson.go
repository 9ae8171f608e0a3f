package domain

// Sentence is one unit of lesson material: a target-language sentence and
// its translation in the learner's language.
type Sentence struct {
	ID          string `json:"id"`
	Target      string `json:"target"`
	Translation string `json:"translation"`
}

// Lesson is one day's sentence sequence. Lesson content is supplied by
// the host application; the engine only walks it.
type Lesson struct {
	Day             int        `json:"day"`
	Title           string     `json:"title"`
	TargetLang      string     `json:"target_lang"`      // BCP 47 tag, e.g. "de-DE"
	TranslationLang string     `json:"translation_lang"` // BCP 47 tag, e.g. "en-US"
	Sentences       []Sentence `json:"sentences"`
}

// Week returns the exam week this lesson belongs to (seven days per week).
func (l Lesson) Week() int {
	return WeekForDay(l.Day)
}

// WeekForDay maps a lesson day to its week number. Day 1-7 is week 1.
func WeekForDay(day int) int {
	if day < 1 {
		return 1
	}
	return (day-1)/7 + 1
}

// PlaceholderLesson is the defined next state for a day with no content:
// a single-sentence lesson telling the user the material is missing, so
// the session state machine never blocks on absent data.
func PlaceholderLesson(day int) Lesson {
	return Lesson{
		Day:             day,
		Title:           "Lesson unavailable",
		TargetLang:      "en-US",
		TranslationLang: "en-US",
		Sentences: []Sentence{
			{
				ID:          "placeholder",
				Target:      "This lesson is not available yet.",
				Translation: "This lesson is not available yet.",
			},
		},
	}
}
