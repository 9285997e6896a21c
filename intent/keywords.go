package intent

import "strings"

// defaultKeywords maps each label to the lowercase cue words used by the
// deterministic fallback path.
func defaultKeywords() map[Label][]string {
	return map[Label][]string{
		LabelGreeting: {
			"hi", "hello", "hey", "howdy", "greetings",
			"good morning", "good afternoon", "good evening",
		},
		LabelQuestion: {
			"what", "why", "how", "when", "where", "who",
			"can i", "could you", "do i", "does", "is it",
		},
		LabelCommand: {
			"show", "list", "find", "calculate", "compare",
			"get", "give me", "estimate", "look up",
		},
	}
}

// matchKeywords scans text for keyword cues and returns the first matching
// label in priority order. A trailing question mark always reads as a
// question. Returns LabelUnclear when nothing matches.
func matchKeywords(keywords map[Label][]string, text string) Label {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return LabelUnclear
	}

	// Greeting cues must lead the message; "hello" buried mid-sentence is
	// not a greeting.
	for _, kw := range keywords[LabelGreeting] {
		if lower == kw || strings.HasPrefix(lower, kw+" ") || strings.HasPrefix(lower, kw+",") || strings.HasPrefix(lower, kw+"!") {
			return LabelGreeting
		}
	}

	if strings.HasSuffix(lower, "?") {
		return LabelQuestion
	}
	for _, kw := range keywords[LabelQuestion] {
		if strings.HasPrefix(lower, kw+" ") {
			return LabelQuestion
		}
	}

	for _, kw := range keywords[LabelCommand] {
		if strings.HasPrefix(lower, kw+" ") {
			return LabelCommand
		}
	}

	return LabelUnclear
}
