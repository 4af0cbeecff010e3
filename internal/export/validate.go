package export

import "strings"

// Validate checks the two export preconditions: a title and at least one
// answered question.
func Validate(doc Document) error {
	if strings.TrimSpace(doc.Title) == "" {
		return &ValidationError{Message: "title is required"}
	}
	if len(answered(doc)) == 0 {
		return &ValidationError{Message: "at least one question must have content"}
	}
	return nil
}

// answered keeps the questions whose trimmed content is not empty. Both
// formats render only these.
func answered(doc Document) []Question {
	var out []Question
	for _, q := range doc.Questions {
		if strings.TrimSpace(q.Content) != "" {
			out = append(out, q)
		}
	}
	return out
}

const defaultFilename = "document"

// sanitizeFilename replaces characters that are invalid in file names on
// common platforms and falls back to a default for blank titles.
func sanitizeFilename(title string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))

	if result == "" {
		return defaultFilename
	}
	return result
}
