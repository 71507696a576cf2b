package server

import "strings"

// TextFilter cleans outgoing message text before broadcast. It is an
// external collaborator: the router applies it only to texts longer than
// the short-preset threshold and falls back to the original text when it
// fails.
type TextFilter interface {
	Filter(text string) (string, error)
}

// WordListFilter masks listed words with asterisks, case-insensitively.
// The in-process default; deployments can plug in something smarter.
type WordListFilter struct {
	words []string
}

func NewWordListFilter(words []string) *WordListFilter {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return &WordListFilter{words: lowered}
}

func (f *WordListFilter) Filter(text string) (string, error) {
	fields := strings.Fields(text)
	changed := false
	for i, field := range fields {
		lower := strings.ToLower(field)
		for _, w := range f.words {
			if strings.Contains(lower, w) {
				fields[i] = strings.Repeat("*", len([]rune(field)))
				changed = true
				break
			}
		}
	}
	if !changed {
		return text, nil
	}
	return strings.Join(fields, " "), nil
}
