package insights

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// Keyword limits for the question-driven and general-purpose variants.
	KeywordLimitQuestion = 15
	KeywordLimitGeneral  = 10

	// CoOccurrenceLimit bounds the context-term list.
	CoOccurrenceLimit = 10
)

var wordPattern = regexp.MustCompile(`[a-z]+`)

// Keyword is a corpus term with its raw frequency.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ExtractKeywords counts whole words of at least five letters across the
// given texts, excluding stopwords and the active search terms. Words seen
// fewer than twice are dropped; the rest are returned by descending count,
// capped at topN. Deterministic for identical input.
func ExtractKeywords(texts []string, searchTerms []string, topN int) []Keyword {
	excluded := termSet(searchTerms)

	counts := make(map[string]int)
	for _, text := range texts {
		for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
			if len(word) < 5 || isStopword(word) || excluded[word] {
				continue
			}
			counts[word]++
		}
	}

	keywords := make([]Keyword, 0, len(counts))
	for word, count := range counts {
		if count < 2 {
			continue
		}
		keywords = append(keywords, Keyword{Word: word, Count: count})
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})

	if len(keywords) > topN {
		keywords = keywords[:topN]
	}

	return keywords
}

// CoOccurringTerms mines terms appearing in the same sentence as an active
// search term, capturing context rather than corpus-wide frequency.
// Sentences are delimited by '.', '!' and '?'.
func CoOccurringTerms(texts []string, searchTerms []string) []Keyword {
	terms := termSet(searchTerms)
	if len(terms) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, text := range texts {
		for _, sentence := range splitSentences(strings.ToLower(text)) {
			words := wordPattern.FindAllString(sentence, -1)

			if !containsAny(words, terms) {
				continue
			}

			for _, word := range words {
				if len(word) < 5 || isStopword(word) || terms[word] {
					continue
				}
				counts[word]++
			}
		}
	}

	keywords := make([]Keyword, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, Keyword{Word: word, Count: count})
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})

	if len(keywords) > CoOccurrenceLimit {
		keywords = keywords[:CoOccurrenceLimit]
	}

	return keywords
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

func containsAny(words []string, terms map[string]bool) bool {
	for _, word := range words {
		if terms[word] {
			return true
		}
	}
	return false
}

// termSet lowercases search terms into a lookup set, splitting multi-word
// terms so each word excludes independently.
func termSet(searchTerms []string) map[string]bool {
	set := make(map[string]bool)
	for _, term := range searchTerms {
		for _, word := range wordPattern.FindAllString(strings.ToLower(term), -1) {
			set[word] = true
		}
	}
	return set
}
