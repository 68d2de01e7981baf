package readingtime

import (
	"math"
	"time"
	"unicode"
)

const DefaultWordsPerMinute = 200

type Stats struct {
	Words   int
	Minutes float64
	Time    time.Duration
}

// RoundedMinutes rounds up so a post never under-promises its reading time.
func (s Stats) RoundedMinutes() int {
	return int(math.Ceil(s.Minutes))
}

type Estimator struct {
	wordsPerMinute int
}

func NewEstimator(wordsPerMinute int) *Estimator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return &Estimator{wordsPerMinute: wordsPerMinute}
}

func (e *Estimator) WordsPerMinute() int {
	return e.wordsPerMinute
}

func (e *Estimator) Run(text string) Stats {
	words := CountWords(text)
	minutes := float64(words) / float64(e.wordsPerMinute)

	return Stats{
		Words:   words,
		Minutes: minutes,
		Time:    time.Duration(math.Round(minutes * float64(time.Minute))),
	}
}

// CountWords counts whitespace-separated words. Every CJK rune is a word
// of its own, and punctuation trailing a CJK rune does not open a new one.
func CountWords(text string) int {
	words := 0
	inWord := false
	afterCJK := false

	for _, r := range text {
		switch {
		case isCJK(r):
			words++
			inWord = false
			afterCJK = true
		case unicode.IsSpace(r):
			inWord = false
		case afterCJK && unicode.IsPunct(r):
		default:
			if !inWord {
				words++
				inWord = true
			}
			afterCJK = false
		}
	}

	return words
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
