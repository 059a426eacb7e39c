package ocr

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// Evaluate scores extracted text against an expected transcript. Both sides
// are lowercased and whitespace-collapsed first. A blank expected text
// yields the zero value.
func Evaluate(extracted, expected string) models.TextAccuracy {
	ref := normalize(expected)
	if ref == "" {
		return models.TextAccuracy{}
	}
	hyp := normalize(extracted)

	wordErrorRate, _ := wer.WER(strings.Fields(ref), strings.Fields(hyp))
	charErrorRate := float64(levenshtein.Distance(ref, hyp)) / float64(utf8.RuneCountInString(ref))

	return models.TextAccuracy{
		ExpectedText: expected,
		WER:          wordErrorRate,
		CER:          charErrorRate,
		MatchScore:   math.Max(0, math.Min(1, 1-charErrorRate)),
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
