package book

import (
	"strings"
	"unicode"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dStroke maps the Vietnamese d with stroke, which has no decomposition
var dStroke = runes.Map(func(r rune) rune {
	if r == 'đ' || r == 'Đ' {
		return 'd'
	}
	return r
})

// NormalizeText folds s for diacritic and case insensitive comparison ("Sởi" -> "soi")
func NormalizeText(s string) string {
	// A transform.Chain keeps state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), dStroke, norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Filter keeps the diseases whose name contains query after normalization.
// A blank query returns the book unchanged.
func Filter(book entities.VaccinationBook, query string) entities.VaccinationBook {
	if strings.TrimSpace(query) == "" {
		return book
	}

	needle := NormalizeText(query)
	filtered := make(entities.VaccinationBook, 0, len(book))
	for _, disease := range book {
		if strings.Contains(NormalizeText(disease.DiseaseName), needle) {
			filtered = append(filtered, disease)
		}
	}
	return filtered
}
