package book

import (
	"testing"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func sampleBook() entities.VaccinationBook {
	return entities.VaccinationBook{
		{DiseaseID: "1", DiseaseName: "Sởi"},
		{DiseaseID: "2", DiseaseName: "Bại liệt"},
		{DiseaseID: "3", DiseaseName: "Đậu mùa"},
		{DiseaseID: "4", DiseaseName: "Viêm não Nhật Bản"},
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sởi", "soi"},
		{"Bại liệt", "bai liet"},
		{"Đậu mùa", "dau mua"},
		{"đ", "d"},
		{norm.NFD.String("Viêm não"), "viem nao"},
		{"ABC", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestFilterMatchesWithoutDiacritics(t *testing.T) {
	filtered := Filter(sampleBook(), "soi")
	if assert.Len(t, filtered, 1) {
		assert.Equal(t, "Sởi", filtered[0].DiseaseName)
	}

	assert.Len(t, Filter(sampleBook(), "DAU"), 1)
	assert.Len(t, Filter(sampleBook(), "liệt"), 1)
	assert.Len(t, Filter(sampleBook(), "a"), 3)
	assert.Empty(t, Filter(sampleBook(), "lao"))
}

func TestFilterBlankQueryIsNoop(t *testing.T) {
	book := sampleBook()
	for _, q := range []string{"", " ", "\t\n"} {
		assert.Equal(t, book, Filter(book, q))
	}
}

func TestFilterCombinedVaccineNames(t *testing.T) {
	b := entities.VaccinationBook{
		{DiseaseID: "1", DiseaseName: "Sởi/Quai bị/Rubella"},
		{DiseaseID: "2", DiseaseName: "DTaP-IPV/Hib"},
		{DiseaseID: "3", DiseaseName: "Sởi"},
	}

	got := Filter(b, "quai bi/rubella")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "1", got[0].DiseaseID)
	}

	got = Filter(b, "IPV/Hib")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "2", got[0].DiseaseID)
	}
}
