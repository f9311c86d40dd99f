package book

import (
	"fmt"
	"testing"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dose(id, name string, doseNum, completed int, status entities.DoseStatus) entities.RawDoseRecord {
	return entities.RawDoseRecord{
		DiseaseID:        id,
		DiseaseName:      name,
		RequiredDoseNum:  doseNum,
		CompletedDoseNum: completed,
		Status:           status,
	}
}

func TestAggregatePartialDisease(t *testing.T) {
	book := Aggregate([]entities.RawDoseRecord{
		dose("1", "Sởi", 1, 1, entities.StatusFullyDosed),
		dose("1", "Sởi", 2, 0, entities.StatusNotVaccinated),
	})

	require.Len(t, book, 1)
	assert.Equal(t, 2, book[0].TotalDoses)
	assert.Equal(t, 1, book[0].CompletedDoses)
	assert.Equal(t, entities.StatusPartiallyDosed, book[0].OverallStatus)
}

func TestAggregateFullyDosedDisease(t *testing.T) {
	book := Aggregate([]entities.RawDoseRecord{
		dose("1", "Sởi", 1, 0, entities.StatusFullyDosed),
		dose("1", "Sởi", 2, 0, entities.StatusFullyDosed),
	})

	require.Len(t, book, 1)
	assert.Equal(t, 2, book[0].CompletedDoses)
	assert.Equal(t, entities.StatusFullyDosed, book[0].OverallStatus)
}

func TestAggregateEmptyInput(t *testing.T) {
	book := Aggregate(nil)
	assert.NotNil(t, book)
	assert.Empty(t, book)
	assert.Equal(t, entities.AggregateProgress{}, Progress(book))
}

func TestAggregateGroupingAndOrder(t *testing.T) {
	records := []entities.RawDoseRecord{
		dose("2", "Bại liệt", 3, 0, entities.StatusNotVaccinated),
		dose("1", "Sởi", 2, 0, entities.StatusNotVaccinated),
		dose("2", "Bại liệt", 1, 1, entities.StatusFullyDosed),
		dose("1", "Sởi", 1, 1, entities.StatusFullyDosed),
		dose("2", "Bại liệt", 2, 0, entities.StatusNotVaccinated),
		dose("1", "Soi", 1, 0, entities.StatusNotVaccinated),
	}

	book := Aggregate(records)

	require.Len(t, book, 3)
	assert.Equal(t, "Bại liệt", book[0].DiseaseName, "groups keep first-seen order")
	assert.Equal(t, "Sởi", book[1].DiseaseName)
	assert.Equal(t, "Soi", book[2].DiseaseName, "names are not canonicalized")

	total := 0
	for _, disease := range book {
		total += len(disease.Doses)
		for i := 1; i < len(disease.Doses); i++ {
			assert.LessOrEqual(t, disease.Doses[i-1].DoseNum, disease.Doses[i].DoseNum)
		}
	}
	assert.Equal(t, len(records), total, "every record lands in exactly one group")
}

func TestAggregateKeepsDuplicateDoses(t *testing.T) {
	first := dose("1", "Sởi", 1, 0, entities.StatusNotVaccinated)
	first.PeriodFrom = "first"
	second := dose("1", "Sởi", 1, 0, entities.StatusNotVaccinated)
	second.PeriodFrom = "second"

	book := Aggregate([]entities.RawDoseRecord{dose("1", "Sởi", 2, 0, entities.StatusNotVaccinated), first, second})

	require.Len(t, book, 1)
	require.Len(t, book[0].Doses, 3)
	assert.Equal(t, "first", book[0].Doses[0].PeriodFrom, "sort is stable for equal dose numbers")
	assert.Equal(t, "second", book[0].Doses[1].PeriodFrom)
}

func TestAggregateStatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		records  []entities.RawDoseRecord
		expected entities.DoseStatus
	}{
		{
			name:     "completed count reaches dose",
			records:  []entities.RawDoseRecord{dose("1", "Lao", 1, 1, entities.StatusNotVaccinated)},
			expected: entities.StatusFullyDosed,
		},
		{
			name: "partial status with progress",
			records: []entities.RawDoseRecord{
				dose("1", "Lao", 2, 1, entities.StatusPartiallyDosed),
			},
			expected: entities.StatusPartiallyDosed,
		},
		{
			name: "partial status without progress",
			records: []entities.RawDoseRecord{
				dose("1", "Lao", 2, 0, entities.StatusPartiallyDosed),
			},
			expected: entities.StatusNotVaccinated,
		},
		{
			name: "nothing done",
			records: []entities.RawDoseRecord{
				dose("1", "Lao", 1, 0, entities.StatusNotVaccinated),
				dose("1", "Lao", 2, 0, entities.StatusNotVaccinated),
			},
			expected: entities.StatusNotVaccinated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := Aggregate(tt.records)
			require.Len(t, book, 1)
			assert.Equal(t, tt.expected, book[0].OverallStatus)
		})
	}
}

func TestOverallStatusZeroDoses(t *testing.T) {
	assert.Equal(t, entities.StatusNotVaccinated, OverallStatus(0, 0, false))
	assert.Equal(t, entities.StatusPartiallyDosed, OverallStatus(0, 0, true))
}

func TestAggregateFullyDosedIff(t *testing.T) {
	statuses := []entities.DoseStatus{entities.StatusNotVaccinated, entities.StatusPartiallyDosed, entities.StatusFullyDosed}

	var records []entities.RawDoseRecord
	for i := 0; i < 60; i++ {
		records = append(records, dose(
			fmt.Sprint(i%7), fmt.Sprintf("Disease %d", i%7),
			1+i%4, (i*7)%5, statuses[i%3],
		))
	}

	for _, disease := range Aggregate(records) {
		fully := disease.OverallStatus == entities.StatusFullyDosed
		assert.Equal(t, disease.TotalDoses > 0 && disease.CompletedDoses == disease.TotalDoses, fully, disease.DiseaseName)
	}
}

func TestAggregateMalformedRecords(t *testing.T) {
	records := []entities.RawDoseRecord{
		{MissingFields: []string{entities.FieldDiseaseID, entities.FieldDiseaseName}},
		{DiseaseName: "Sởi"},
		{},
	}

	var book entities.VaccinationBook
	require.NotPanics(t, func() { book = Aggregate(records) })

	require.Len(t, book, 2)
	assert.Equal(t, entities.DiseaseKey{}, entities.DiseaseKey{ID: book[0].DiseaseID, Name: book[0].DiseaseName})
	assert.Equal(t, 2, book[0].TotalDoses)
	// doseNum 0 with completed 0 satisfies completedDoseNum >= doseNum
	assert.Equal(t, entities.StatusFullyDosed, book[0].OverallStatus)
}

func TestAggregateIdempotent(t *testing.T) {
	records := []entities.RawDoseRecord{
		dose("1", "Sởi", 2, 1, entities.StatusPartiallyDosed),
		dose("1", "Sởi", 1, 1, entities.StatusFullyDosed),
		dose("2", "Lao", 1, 0, entities.StatusNotVaccinated),
	}

	assert.Equal(t, Aggregate(records), Aggregate(records))
}

func TestProgress(t *testing.T) {
	book := Aggregate([]entities.RawDoseRecord{
		dose("1", "Sởi", 1, 1, entities.StatusFullyDosed),
		dose("2", "Lao", 1, 1, entities.StatusFullyDosed),
		dose("2", "Lao", 2, 1, entities.StatusPartiallyDosed),
		dose("3", "Ho gà", 1, 0, entities.StatusNotVaccinated),
	})

	p := Progress(book)
	assert.Equal(t, entities.AggregateProgress{
		CompletedDosesTotal:    2,
		TotalDosesTotal:        4,
		DiseasesFullyDosed:     1,
		DiseasesPartiallyDosed: 1,
		DiseasesNotVaccinated:  1,
	}, p)
	assert.InDelta(t, 0.5, p.Ratio(), 1e-9)
}
