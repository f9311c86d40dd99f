// Package book turns raw dose records into the vaccination book shown to parents:
// grouping, ordering, status classification, search and pagination.
package book

import (
	"sort"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
)

// Aggregate groups records by disease in first-seen order and classifies each group.
// It is pure and never fails; malformed records still produce a group.
func Aggregate(records []entities.RawDoseRecord) entities.VaccinationBook {
	order := make([]entities.DiseaseKey, 0)
	groups := make(map[entities.DiseaseKey][]entities.DoseView)

	for _, rec := range records {
		key := rec.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entities.DoseView{
			DoseNum:          rec.RequiredDoseNum,
			CompletedDoseNum: rec.CompletedDoseNum,
			IsRequired:       rec.IsRequired,
			Status:           rec.Status,
			PeriodFrom:       rec.PeriodFrom,
			PeriodTo:         rec.PeriodTo,
		})
	}

	book := make(entities.VaccinationBook, 0, len(order))
	for _, key := range order {
		book = append(book, summarize(key, groups[key]))
	}
	return book
}

func summarize(key entities.DiseaseKey, doses []entities.DoseView) entities.DiseaseSummary {
	sort.SliceStable(doses, func(i, j int) bool {
		return doses[i].DoseNum < doses[j].DoseNum
	})

	completed := 0
	partial := false
	for _, dose := range doses {
		if IsDoseCompleted(dose) {
			completed++
		}
		if dose.Status == entities.StatusPartiallyDosed && dose.CompletedDoseNum > 0 {
			partial = true
		}
	}

	return entities.DiseaseSummary{
		DiseaseID:      key.ID,
		DiseaseName:    key.Name,
		Doses:          doses,
		TotalDoses:     len(doses),
		CompletedDoses: completed,
		OverallStatus:  OverallStatus(len(doses), completed, partial),
	}
}

// IsDoseCompleted: the upstream status says fully dosed, or the completed count reached this dose
func IsDoseCompleted(dose entities.DoseView) bool {
	return dose.Status == entities.StatusFullyDosed || dose.CompletedDoseNum >= dose.DoseNum
}

// OverallStatus classifies a disease. A group without doses is never fully dosed.
func OverallStatus(totalDoses, completedDoses int, hasPartialProgress bool) entities.DoseStatus {
	switch {
	case totalDoses > 0 && completedDoses == totalDoses:
		return entities.StatusFullyDosed
	case completedDoses > 0 || hasPartialProgress:
		return entities.StatusPartiallyDosed
	default:
		return entities.StatusNotVaccinated
	}
}

// Progress totals doses and disease statuses over a whole, unfiltered book
func Progress(book entities.VaccinationBook) entities.AggregateProgress {
	var p entities.AggregateProgress
	for _, disease := range book {
		p.CompletedDosesTotal += disease.CompletedDoses
		p.TotalDosesTotal += disease.TotalDoses

		switch disease.OverallStatus {
		case entities.StatusFullyDosed:
			p.DiseasesFullyDosed++
		case entities.StatusPartiallyDosed:
			p.DiseasesPartiallyDosed++
		default:
			p.DiseasesNotVaccinated++
		}
	}
	return p
}
