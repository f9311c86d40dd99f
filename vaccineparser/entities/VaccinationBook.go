package entities

// DoseView is the per-dose projection shown inside a disease card
type DoseView struct {
	DoseNum          int        `json:"doseNum"`
	CompletedDoseNum int        `json:"completedDoseNum"`
	IsRequired       bool       `json:"isRequired"`
	Status           DoseStatus `json:"status"`
	PeriodFrom       string     `json:"periodFrom"`
	PeriodTo         string     `json:"periodTo"`
}

// DiseaseSummary aggregates every dose of one disease.
// Doses are sorted ascending by DoseNum.
type DiseaseSummary struct {
	DiseaseID      string     `json:"diseaseId"`
	DiseaseName    string     `json:"diseaseName"`
	Doses          []DoseView `json:"doses"`
	TotalDoses     int        `json:"totalDoses"`
	CompletedDoses int        `json:"completedDoses"`
	OverallStatus  DoseStatus `json:"overallStatus"`
}

// VaccinationBook lists diseases in the order they first appear in the raw records
type VaccinationBook []DiseaseSummary

// AggregateProgress summarizes a whole book
type AggregateProgress struct {
	CompletedDosesTotal    int `json:"completedDosesTotal"`
	TotalDosesTotal        int `json:"totalDosesTotal"`
	DiseasesFullyDosed     int `json:"diseasesFullyDosed"`
	DiseasesPartiallyDosed int `json:"diseasesPartiallyDosed"`
	DiseasesNotVaccinated  int `json:"diseasesNotVaccinated"`
}

// Ratio returns completed over total doses, 0 for an empty book
func (p AggregateProgress) Ratio() float64 {
	if p.TotalDosesTotal == 0 {
		return 0
	}
	return float64(p.CompletedDosesTotal) / float64(p.TotalDosesTotal)
}
