package entities

// RawDoseRecord is one row of the child vaccine profile endpoint.
// Disease identity is the pair (DiseaseID, DiseaseName), compared verbatim.
type RawDoseRecord struct {
	DiseaseID        string     `json:"diseaseId"`
	DiseaseName      string     `json:"diseaseName"`
	RequiredDoseNum  int        `json:"requiredDoseNum"`
	CompletedDoseNum int        `json:"completedDoseNum"`
	IsRequired       bool       `json:"isRequired"`
	Status           DoseStatus `json:"status"`
	PeriodFrom       string     `json:"periodFrom"`
	PeriodTo         string     `json:"periodTo"`

	RawStatus     string   `json:"-"` // Status text as received, before mapping
	MissingFields []string `json:"-"` // Fields that were absent, null or unparseable
}

// Key returns the composite disease identity of the record
func (r RawDoseRecord) Key() DiseaseKey {
	return DiseaseKey{ID: r.DiseaseID, Name: r.DiseaseName}
}

// IsMissing reports whether the named JSON field was defaulted during decoding
func (r RawDoseRecord) IsMissing(field string) bool {
	for _, f := range r.MissingFields {
		if f == field {
			return true
		}
	}
	return false
}

// DiseaseKey groups dose records into a disease
type DiseaseKey struct {
	ID   string
	Name string
}

// JSON field names of the upstream record, as reported in MissingFields
const (
	FieldDiseaseID        = "diseaseId"
	FieldDiseaseName      = "diseaseName"
	FieldRequiredDoseNum  = "requiredDoseNum"
	FieldCompletedDoseNum = "completedDoseNum"
	FieldIsRequired       = "isRequired"
	FieldStatus           = "status"
	FieldPeriodFrom       = "periodFrom"
	FieldPeriodTo         = "periodTo"
)
