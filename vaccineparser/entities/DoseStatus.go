package entities

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DoseStatus is the vaccination state of a single dose or of a whole disease.
// The zero value is StatusNotVaccinated so unknown input fails safe.
type DoseStatus int

const (
	StatusNotVaccinated DoseStatus = iota
	StatusPartiallyDosed
	StatusFullyDosed
)

// Labels used by the upstream API and echoed back to clients
const (
	LabelFullyDosed     = "Đã đủ liều"
	LabelPartiallyDosed = "Chưa đủ liều"
	LabelNotVaccinated  = "Chưa tiêm"
)

// ParseDoseStatus maps an upstream status string to a DoseStatus.
// The boolean is false when the text was not one of the known labels.
func ParseDoseStatus(s string) (DoseStatus, bool) {
	switch norm.NFC.String(strings.TrimSpace(s)) {
	case LabelFullyDosed:
		return StatusFullyDosed, true
	case LabelPartiallyDosed:
		return StatusPartiallyDosed, true
	case LabelNotVaccinated:
		return StatusNotVaccinated, true
	}
	return StatusNotVaccinated, false
}

func (s DoseStatus) String() string {
	switch s {
	case StatusFullyDosed:
		return LabelFullyDosed
	case StatusPartiallyDosed:
		return LabelPartiallyDosed
	default:
		return LabelNotVaccinated
	}
}

// Code returns a stable ASCII identifier, used for metrics labels and logs
func (s DoseStatus) Code() string {
	switch s {
	case StatusFullyDosed:
		return "fully-dosed"
	case StatusPartiallyDosed:
		return "partially-dosed"
	default:
		return "not-vaccinated"
	}
}

func (s DoseStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DoseStatus) UnmarshalText(text []byte) error {
	*s, _ = ParseDoseStatus(string(text))
	return nil
}
