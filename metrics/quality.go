package metrics

import "github.com/giygas/vaccination-book-api/interfaces"

// RecordDataQuality adds the findings of a payload report to VaccineDataQualityIssues
func RecordDataQuality(report *interfaces.DataQualityReport) {
	if report == nil {
		return
	}

	add := func(kind string, n int) {
		if n > 0 {
			VaccineDataQualityIssues.WithLabelValues(kind).Add(float64(n))
		}
	}
	add("missing_identity", len(report.MissingIdentity))
	add("missing_dose_num", len(report.MissingDoseNum))
	add("malformed_fields", len(report.MalformedFields))
	add("unknown_status", len(report.UnknownStatuses))
	add("duplicate_dose", len(report.DuplicateDoses))
	add("conflicting_completion", len(report.ConflictingCompletion))
}
