// Package validation checks client input and reports the data quality of upstream vaccine profiles.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
)

const (
	maxChildIDLength     = 64
	maxSearchQueryLength = 100
	maxSearchWords       = 8
	maxPage              = 10000
)

// Pre-compiled once and reused for all validations
var (
	childIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// Latin script covers the Vietnamese alphabet, marks allow decomposed input.
	// '/', '+' and '&' appear in combined vaccine names such as "DTaP-IPV/Hib".
	searchRegex = regexp.MustCompile(`^[\p{Latin}\p{M}0-9\s\-\.'(),/+&]+$`)

	// Substring checks are cheaper than regex for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$regex:",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateChildID accepts 1 to 64 characters of letters, digits, '-' and '_'
func (v *DataValidatorImpl) ValidateChildID(input string) error {
	if input == "" {
		return fmt.Errorf("child id cannot be empty")
	}

	if len(input) > maxChildIDLength {
		return fmt.Errorf("child id too long: maximum %d characters", maxChildIDLength)
	}

	if !childIDRegex.MatchString(input) {
		return fmt.Errorf("child id contains invalid characters. Only letters, numbers, hyphens and underscores are allowed")
	}

	return nil
}

// ValidateSearchQuery validates a disease name search. An empty query is valid and means no filter.
func (v *DataValidatorImpl) ValidateSearchQuery(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("search query is not valid UTF-8")
	}

	if utf8.RuneCountInString(input) > maxSearchQueryLength {
		return fmt.Errorf("search query too long: maximum %d characters", maxSearchQueryLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if len(strings.Fields(input)) > maxSearchWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxSearchWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("search query contains potentially dangerous content")
		}
	}

	if !searchRegex.MatchString(input) {
		return fmt.Errorf("search query contains invalid characters. Only letters (including Vietnamese), numbers, spaces and basic punctuation are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("search query contains excessive character repetition")
	}

	return nil
}

// ValidatePage parses a 1-based page number. An empty value means the first page.
func (v *DataValidatorImpl) ValidatePage(input string) (int, error) {
	if input == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(input)
	if err != nil {
		return -1, fmt.Errorf("page must be a number")
	}

	if page < 1 || page > maxPage {
		return -1, fmt.Errorf("page must be between 1 and %d", maxPage)
	}

	return page, nil
}

type doseKey struct {
	disease entities.DiseaseKey
	doseNum int
}

// ReportDataQuality lists what is wrong with a payload without rejecting anything
func (v *DataValidatorImpl) ReportDataQuality(records []entities.RawDoseRecord) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalRecords:          len(records),
		MissingIdentity:       []int{},
		MissingDoseNum:        []int{},
		MalformedFields:       []int{},
		UnknownStatuses:       []string{},
		DuplicateDoses:        []interfaces.DuplicateDose{},
		ConflictingCompletion: []int{},
	}

	seenStatuses := make(map[string]bool)
	doseCounts := make(map[doseKey]int)
	var doseOrder []doseKey

	for i, rec := range records {
		// Check 1: identity
		if rec.IsMissing(entities.FieldDiseaseID) || rec.IsMissing(entities.FieldDiseaseName) {
			report.MissingIdentity = append(report.MissingIdentity, i)
		}

		// Check 2: dose number
		if rec.IsMissing(entities.FieldRequiredDoseNum) || rec.RequiredDoseNum <= 0 {
			report.MissingDoseNum = append(report.MissingDoseNum, i)
		}

		// Check 3: other defaulted fields
		if rec.IsMissing(entities.FieldCompletedDoseNum) || rec.IsMissing(entities.FieldIsRequired) ||
			rec.IsMissing(entities.FieldStatus) {
			report.MalformedFields = append(report.MalformedFields, i)
		}

		// Check 4: status text outside the known labels
		_, known := entities.ParseDoseStatus(rec.RawStatus)
		if !known && rec.RawStatus != "" && !seenStatuses[rec.RawStatus] {
			seenStatuses[rec.RawStatus] = true
			report.UnknownStatuses = append(report.UnknownStatuses, rec.RawStatus)
		}

		// Check 5: same dose twice for one disease
		key := doseKey{disease: rec.Key(), doseNum: rec.RequiredDoseNum}
		if doseCounts[key] == 0 {
			doseOrder = append(doseOrder, key)
		}
		doseCounts[key]++

		// Check 6: status disagrees with the completed count
		if hasConflictingCompletion(rec) {
			report.ConflictingCompletion = append(report.ConflictingCompletion, i)
		}
	}

	for _, key := range doseOrder {
		if count := doseCounts[key]; count > 1 {
			report.DuplicateDoses = append(report.DuplicateDoses, interfaces.DuplicateDose{
				DiseaseID:   key.disease.ID,
				DiseaseName: key.disease.Name,
				DoseNum:     key.doseNum,
				Count:       count,
			})
		}
	}

	return report
}

// hasConflictingCompletion flags a fully dosed status with a short completed count,
// and a not-vaccinated status whose completed count already covers the dose
func hasConflictingCompletion(rec entities.RawDoseRecord) bool {
	if rec.RequiredDoseNum <= 0 || rec.IsMissing(entities.FieldCompletedDoseNum) {
		return false
	}

	switch rec.Status {
	case entities.StatusFullyDosed:
		return rec.CompletedDoseNum < rec.RequiredDoseNum
	case entities.StatusNotVaccinated:
		_, known := entities.ParseDoseStatus(rec.RawStatus)
		return known && rec.CompletedDoseNum >= rec.RequiredDoseNum
	}
	return false
}

// hasExcessiveRepetition checks for the same character repeated more than 10 times consecutively
func hasExcessiveRepetition(input string) bool {
	var last rune
	run := 0
	for _, r := range input {
		if r == last {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		last = r
		run = 1
	}
	return false
}
