// Package vaccineparser fetches a child's vaccine profile rows from the upstream
// health API and decodes them leniently into entities.RawDoseRecord.
package vaccineparser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"golang.org/x/text/encoding/charmap"
)

// ErrNotAList is returned when the payload is neither a JSON array, null,
// nor an object wrapping one of those under "data".
var ErrNotAList = errors.New("vaccine profile payload is not a list")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeRecords decodes a vaccine profile payload.
// An empty body or JSON null is an empty list. Individual records never fail:
// fields that are absent or unusable take their zero value and are listed in MissingFields.
func DecodeRecords(body []byte) ([]entities.RawDoseRecord, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(toUTF8(body), utf8BOM))
	return decodeList(body, true)
}

func decodeList(body []byte, allowEnvelope bool) ([]entities.RawDoseRecord, error) {
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []entities.RawDoseRecord{}, nil
	}

	switch body[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(body, &elements); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAList, err)
		}

		records := make([]entities.RawDoseRecord, 0, len(elements))
		for _, element := range elements {
			records = append(records, decodeRecord(element))
		}
		return records, nil

	case '{':
		if !allowEnvelope {
			return nil, ErrNotAList
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAList, err)
		}

		data, ok := envelope["data"]
		if !ok {
			return nil, fmt.Errorf("%w: object without a data member", ErrNotAList)
		}
		return decodeList(bytes.TrimSpace(data), false)
	}

	return nil, ErrNotAList
}

// decodeRecord never fails, a non-object element becomes a record with every field missing
func decodeRecord(raw json.RawMessage) entities.RawDoseRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	var rec entities.RawDoseRecord
	missing := func(name string, ok bool) {
		if !ok {
			rec.MissingFields = append(rec.MissingFields, name)
		}
	}

	var ok bool
	rec.DiseaseID, ok = decodeIdentity(fields[entities.FieldDiseaseID])
	missing(entities.FieldDiseaseID, ok)

	rec.DiseaseName, ok = decodeIdentity(fields[entities.FieldDiseaseName])
	missing(entities.FieldDiseaseName, ok)

	rec.RequiredDoseNum, ok = decodeInt(fields[entities.FieldRequiredDoseNum])
	missing(entities.FieldRequiredDoseNum, ok)

	rec.CompletedDoseNum, ok = decodeInt(fields[entities.FieldCompletedDoseNum])
	missing(entities.FieldCompletedDoseNum, ok)

	rec.IsRequired, ok = decodeBool(fields[entities.FieldIsRequired])
	missing(entities.FieldIsRequired, ok)

	rec.RawStatus, ok = decodeText(fields[entities.FieldStatus])
	missing(entities.FieldStatus, ok)
	rec.Status, _ = entities.ParseDoseStatus(rec.RawStatus)

	// Periods are display strings, an absent window is common and not reported
	rec.PeriodFrom, _ = decodeText(fields[entities.FieldPeriodFrom])
	rec.PeriodTo, _ = decodeText(fields[entities.FieldPeriodTo])

	return rec
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeText accepts JSON strings and renders numbers verbatim
func decodeText(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}

	return "", false
}

// decodeIdentity is decodeText where a blank value counts as missing
func decodeIdentity(raw json.RawMessage) (string, bool) {
	s, ok := decodeText(raw)
	if !ok || strings.TrimSpace(s) == "" {
		return s, false
	}
	return s, true
}

// decodeInt accepts numbers and numeric strings, fractions are truncated
func decodeInt(raw json.RawMessage) (int, bool) {
	text, ok := decodeText(raw)
	if !ok {
		return 0, false
	}
	text = strings.TrimSpace(text)

	if i, err := strconv.Atoi(text); err == nil {
		return i, true
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// decodeBool accepts JSON booleans, "true"/"false" strings and 0/1 numbers
func decodeBool(raw json.RawMessage) (bool, bool) {
	if isNull(raw) {
		return false, false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	text, ok := decodeText(raw)
	if !ok {
		return false, false
	}

	if b, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
		return b, true
	}
	return false, false
}

// toUTF8 transcodes legacy Vietnamese code page payloads, UTF-8 input is returned as-is
func toUTF8(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}

	decoded, err := charmap.Windows1258.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}
