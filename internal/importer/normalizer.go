package importer

import (
	"fmt"
	"strings"

	"checkinDesk/internal/model"
)

// Policy toggles optional normalization behavior.
type Policy struct {
	// EnglishNameFallback takes the name from the English text column
	// when the name column is empty for a row.
	EnglishNameFallback bool
}

// Candidate is a normalized row ready for dedup.
type Candidate struct {
	RowIndex int
	Name     string
	Email    *string
	Phone    *string
	Attendee model.Attendee
}

// Normalize extracts a Candidate from row. It reports false when the row
// carries neither a name nor an email.
func Normalize(row Row, m Mapping, policy Policy) (Candidate, bool) {
	keys := m.keys
	if len(keys) != len(m.Headers) {
		keys = headerKeys(m.Headers)
	}
	get := func(f Field) *string {
		idx := m.Index(f)
		if idx < 0 {
			return nil
		}
		return cell(row, keys, m.Headers, idx)
	}

	name := get(FieldName)
	english := get(FieldEnglishText)
	if name == nil && policy.EnglishNameFallback && english != nil {
		name = english
	}
	email := get(FieldEmail)
	phone := get(FieldPhone)

	if name == nil && email == nil {
		return Candidate{}, false
	}

	final := fmt.Sprintf("Attendee %d", row.Index+1)
	switch {
	case name != nil:
		final = *name
	case email != nil:
		final = *email
	}

	a := model.Attendee{
		Name:                   final,
		Email:                  email,
		Phone:                  phone,
		NameCol:                headerOf(m, FieldName),
		EmailCol:               headerOf(m, FieldEmail),
		PhoneCol:               headerOf(m, FieldPhone),
		AttendeeID:             get(FieldAttendeeID),
		FullName:               get(FieldFullName),
		Column2:                get(FieldColumn2),
		Organization:           get(FieldOrganization),
		PreferredTitle:         get(FieldPreferredTitle),
		PositionInOrganization: get(FieldPositionInOrganization),
		RegionOfWork:           get(FieldRegionOfWork),
		PhoneKorean:            get(FieldPhoneKorean),
		KoreanText:             get(FieldKoreanText),
		PositionKorean:         get(FieldPositionKorean),
		EnglishText:            english,
		PositionEnglish:        get(FieldPositionEnglish),
	}

	extra := model.ExtraData{}
	for i, h := range m.Headers {
		if m.consumed(i) {
			continue
		}
		if v := cell(row, keys, m.Headers, i); v != nil {
			extra[h] = *v
		}
	}
	if len(extra) > 0 {
		a.ExtraData = extra
	}

	return Candidate{
		RowIndex: row.Index,
		Name:     final,
		Email:    email,
		Phone:    phone,
		Attendee: a,
	}, true
}

// cell reads column idx by header text first and by position when the
// keyed row has no entry under that header. Blank and repeated headers are
// stored under synthetic keys, so they always take the positional path.
func cell(row Row, keys, headers []string, idx int) *string {
	v, ok := "", false
	if keys[idx] == headers[idx] {
		v, ok = row.Keyed[headers[idx]]
	}
	if !ok {
		v = row.Value(idx)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func headerOf(m Mapping, f Field) *string {
	c := m.Column(f)
	if c == nil {
		return nil
	}
	h := c.Header
	return &h
}
