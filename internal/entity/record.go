package entity

import (
	"fmt"
	"strings"
	"time"
)

// RecordStatus describes the lifecycle state assigned to a directory record.
type RecordStatus string

// ClearanceLevel controls which audience may see a record or its details.
type ClearanceLevel string

const (
	StatusActive RecordStatus = "ACTIVE"

	ClearancePublic ClearanceLevel = "PUBLIC"
)

// SourceCompanyWebsite is stamped on every record produced by the importer.
const SourceCompanyWebsite = "Company Website"

// VerificationAction identifies the outcome of a human review of a field.
type VerificationAction string

const (
	ActionVerified VerificationAction = "VERIFIED"
	ActionFlagged  VerificationAction = "FLAGGED"
)

// VerificationMark records a single review decision for a field.
type VerificationMark struct {
	Action VerificationAction `json:"action"`
	At     time.Time          `json:"at"`
}

// SocialMedia groups the contact handles attached to a record.
type SocialMedia struct {
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CalendarDate is a timestamp truncated to calendar-date precision. It
// marshals as "2006-01-02" rather than a full RFC 3339 timestamp.
type CalendarDate struct {
	time.Time
}

// NewCalendarDate truncates t to midnight UTC.
func NewCalendarDate(t time.Time) CalendarDate {
	u := t.UTC()
	y, m, d := u.Date()
	return CalendarDate{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(time.DateOnly))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("parse calendar date %q: %w", raw, err)
	}
	d.Time = parsed
	return nil
}

// CompanyRecord is the normalized company entry stored in the directory.
// Records are created once per valid CSV row and never mutated by the
// importer afterwards; only the verification status map is updated later.
type CompanyRecord struct {
	ID                 string                      `json:"id"`
	Subject            string                      `json:"subject"`
	Name               string                      `json:"name"`
	Details            string                      `json:"details"`
	Description        string                      `json:"description"`
	Status             RecordStatus                `json:"status"`
	Level              ClearanceLevel              `json:"level"`
	RequiredClearance  ClearanceLevel              `json:"requiredClearance"`
	LastAccessed       CalendarDate                `json:"lastAccessed"`
	Address            string                      `json:"address"`
	ZipCode            string                      `json:"zipCode"`
	City               string                      `json:"city"`
	Country            string                      `json:"country"`
	CEO                string                      `json:"ceo"`
	TaxID              string                      `json:"taxId"`
	Logo               string                      `json:"logo"`
	Images             []string                    `json:"images"`
	Category           []string                    `json:"category"`
	Tags               []string                    `json:"tags"`
	Language           []string                    `json:"language"`
	SocialMedia        SocialMedia                 `json:"socialMedia"`
	SourceFound        string                      `json:"sourceFound"`
	VerificationStatus map[string]VerificationMark `json:"verificationStatus"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}
