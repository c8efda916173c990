package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/entity"
	"github.com/bluecatalog/directory-api/internal/repository"
)

// FormatError indicates the CSV payload is structurally unusable, e.g. the
// header row lacks the required company_name column. The whole run aborts.
type FormatError struct {
	Message string
}

// Error implements the error interface.
func (e FormatError) Error() string {
	return e.Message
}

// ReadError indicates the uploaded payload could not be decoded as text.
type ReadError struct {
	Message string
}

// Error implements the error interface.
func (e ReadError) Error() string {
	return e.Message
}

// ErrImportInFlight is returned when an import is started while another run
// on the same service instance has not finished yet.
var ErrImportInFlight = errors.New("a csv import is already in progress")

// requiredColumn is the only header the importer insists on. Every other
// recognized column is optional and unrecognized columns are ignored.
const requiredColumn = "company_name"

const defaultLogoURL = "https://placehold.co/400x400?text=Logo"

var defaultLanguages = []string{"ENGLISH"}

// ImportSummary aggregates the outcome of one import run. Warnings carry
// the rows that were skipped because a cell could not be parsed; skipping a
// bad row instead of aborting keeps partial success semantics for the batch.
type ImportSummary struct {
	Records   []entity.CompanyRecord
	Processed int
	Skipped   int
	Warnings  []dto.RowWarning
}

// ImportService converts CSV payloads into directory records. The record
// repository is injected so id generation works against an explicit store
// rather than ambient state, and the service owns a one-import-in-flight
// guard independent of any caller.
type ImportService struct {
	repo     repository.RecordRepository
	contacts *ContactNormalizer
	prefix   string
	now      func() time.Time

	importing atomic.Bool
}

// NewImportService creates an importer writing records with the given id prefix.
func NewImportService(repo repository.RecordRepository, contacts *ContactNormalizer, prefix string) *ImportService {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "CORP"
	}
	if contacts == nil {
		contacts = NewContactNormalizer("")
	}
	return &ImportService{
		repo:     repo,
		contacts: contacts,
		prefix:   prefix,
		now:      time.Now,
	}
}

// Import reads a CSV payload, converts every valid row into a CompanyRecord
// and hands the batch to the repository. Blank rows, rows without a company
// name and rows with unparseable cells are counted as skipped; the latter
// additionally produce a warning. A missing company_name header aborts the
// run with FormatError and surfaces no partial results.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (ImportSummary, error) {
	if !s.importing.CompareAndSwap(false, true) {
		return ImportSummary{}, ErrImportInFlight
	}
	defer s.importing.Store(false)

	var summary ImportSummary

	raw, err := io.ReadAll(r)
	if err != nil {
		return summary, ReadError{Message: fmt.Sprintf("read csv payload: %v", err)}
	}
	if !utf8.Valid(raw) {
		return summary, ReadError{Message: "csv payload is not valid text"}
	}

	// A trailing newline is a line terminator, not an empty row.
	lines := strings.Split(strings.TrimRight(string(raw), "\r\n"), "\n")

	// Positional comma split, no quote or escape handling. An embedded comma
	// shifts every following cell of that row; callers are expected to feed
	// plain exports.
	headers := splitRow(lines[0])
	for i, h := range headers {
		headers[i] = strings.ToLower(h)
	}
	index := make(map[string]int)
	for i, h := range headers {
		if _, ok := index[h]; !ok && h != "" {
			index[h] = i
		}
	}
	if _, ok := index[requiredColumn]; !ok {
		return summary, FormatError{Message: fmt.Sprintf("missing required column: %s", requiredColumn)}
	}

	// Snapshot of the known record set, read once per run. The in-flight
	// guard serializes runs on this instance, so suffixes cannot collide
	// within one process. Concurrent imports from separate processes against
	// the same store are not guarded.
	existing, err := s.repo.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("load known records: %w", err)
	}
	nextSuffix := highestIDSuffix(existing, s.prefix) + 1

	importedAt := entity.NewCalendarDate(s.now())

	for lineNo := 2; lineNo <= len(lines); lineNo++ {
		line := lines[lineNo-1]
		if strings.TrimSpace(line) == "" {
			summary.Skipped++
			continue
		}

		values := splitRow(line)
		get := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(values) {
				return ""
			}
			return values[i]
		}

		if allBlank(headers, values) {
			summary.Skipped++
			continue
		}

		name := get(requiredColumn)
		if name == "" {
			summary.Skipped++
			continue
		}

		images, err := parseImages(get("images"))
		if err != nil {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, dto.RowWarning{
				Row:    lineNo,
				Reason: fmt.Sprintf("invalid images value: %v", err),
			})
			continue
		}

		record := s.buildRecord(name, images, importedAt, get)
		record.ID = fmt.Sprintf("%s-%04d", s.prefix, nextSuffix)
		nextSuffix++

		summary.Records = append(summary.Records, record)
		summary.Processed++
	}

	if len(summary.Records) > 0 {
		if _, err := s.repo.BulkInsert(ctx, summary.Records); err != nil {
			return ImportSummary{}, fmt.Errorf("store imported records: %w", err)
		}
	}

	return summary, nil
}

func (s *ImportService) buildRecord(name string, images []string, importedAt entity.CalendarDate, get func(string) string) entity.CompanyRecord {
	description := get("description")
	if description == "" {
		description = name
	}

	languages := splitList(get("language"))
	if len(languages) == 0 {
		languages = append([]string(nil), defaultLanguages...)
	}

	return entity.CompanyRecord{
		Subject:           name,
		Name:              name,
		Details:           description,
		Description:       description,
		Status:            entity.StatusActive,
		Level:             entity.ClearancePublic,
		RequiredClearance: entity.ClearancePublic,
		LastAccessed:      importedAt,
		Address:           get("address"),
		ZipCode:           get("zipcode"),
		City:              get("city"),
		Country:           get("country"),
		CEO:               get("ceo"),
		TaxID:             get("taxid"),
		Logo:              s.contacts.LogoURL(get("logo")),
		Images:            images,
		Category:          splitList(get("category")),
		Tags:              splitList(get("tags")),
		Language:          languages,
		SocialMedia: entity.SocialMedia{
			Twitter:  s.contacts.SocialURL(NetworkTwitter, get("twitter")),
			LinkedIn: s.contacts.SocialURL(NetworkLinkedIn, get("linkedin")),
			Phone:    s.contacts.Phone(get("phone")),
		},
		SourceFound:        entity.SourceCompanyWebsite,
		VerificationStatus: map[string]entity.VerificationMark{},
	}
}

// splitRow splits a CSV line positionally on commas and trims every value.
func splitRow(line string) []string {
	values := strings.Split(line, ",")
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}

// allBlank reports whether every header-mapped cell of the row is empty.
// Values beyond the header width are ignored, matching the zip-by-index
// field mapping.
func allBlank(headers, values []string) bool {
	for i := range headers {
		if i < len(values) && values[i] != "" {
			return false
		}
	}
	return true
}

// splitList converts a comma-separated cell into upper-cased entries.
func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p))
	}
	return out
}

// parseImages decodes a JSON-array cell into a string list.
func parseImages(value string) ([]string, error) {
	if value == "" {
		return []string{}, nil
	}
	var images []string
	if err := json.Unmarshal([]byte(value), &images); err != nil {
		return nil, err
	}
	if images == nil {
		images = []string{}
	}
	return images, nil
}

// highestIDSuffix returns the largest numeric suffix among records whose id
// carries the given prefix, or 0 when there are none.
func highestIDSuffix(records []entity.CompanyRecord, prefix string) int {
	max := 0
	lead := prefix + "-"
	for _, rec := range records {
		rest, ok := strings.CutPrefix(rec.ID, lead)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= max {
			continue
		}
		max = n
	}
	return max
}
