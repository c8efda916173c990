package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/entity"
)

type mockRecordRepository struct {
	list       func(ctx context.Context) ([]entity.CompanyRecord, error)
	listPage   func(ctx context.Context, filter dto.ListFilter) ([]entity.CompanyRecord, error)
	bulkInsert func(ctx context.Context, records []entity.CompanyRecord) (int, error)
	verify     func(ctx context.Context, recordID, field string, mark entity.VerificationMark) error
}

func (m *mockRecordRepository) List(ctx context.Context) ([]entity.CompanyRecord, error) {
	if m.list != nil {
		return m.list(ctx)
	}
	return nil, nil
}

func (m *mockRecordRepository) ListPage(ctx context.Context, filter dto.ListFilter) ([]entity.CompanyRecord, error) {
	if m.listPage != nil {
		return m.listPage(ctx, filter)
	}
	return nil, errors.New("list page not implemented")
}

func (m *mockRecordRepository) BulkInsert(ctx context.Context, records []entity.CompanyRecord) (int, error) {
	if m.bulkInsert != nil {
		return m.bulkInsert(ctx, records)
	}
	return len(records), nil
}

func (m *mockRecordRepository) RecordVerification(ctx context.Context, recordID, field string, mark entity.VerificationMark) error {
	if m.verify != nil {
		return m.verify(ctx, recordID, field, mark)
	}
	return errors.New("record verification not implemented")
}

func newTestImporter(repo *mockRecordRepository) *ImportService {
	svc := NewImportService(repo, NewContactNormalizer("US"), "CORP")
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC) }
	return svc
}

func existingRecords(ids ...string) []entity.CompanyRecord {
	records := make([]entity.CompanyRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, entity.CompanyRecord{ID: id})
	}
	return records
}

func TestImport_MissingCompanyNameColumn(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	_, err := svc.Import(context.Background(), strings.NewReader("name,description\nAcme,Widgets\n"))
	var formatErr FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if !strings.Contains(formatErr.Message, "company_name") {
		t.Fatalf("unexpected message: %s", formatErr.Message)
	}
}

func TestImport_InvalidTextPayload(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	_, err := svc.Import(context.Background(), bytes.NewReader([]byte{0xff, 0xfe, 0xfd}))
	var readErr ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %v", err)
	}
}

func TestImport_EndToEnd(t *testing.T) {
	var stored []entity.CompanyRecord
	repo := &mockRecordRepository{
		bulkInsert: func(ctx context.Context, records []entity.CompanyRecord) (int, error) {
			stored = records
			return len(records), nil
		},
	}
	svc := newTestImporter(repo)

	csv := "company_name,description\nAcme,Widgets\n,,\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", summary.Processed)
	}
	if summary.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", summary.Skipped)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(stored))
	}

	rec := stored[0]
	if rec.ID != "CORP-0001" {
		t.Fatalf("expected first id CORP-0001, got %s", rec.ID)
	}
	if rec.Name != "Acme" || rec.Subject != "Acme" {
		t.Fatalf("expected name/subject Acme, got %s/%s", rec.Name, rec.Subject)
	}
	if rec.Description != "Widgets" || rec.Details != "Widgets" {
		t.Fatalf("expected description Widgets, got %s/%s", rec.Description, rec.Details)
	}
	if rec.Status != entity.StatusActive || rec.Level != entity.ClearancePublic || rec.RequiredClearance != entity.ClearancePublic {
		t.Fatalf("unexpected defaults: %+v", rec)
	}
	if got := rec.LastAccessed.Format(time.DateOnly); got != "2026-03-01" {
		t.Fatalf("expected import date 2026-03-01, got %s", got)
	}
	if rec.SourceFound != entity.SourceCompanyWebsite {
		t.Fatalf("unexpected source: %s", rec.SourceFound)
	}
	if rec.Logo == "" {
		t.Fatalf("expected placeholder logo")
	}
	if len(rec.VerificationStatus) != 0 || rec.VerificationStatus == nil {
		t.Fatalf("expected empty verification map, got %+v", rec.VerificationStatus)
	}
}

func TestImport_SequentialIDs(t *testing.T) {
	repo := &mockRecordRepository{
		list: func(ctx context.Context) ([]entity.CompanyRecord, error) {
			return existingRecords("CORP-0003", "CORP-0007", "CORP-0001"), nil
		},
	}
	svc := newTestImporter(repo)

	summary, err := svc.Import(context.Background(), strings.NewReader("company_name\nAcme\nGlobex\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(summary.Records))
	}
	if summary.Records[0].ID != "CORP-0008" || summary.Records[1].ID != "CORP-0009" {
		t.Fatalf("unexpected ids: %s, %s", summary.Records[0].ID, summary.Records[1].ID)
	}
}

func TestImport_IDsIgnoreForeignPrefixes(t *testing.T) {
	repo := &mockRecordRepository{
		list: func(ctx context.Context) ([]entity.CompanyRecord, error) {
			return existingRecords("ORG-0042", "CORP-0002"), nil
		},
	}
	svc := newTestImporter(repo)

	summary, err := svc.Import(context.Background(), strings.NewReader("company_name\nAcme\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Records[0].ID != "CORP-0003" {
		t.Fatalf("expected CORP-0003, got %s", summary.Records[0].ID)
	}
}

func TestImport_SkipsBlankRowsAndMissingNames(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	csv := "company_name,city\n" +
		"\n" +
		"   \n" +
		",Berlin\n" +
		",,\n" +
		"Acme,Berlin\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", summary.Processed)
	}
	if summary.Skipped != 4 {
		t.Fatalf("expected 4 skipped, got %d", summary.Skipped)
	}
}

func TestImport_ListColumns(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	// The category cell is quoted-comma free on purpose: values are split
	// positionally, so list cells use the remaining columns of the row.
	csv := "company_name,category\nAcme,a\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Records[0].Category) != 1 || summary.Records[0].Category[0] != "A" {
		t.Fatalf("unexpected category: %+v", summary.Records[0].Category)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList("a, b,c")
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(splitList("")) != 0 {
		t.Fatalf("expected empty list for blank input")
	}
	if len(splitList(" , ,")) != 0 {
		t.Fatalf("expected empty list for separators only")
	}
}

func TestImport_LanguageDefault(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	summary, err := svc.Import(context.Background(), strings.NewReader("company_name\nAcme\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	langs := summary.Records[0].Language
	if len(langs) != 1 || langs[0] != "ENGLISH" {
		t.Fatalf("expected default [ENGLISH], got %+v", langs)
	}

	summary, err = svc.Import(context.Background(), strings.NewReader("company_name,language\nAcme,german\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	langs = summary.Records[0].Language
	if len(langs) != 1 || langs[0] != "GERMAN" {
		t.Fatalf("expected [GERMAN], got %+v", langs)
	}
}

func TestImport_MalformedImagesSkipsRowWithWarning(t *testing.T) {
	var stored []entity.CompanyRecord
	repo := &mockRecordRepository{
		bulkInsert: func(ctx context.Context, records []entity.CompanyRecord) (int, error) {
			stored = records
			return len(records), nil
		},
	}
	svc := newTestImporter(repo)

	csv := "company_name,images\nAcme,{not json\nGlobex,\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if summary.Processed != 1 || summary.Skipped != 1 {
		t.Fatalf("expected 1 processed and 1 skipped, got %d/%d", summary.Processed, summary.Skipped)
	}
	if len(summary.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(summary.Warnings))
	}
	if summary.Warnings[0].Row != 2 {
		t.Fatalf("expected warning for row 2, got %d", summary.Warnings[0].Row)
	}
	if len(stored) != 1 || stored[0].Name != "Globex" {
		t.Fatalf("expected only Globex stored, got %+v", stored)
	}
	if len(stored[0].Images) != 0 {
		t.Fatalf("expected empty images for blank cell, got %+v", stored[0].Images)
	}
}

func TestImport_ImagesSingleElementArray(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	csv := "company_name,images\nAcme,[\"https://acme.test/a.png\"]\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	images := summary.Records[0].Images
	if len(images) != 1 || images[0] != "https://acme.test/a.png" {
		t.Fatalf("unexpected images: %+v", images)
	}
}

func TestImport_MissingTrailingValuesDefaultEmpty(t *testing.T) {
	repo := &mockRecordRepository{}
	svc := newTestImporter(repo)

	csv := "company_name,city,country\nAcme\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := summary.Records[0]
	if rec.City != "" || rec.Country != "" {
		t.Fatalf("expected empty trailing fields, got %q/%q", rec.City, rec.Country)
	}
}

func TestImport_SecondRunRejectedWhileFirstInFlight(t *testing.T) {
	release := make(chan struct{})
	listStarted := make(chan struct{})
	var listStartedOnce sync.Once
	repo := &mockRecordRepository{
		list: func(ctx context.Context) ([]entity.CompanyRecord, error) {
			listStartedOnce.Do(func() { close(listStarted) })
			<-release
			return nil, nil
		},
	}
	svc := newTestImporter(repo)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Import(context.Background(), strings.NewReader("company_name\nAcme\n"))
		done <- err
	}()

	<-listStarted
	_, err := svc.Import(context.Background(), strings.NewReader("company_name\nGlobex\n"))
	if !errors.Is(err, ErrImportInFlight) {
		t.Fatalf("expected ErrImportInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	// guard released, a fresh run succeeds
	if _, err := svc.Import(context.Background(), strings.NewReader("company_name\nGlobex\n")); err != nil {
		t.Fatalf("expected import after release to succeed, got %v", err)
	}
}

func TestImport_SinkFailureSurfacesNoPartialResults(t *testing.T) {
	repo := &mockRecordRepository{
		bulkInsert: func(ctx context.Context, records []entity.CompanyRecord) (int, error) {
			return 0, errors.New("store unavailable")
		},
	}
	svc := newTestImporter(repo)

	summary, err := svc.Import(context.Background(), strings.NewReader("company_name\nAcme\n"))
	if err == nil {
		t.Fatalf("expected error from sink")
	}
	if summary.Processed != 0 || len(summary.Records) != 0 {
		t.Fatalf("expected empty summary on sink failure, got %+v", summary)
	}
}

func TestHighestIDSuffix(t *testing.T) {
	if got := highestIDSuffix(nil, "CORP"); got != 0 {
		t.Fatalf("expected 0 for empty store, got %d", got)
	}
	records := existingRecords("CORP-0007", "CORP-0002", "bogus", "CORP-abc")
	if got := highestIDSuffix(records, "CORP"); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}
