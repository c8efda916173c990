package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluecatalog/directory-api/internal/entity"
)

type recordedMark struct {
	recordID string
	field    string
	mark     entity.VerificationMark
}

type stubVerificationStore struct {
	calls []recordedMark
	err   error
}

func (s *stubVerificationStore) RecordVerification(ctx context.Context, recordID, field string, mark entity.VerificationMark) error {
	s.calls = append(s.calls, recordedMark{recordID: recordID, field: field, mark: mark})
	return s.err
}

func newTestVerificationService(store *stubVerificationStore) *VerificationService {
	svc := NewVerificationService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestVerificationService_Verify(t *testing.T) {
	store := &stubVerificationStore{}
	svc := newTestVerificationService(store)

	if err := svc.Verify(context.Background(), "CORP-0001", "ceo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected exactly one store call, got %d", len(store.calls))
	}
	call := store.calls[0]
	if call.recordID != "CORP-0001" || call.field != "ceo" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.mark.Action != entity.ActionVerified {
		t.Fatalf("expected VERIFIED, got %s", call.mark.Action)
	}
	if call.mark.At.IsZero() {
		t.Fatalf("expected timestamp on mark")
	}
}

func TestVerificationService_Flag(t *testing.T) {
	store := &stubVerificationStore{}
	svc := newTestVerificationService(store)

	if err := svc.Flag(context.Background(), "CORP-0001", "address"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls[0].mark.Action != entity.ActionFlagged {
		t.Fatalf("expected FLAGGED, got %s", store.calls[0].mark.Action)
	}
}

func TestVerificationService_RejectsBlankInput(t *testing.T) {
	store := &stubVerificationStore{}
	svc := newTestVerificationService(store)

	if err := svc.Verify(context.Background(), "", "ceo"); err == nil {
		t.Fatalf("expected error for blank record id")
	}
	if err := svc.Flag(context.Background(), "CORP-0001", "  "); err == nil {
		t.Fatalf("expected error for blank field")
	}
	if len(store.calls) != 0 {
		t.Fatalf("expected no store calls, got %d", len(store.calls))
	}
}

func TestVerificationService_PropagatesStoreError(t *testing.T) {
	store := &stubVerificationStore{err: errors.New("store down")}
	svc := newTestVerificationService(store)

	if err := svc.Verify(context.Background(), "CORP-0001", "ceo"); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

func TestFieldControl_StateMachine(t *testing.T) {
	store := &stubVerificationStore{}
	svc := newTestVerificationService(store)
	control := NewFieldControl(svc, "CORP-0001", "ceo")

	if state, _ := control.State(); state != StateIdle {
		t.Fatalf("expected initial state idle")
	}

	if err := control.Verify(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, chosen := control.State()
	if state != StateActionChosen || chosen != entity.ActionVerified {
		t.Fatalf("expected chosen VERIFIED, got state=%d action=%s", state, chosen)
	}

	// second action while the confirmation is showing is rejected and not reported
	if err := control.Flag(context.Background()); !errors.Is(err, ErrConfirmationPending) {
		t.Fatalf("expected ErrConfirmationPending, got %v", err)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(store.calls))
	}

	control.Dismiss()
	if state, _ := control.State(); state != StateIdle {
		t.Fatalf("expected idle after dismiss")
	}

	if err := control.Flag(context.Background()); err != nil {
		t.Fatalf("unexpected error after dismiss: %v", err)
	}
	if len(store.calls) != 2 {
		t.Fatalf("expected second report after dismiss, got %d", len(store.calls))
	}
}

func TestFieldControl_FailedReportStaysIdle(t *testing.T) {
	store := &stubVerificationStore{err: errors.New("store down")}
	svc := newTestVerificationService(store)
	control := NewFieldControl(svc, "CORP-0001", "ceo")

	if err := control.Verify(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if state, _ := control.State(); state != StateIdle {
		t.Fatalf("expected control to stay idle after failed report")
	}
}

func TestFieldControl_DismissWhileIdleIsNoop(t *testing.T) {
	store := &stubVerificationStore{}
	svc := newTestVerificationService(store)
	control := NewFieldControl(svc, "CORP-0001", "ceo")

	control.Dismiss()
	if state, _ := control.State(); state != StateIdle {
		t.Fatalf("expected idle")
	}
}
