package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bluecatalog/directory-api/internal/entity"
)

// VerificationStore persists review decisions. The repository implements it;
// tests substitute stubs.
type VerificationStore interface {
	RecordVerification(ctx context.Context, recordID, field string, mark entity.VerificationMark) error
}

// ErrConfirmationPending is returned when a field control receives a second
// action while its confirmation for the first one is still displayed.
var ErrConfirmationPending = errors.New("a confirmation is already pending for this field")

// VerificationService reports verify/flag decisions for record fields to the
// verification store, exactly once per invocation.
type VerificationService struct {
	store VerificationStore
	now   func() time.Time
}

// NewVerificationService wires a service backed by the given store.
func NewVerificationService(store VerificationStore) *VerificationService {
	return &VerificationService{store: store, now: time.Now}
}

// Verify marks the named field of a record as human-verified.
func (s *VerificationService) Verify(ctx context.Context, recordID, field string) error {
	return s.submit(ctx, recordID, field, entity.ActionVerified)
}

// Flag marks the named field of a record as flagged for review.
func (s *VerificationService) Flag(ctx context.Context, recordID, field string) error {
	return s.submit(ctx, recordID, field, entity.ActionFlagged)
}

func (s *VerificationService) submit(ctx context.Context, recordID, field string, action entity.VerificationAction) error {
	recordID = strings.TrimSpace(recordID)
	field = strings.TrimSpace(field)
	if recordID == "" || field == "" {
		return fmt.Errorf("record id and field must not be empty")
	}

	mark := entity.VerificationMark{Action: action, At: s.now().UTC()}
	if err := s.store.RecordVerification(ctx, recordID, field, mark); err != nil {
		return fmt.Errorf("record %s for %s.%s: %w", action, recordID, field, err)
	}
	return nil
}

// FieldState is the transient state of a field's verification control.
type FieldState int

const (
	// StateIdle means no action has been chosen for the field.
	StateIdle FieldState = iota
	// StateActionChosen means an action was reported and its confirmation is
	// displayed until dismissed.
	StateActionChosen
)

// FieldControl is the per-field verify/flag affordance. It holds only
// transient state: which action was chosen and whether the confirmation is
// still showing. Dismissing the confirmation returns it to idle. Each chosen
// action is reported to the store exactly once.
type FieldControl struct {
	recordID string
	field    string
	svc      *VerificationService

	mu     sync.Mutex
	state  FieldState
	chosen entity.VerificationAction
}

// NewFieldControl attaches a control to one displayed field of a record.
func NewFieldControl(svc *VerificationService, recordID, field string) *FieldControl {
	return &FieldControl{svc: svc, recordID: recordID, field: field}
}

// Verify reports a verified decision and moves the control to ActionChosen.
func (c *FieldControl) Verify(ctx context.Context) error {
	return c.choose(ctx, entity.ActionVerified)
}

// Flag reports a flagged decision and moves the control to ActionChosen.
func (c *FieldControl) Flag(ctx context.Context) error {
	return c.choose(ctx, entity.ActionFlagged)
}

func (c *FieldControl) choose(ctx context.Context, action entity.VerificationAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrConfirmationPending
	}

	var err error
	switch action {
	case entity.ActionVerified:
		err = c.svc.Verify(ctx, c.recordID, c.field)
	case entity.ActionFlagged:
		err = c.svc.Flag(ctx, c.recordID, c.field)
	default:
		err = fmt.Errorf("unknown verification action %q", action)
	}
	if err != nil {
		return err
	}

	c.state = StateActionChosen
	c.chosen = action
	return nil
}

// Dismiss closes the confirmation and returns the control to idle. Calling
// it while idle is a no-op.
func (c *FieldControl) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.chosen = ""
}

// State returns the current state and, when an action is chosen, which one.
func (c *FieldControl) State() (FieldState, entity.VerificationAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.chosen
}
