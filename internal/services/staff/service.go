package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
)

// MinimumAge is the youngest a registered staff member may be
const MinimumAge = 15

// ErrInvalidLogin is returned for an unknown code or an inactive account
var ErrInvalidLogin = errors.New("invalid access code or account is inactive")

// Store persists staff records
type Store interface {
	Get(ctx context.Context, id int64) (*models.Staff, error)
	FindActiveByAccessCode(ctx context.Context, code string) (*models.Staff, error)
	List(ctx context.Context) ([]models.Staff, error)
	Create(ctx context.Context, s *models.Staff) (*models.Staff, error)
	Update(ctx context.Context, id int64, req *models.UpdateStaffRequest) (*models.Staff, error)
}

// Auditor records staff actions
type Auditor interface {
	Record(ctx context.Context, staffID int64, action, details string)
}

// Service handles sign in and staff administration
type Service struct {
	store  Store
	audit  Auditor
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, audit Auditor, log *logger.Logger) *Service {
	return &Service{store: store, audit: audit, logger: log, now: time.Now}
}

// Get loads a staff member. It satisfies web.StaffLookup.
func (s *Service) Get(ctx context.Context, id int64) (*models.Staff, error) {
	return s.store.Get(ctx, id)
}

// Login resolves an access code to an active staff member
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.Staff, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	member, err := s.store.FindActiveByAccessCode(ctx, req.AccessCode)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("login_rejected", "Login with unknown or inactive access code", logger.RequestIDFromContext(ctx), nil)
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, member.ID, models.ActionSignedIn, "")
	return member, nil
}

// Logout records the end of a till session
func (s *Service) Logout(ctx context.Context, req *models.LogoutRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, req.StaffID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return validation.Field("staff_id", "The selected staff id is invalid.")
		}
		return err
	}

	s.audit.Record(ctx, req.StaffID, models.ActionSignedOut, "")
	return nil
}

// List returns all staff
func (s *Service) List(ctx context.Context) ([]models.Staff, error) {
	return s.store.List(ctx)
}

// Create registers a staff member on behalf of actor
func (s *Service) Create(ctx context.Context, actor *models.Staff, req *models.CreateStaffRequest) (*models.Staff, error) {
	if actor == nil || !actor.Role.Manages() {
		return nil, fmt.Errorf("only managers can register staff: %w", models.ErrForbidden)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	// datetime tags guarantee both dates parse
	dob, _ := time.Parse(models.DateLayout, req.DOB)
	joined, _ := time.Parse(models.DateLayout, req.JoinedDate)

	today := s.today()
	ve := validation.New()
	if dob.After(today.AddDate(-MinimumAge, 0, 0)) {
		ve.Add("dob", fmt.Sprintf("Staff must be at least %d years old.", MinimumAge))
	}
	if joined.After(today) {
		ve.Add("joined_date", "The joined date must be a date before or equal to today.")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, &models.Staff{
		FullName:         strings.TrimSpace(req.FullName),
		AccessCode:       req.AccessCode,
		DOB:              models.Date{Time: dob},
		Email:            req.Email,
		JoinedDate:       models.Date{Time: joined},
		IsActive:         *req.IsActive,
		Role:             req.Role,
		CanToggleChannel: *req.CanToggleChannel,
		CanWaste:         *req.CanWaste,
		CanRefund:        *req.CanRefund,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, validation.Field("access_code", "The access code has already been taken.")
		}
		return nil, err
	}

	s.logger.Info("staff_registered", "Staff member registered", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"staff_id": created.ID,
		"role":     created.Role,
		"actor_id": actor.ID,
	})
	s.audit.Record(ctx, actor.ID, models.ActionStaffRegistered, fmt.Sprintf("%s (%s)", created.FullName, created.Role))
	return created, nil
}

// Update toggles activation and permissions on behalf of actor
func (s *Service) Update(ctx context.Context, actor *models.Staff, id int64, req *models.UpdateStaffRequest) (*models.Staff, error) {
	if actor == nil || !actor.Role.Manages() {
		return nil, fmt.Errorf("only managers can change staff: %w", models.ErrForbidden)
	}
	if req.IsActive == nil && !req.PermissionsChanged() {
		return nil, validation.Field("is_active", "At least one field must be provided.")
	}
	if req.IsActive != nil && !*req.IsActive && id == actor.ID {
		return nil, validation.Field("is_active", "You cannot deactivate your own account.")
	}

	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.store.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	if before.IsActive != after.IsActive {
		action := models.ActionStaffDeactivated
		if after.IsActive {
			action = models.ActionStaffActivated
		}
		s.audit.Record(ctx, actor.ID, action, after.FullName)
	}
	if changes := permissionChanges(before, after); changes != "" {
		s.audit.Record(ctx, actor.ID, models.ActionPermissionsUpdated, fmt.Sprintf("%s: %s", after.FullName, changes))
	}
	return after, nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func permissionChanges(before, after *models.Staff) string {
	var parts []string
	add := func(name string, was, is bool) {
		if was != is {
			parts = append(parts, fmt.Sprintf("%s %s", name, onOff(is)))
		}
	}
	add("toggle channel", before.CanToggleChannel, after.CanToggleChannel)
	add("waste", before.CanWaste, after.CanWaste)
	add("refund", before.CanRefund, after.CanRefund)
	return strings.Join(parts, ", ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
