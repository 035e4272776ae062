package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bakery-pos/internal/models"
)

// ActorHeader identifies the staff member performing an admin action
const ActorHeader = "X-Staff-Id"

// StaffLookup loads a staff record by id
type StaffLookup interface {
	Get(ctx context.Context, id int64) (*models.Staff, error)
}

type actorKey struct{}

// ActorFrom returns the staff member resolved by RequireActor
func ActorFrom(ctx context.Context) (*models.Staff, bool) {
	s, ok := ctx.Value(actorKey{}).(*models.Staff)
	return s, ok
}

// WithActor stores s on ctx
func WithActor(ctx context.Context, s *models.Staff) context.Context {
	return context.WithValue(ctx, actorKey{}, s)
}

// RequireActor resolves the X-Staff-Id header to an active staff member.
// Requests without a valid actor get 401.
func RequireActor(staff StaffLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(ActorHeader)
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				WriteError(w, r, http.StatusUnauthorized, fmt.Sprintf("%s header is required", ActorHeader))
				return
			}

			s, err := staff.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					WriteError(w, r, http.StatusUnauthorized, "unknown staff member")
					return
				}
				WriteError(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !s.IsActive {
				WriteError(w, r, http.StatusUnauthorized, "staff member is inactive")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), s)))
		})
	}
}

// PathID parses a positive integer URL parameter
func PathID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}
	return id, nil
}
