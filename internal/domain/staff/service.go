package staff

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/hms/hms/internal/hospital"
)

// Member is a staff record as listed; the password never leaves the server.
type Member struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone,omitempty"`
	Role       hospital.Role `json:"role"`
	Department string        `json:"department,omitempty"`
}

func toMember(m hospital.StaffMember) Member {
	return Member{ID: m.ID, Name: m.Name, Email: m.Email, Phone: m.Phone, Role: m.Role, Department: m.Department}
}

type Service struct {
	store *hospital.Store
}

func NewService(store *hospital.Store) *Service {
	return &Service{store: store}
}

func (s *Service) List() []Member {
	all := s.store.Staff()
	out := make([]Member, len(all))
	for i, m := range all {
		out[i] = toMember(m)
	}
	return out
}

func (s *Service) Add(ctx context.Context, in hospital.NewStaff) (Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = hospital.RoleDoctor
	}
	if in.Name == "" {
		return Member{}, hospital.Invalid("name", "full name is required")
	}
	if err := validateEmail(in.Email); err != nil {
		return Member{}, err
	}
	if in.Password == "" {
		return Member{}, hospital.Invalid("password", "a temporary password is required")
	}
	if err := validateRole(in.Role); err != nil {
		return Member{}, err
	}
	m, err := s.store.AddStaff(ctx, in)
	if err != nil {
		return Member{}, err
	}
	return toMember(m), nil
}

func (s *Service) Update(ctx context.Context, id string, u hospital.StaffUpdate) (Member, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return Member{}, hospital.Invalid("name", "full name is required")
	}
	if u.Email != nil {
		if err := validateEmail(strings.TrimSpace(*u.Email)); err != nil {
			return Member{}, err
		}
	}
	if u.Password != nil && *u.Password == "" {
		return Member{}, hospital.Invalid("password", "password cannot be empty")
	}
	if u.Role != nil {
		if err := validateRole(*u.Role); err != nil {
			return Member{}, err
		}
	}
	m, err := s.store.UpdateStaff(ctx, id, u)
	if err != nil {
		return Member{}, err
	}
	return toMember(m), nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if !s.store.RemoveStaff(ctx, id) {
		return fmt.Errorf("%w: %s", hospital.ErrStaffNotFound, id)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return hospital.Invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return hospital.Invalid("email", "%q is not a valid email address", email)
	}
	return nil
}

func validateRole(r hospital.Role) error {
	if !r.IsStaffRole() {
		return hospital.Invalid("role", "role must be one of doctor, nurse, pharmacist, billing")
	}
	return nil
}
