// Package session keeps the single signed-in operator and issues the token
// that identifies them on later requests.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/kvstore"
)

// Key is the document holding the current user.
const Key = "user"

// Modes.
const (
	ModeCredentials  = "credentials"
	ModeSelfAsserted = "self-asserted"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("unknown role")
	ErrNoSession          = errors.New("no active session")
)

// User is the persisted session.
type User struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      hospital.Role `json:"role"`
	TokenID   string        `json:"jti"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func (u User) identity() auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, TokenID: u.TokenID}
}

type Credentials struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     hospital.Role `json:"role,omitempty"`
}

// StaffDirectory finds registered staff by email.
type StaffDirectory interface {
	StaffByEmail(email string) (hospital.StaffMember, bool)
}

type demoAccount struct {
	email    string
	password string
	name     string
	role     hospital.Role
}

// demoAccounts sign in when no staff member matches.
var demoAccounts = []demoAccount{
	{"admin@hospital.com", "password123", "Reception / Admin", hospital.RoleAdmin},
	{"nurse@hospital.com", "password123", "Nurse", hospital.RoleNurse},
	{"doctor@hospital.com", "password123", "Doctor", hospital.RoleDoctor},
	{"pharmacist@hospital.com", "password123", "Pharmacist", hospital.RolePharmacist},
	{"billing@hospital.com", "password123", "Billing Officer", hospital.RoleBilling},
}

// RoleLabel is the display name of a role on the login screen.
func RoleLabel(r hospital.Role) string {
	for _, d := range demoAccounts {
		if d.role == r {
			return d.name
		}
	}
	return string(r)
}

type Options struct {
	Mode   string
	Tokens *auth.Tokens
	Staff  StaffDirectory
	Logger zerolog.Logger
	Now    func() time.Time
}

type Manager struct {
	mu     sync.RWMutex
	docs   *kvstore.JSON
	user   *User
	mode   string
	tokens *auth.Tokens
	staff  StaffDirectory
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager restores any persisted session from docs.
func NewManager(ctx context.Context, docs *kvstore.JSON, opts Options) (*Manager, error) {
	if docs == nil || opts.Tokens == nil {
		return nil, errors.New("session: document store and tokens are required")
	}
	m := &Manager{
		docs:   docs,
		mode:   opts.Mode,
		tokens: opts.Tokens,
		staff:  opts.Staff,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if m.mode == "" {
		m.mode = ModeCredentials
	}
	if m.now == nil {
		m.now = time.Now
	}
	var u User
	if docs.Load(ctx, Key, &u) && u.Role.Valid() {
		m.user = &u
	}
	return m, nil
}

// Login replaces the current session.
func (m *Manager) Login(ctx context.Context, cr Credentials) (User, string, error) {
	u, err := m.resolve(cr)
	if err != nil {
		m.logger.Info().Str("email", cr.Email).Msg("login rejected")
		return User{}, "", err
	}

	token, jti, exp, err := m.tokens.Issue(u.identity())
	if err != nil {
		return User{}, "", err
	}
	u.TokenID = jti
	u.ExpiresAt = exp

	m.mu.Lock()
	prev := m.user
	m.user = &u
	m.mu.Unlock()

	if prev != nil && prev.TokenID != "" {
		m.logger.Info().Str("previous", prev.Email).Msg("session replaced")
	}
	_ = m.docs.Save(context.WithoutCancel(ctx), Key, u)
	m.logger.Info().Str("email", u.Email).Str("role", string(u.Role)).Msg("signed in")
	return u, token, nil
}

func (m *Manager) resolve(cr Credentials) (User, error) {
	email := strings.TrimSpace(cr.Email)
	if m.mode == ModeSelfAsserted {
		if !cr.Role.Valid() {
			return User{}, ErrInvalidRole
		}
		return User{ID: string(cr.Role), Email: email, Name: RoleLabel(cr.Role), Role: cr.Role}, nil
	}

	if email == "" || cr.Password == "" {
		return User{}, ErrInvalidCredentials
	}
	if m.staff != nil {
		if st, ok := m.staff.StaffByEmail(email); ok && st.Role.Valid() && passwordEqual(st.Password, cr.Password) {
			return User{ID: st.ID, Email: st.Email, Name: st.Name, Role: st.Role}, nil
		}
	}
	for _, d := range demoAccounts {
		if strings.EqualFold(d.email, email) && passwordEqual(d.password, cr.Password) {
			return User{ID: string(d.role), Email: d.email, Name: d.name, Role: d.role}, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

func passwordEqual(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// Current returns the signed-in user, if the session has not expired.
func (m *Manager) Current(_ context.Context) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return User{}, false
	}
	if !m.user.ExpiresAt.IsZero() && !m.now().Before(m.user.ExpiresAt) {
		return User{}, false
	}
	return *m.user, true
}

// Logout clears the session. It succeeds when nobody is signed in.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	prev := m.user
	m.user = nil
	m.mu.Unlock()
	if prev != nil {
		m.logger.Info().Str("email", prev.Email).Msg("signed out")
	}
	return m.docs.Remove(context.WithoutCancel(ctx), Key)
}

// Authenticate accepts token only while it belongs to the current session.
func (m *Manager) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := m.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, err
	}
	u, ok := m.Current(ctx)
	if !ok {
		return auth.Identity{}, ErrNoSession
	}
	if u.TokenID == "" || subtle.ConstantTimeCompare([]byte(u.TokenID), []byte(id.TokenID)) != 1 {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return u.identity(), nil
}
