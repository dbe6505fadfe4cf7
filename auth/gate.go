package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nonsonwune/admission_cycle/config"
	"github.com/nonsonwune/admission_cycle/models"
	"github.com/nonsonwune/admission_cycle/store"
)

// Account failures. ErrInvalidCredentials is returned for an unknown email
// and a wrong password alike.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError is a registration or login request with bad fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Gate owns the signing secret and the USERS table.
type Gate struct {
	store    *store.Store
	secret   []byte
	ttl      time.Duration
	campuses []string
	cost     int
	now      func() time.Time
}

// NewGate builds a gate from the session settings of cfg.
func NewGate(s *store.Store, cfg *config.Config) *Gate {
	return &Gate{
		store:    s,
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		campuses: cfg.Campuses,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Registration is the body of a sign-up request.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Contact         string `json:"contact"`
	Campus          string `json:"campus"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register validates r, stores the user with a bcrypt hash and returns it.
func (g *Gate) Register(ctx context.Context, r Registration) (models.User, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Contact = strings.TrimSpace(r.Contact)
	r.Campus = strings.TrimSpace(r.Campus)

	if r.Name == "" || r.Email == "" || r.Contact == "" || r.Campus == "" || r.Password == "" || r.ConfirmPassword == "" {
		return models.User{}, &ValidationError{Message: "All fields are required."}
	}
	if r.Password != r.ConfirmPassword {
		return models.User{}, &ValidationError{Message: "Passwords do not match."}
	}
	if !g.validCampus(r.Campus) {
		return models.User{}, &ValidationError{Message: "Invalid campus selection."}
	}

	_, exists, err := store.UserByEmail(ctx, g.store, r.Email)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), g.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.User{}, &ValidationError{Message: "Password is too long."}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{Name: r.Name, Contact: r.Contact, Campus: r.Campus, Email: r.Email, HashedPassword: string(hash)}
	if err := store.InsertUser(ctx, g.store, u); err != nil {
		// a concurrent registration can win between the check and the insert
		if _, exists, lookupErr := store.UserByEmail(ctx, g.store, r.Email); lookupErr == nil && exists {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return g.Profile(ctx, r.Email)
}

// Authenticate checks email and password.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, &ValidationError{Message: "Email and password required."}
	}
	u, ok, err := store.UserByEmail(ctx, g.store, email)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Profile loads the user behind a validated token.
func (g *Gate) Profile(ctx context.Context, email string) (models.User, error) {
	u, ok, err := store.UserByEmail(ctx, g.store, email)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (g *Gate) validCampus(campus string) bool {
	for _, c := range g.campuses {
		if c == campus {
			return true
		}
	}
	return false
}
