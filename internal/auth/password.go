package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used when none is configured.
const DefaultCost = 12

var ErrPasswordMismatch = errors.New("password does not match")

// PasswordService hashes and checks chapter passwords.
type PasswordService struct {
	cost int
}

// NewPasswordService uses cost, or DefaultCost when cost is outside bcrypt's range.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// NormalizePassword trims and lower-cases a chapter password so that typing
// variations still match.
func NormalizePassword(password string) string {
	return strings.ToLower(strings.TrimSpace(password))
}

// HashPassword hashes a normalized password using bcrypt
func (s *PasswordService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(NormalizePassword(password)), s.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ComparePassword compares a plain text password with a hash
func (s *PasswordService) ComparePassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(NormalizePassword(password)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
