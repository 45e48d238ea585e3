package user

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/examiner/core"
)

var (
	// errors
	ErrInvalidPassword = errors.New("invalid password")
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Public returns a copy of the user safe to hand out (no password hash).
func (u User) Public() User {
	u.PasswordHash = nil
	return u
}

// New returns an unsaved User with a hashed password.
func New(email, username, pwd string, isAdmin bool) (User, error) {
	now := core.NowFunc()
	usr := User{
		Email:     core.CleanString(email, true /* lower */),
		Username:  core.CleanString(username, true /* lower */),
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Login contains the credentials of a login attempt.
type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Clean() {
	l.Email = core.CleanString(l.Email, true /* lower */)
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Password string `json:"password" validate:"required"`
}

func (nu *NewUser) Clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
}
