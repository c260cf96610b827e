package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"biodivscope-backend-go/internal/models"
)

const (
	minPasswordLength = 8
	uniqueViolation   = "23505"
)

type SignupInput struct {
	HotelName string `json:"hotel_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type Account struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	HotelName string `json:"hotel_name"`
}

type Session struct {
	AccessToken
	User Account `json:"user"`
}

// Accounts manages hotel logins stored in the users table.
type Accounts struct {
	DB     *sqlx.DB
	Tokens TokenService
}

func accountFromUser(u models.User) Account {
	return Account{ID: u.ID, Email: u.Email, HotelName: u.HotelName}
}

func (in SignupInput) normalize() (SignupInput, error) {
	in.HotelName = strings.TrimSpace(in.HotelName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.HotelName == "" || in.Email == "" || in.Password == "" {
		return in, ErrBadRequest("Hotel name, email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, ErrBadRequest("Invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return in, ErrBadRequest("Password must be at least 8 characters")
	}
	return in, nil
}

func (a Accounts) Signup(ctx context.Context, in SignupInput) (Account, error) {
	in, err := in.normalize()
	if err != nil {
		return Account{}, err
	}
	var exists bool
	if err := a.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1)`, in.Email); err != nil {
		return Account{}, WrapError(err, "check email")
	}
	if exists {
		return Account{}, ErrConflict("An account with this email already exists")
	}
	hash, err := a.Tokens.HashPassword(in.Password)
	if err != nil {
		return Account{}, WrapError(err, "hash password")
	}
	var user models.User
	err = a.DB.GetContext(ctx, &user, `
INSERT INTO users (hotel_name, email, password)
VALUES ($1, $2, $3)
RETURNING id, hotel_name, email, password, created_at
`, in.HotelName, in.Email, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, ErrConflict("An account with this email already exists")
		}
		return Account{}, WrapError(err, "insert user")
	}
	return accountFromUser(user), nil
}

func (a Accounts) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrBadRequest("Email and password are required")
	}
	var user models.User
	err := a.DB.GetContext(ctx, &user, `
SELECT id, hotel_name, email, password, created_at
FROM users
WHERE lower(email) = $1
`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrUnauthorized("Invalid email or password")
	}
	if err != nil {
		return Session{}, WrapError(err, "load user")
	}
	if !a.Tokens.VerifyPassword(password, user.Password) {
		return Session{}, ErrUnauthorized("Invalid email or password")
	}
	token, err := a.Tokens.CreateAccessToken(AccountClaims{
		UserID:    user.ID,
		Email:     user.Email,
		HotelName: user.HotelName,
	})
	if err != nil {
		return Session{}, WrapError(err, "sign token")
	}
	return Session{AccessToken: token, User: accountFromUser(user)}, nil
}

func (a Accounts) Get(ctx context.Context, id int64) (Account, error) {
	var user models.User
	err := a.DB.GetContext(ctx, &user, `
SELECT id, hotel_name, email, password, created_at
FROM users
WHERE id = $1
`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound("User not found")
	}
	if err != nil {
		return Account{}, WrapError(err, "load user")
	}
	return accountFromUser(user), nil
}
