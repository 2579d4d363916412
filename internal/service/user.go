package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// UserService owns accounts and credential checks. Password and refresh
// token hashes are redacted from every read by default; the two lookups that
// need them opt in with an explicit column selection.
type UserService struct {
	client *store.Client
	log    *zap.Logger
}

func NewUserService(client *store.Client, log *zap.Logger) *UserService {
	return &UserService{client: client, log: log}
}

// Register creates an account with a bcrypt password hash. A duplicate email
// surfaces as a conflict straight from the unique index.
func (s *UserService) Register(ctx context.Context, email, password string, name *string) (query.Record, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.BadRequest("email and password are required")
	}
	if len(password) < 8 {
		return nil, apperr.BadRequest("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}

	data := query.Record{"email": email, "password": string(hash)}
	if name != nil {
		data["name"] = *name
	}
	rec, err := s.client.Create(ctx, "user", data)
	if err != nil {
		if apperr.Is(err, apperr.CodeConflict) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}

	s.log.Info("user registered", zap.Uint("user_id", rec.Uint("id")))
	return rec, nil
}

// Authenticate verifies an email/password pair and returns the redacted user
// row. Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (query.Record, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rec, err := s.client.FindUnique(ctx, "user", query.Args{
		Filter: query.Eq("email", email),
		Select: []string{"id", "email", "name", "password", "is_super_admin"},
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.AuthenticationRequired("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.String("password")), []byte(password)); err != nil {
		return nil, apperr.AuthenticationRequired("invalid credentials")
	}

	delete(rec, "password")
	return rec, nil
}

// StoreRefreshToken persists a bcrypt hash of the opaque refresh token so a
// database leak does not hand out valid sessions.
func (s *UserService) StoreRefreshToken(ctx context.Context, userID uint, token string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("could not hash refresh token", err)
	}
	_, err = s.client.Update(ctx, "user",
		query.Eq("id", userID),
		query.Record{"refresh_token": string(hash)})
	return err
}

// VerifyRefreshToken checks a presented refresh token against the stored
// hash. A logged-out user has no stored hash and fails the check.
func (s *UserService) VerifyRefreshToken(ctx context.Context, userID uint, token string) (query.Record, error) {
	rec, err := s.client.FindUnique(ctx, "user", query.Args{
		Filter: query.Eq("id", userID),
		Select: []string{"id", "email", "name", "refresh_token"},
	})
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.IsNull("refresh_token") {
		return nil, apperr.AuthenticationRequired("session expired, please log in again")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.String("refresh_token")), []byte(token)); err != nil {
		return nil, apperr.AuthenticationRequired("session expired, please log in again")
	}

	delete(rec, "refresh_token")
	return rec, nil
}

// Logout drops the stored refresh token hash, invalidating the session.
func (s *UserService) Logout(ctx context.Context, userID uint) error {
	_, err := s.client.Update(ctx, "user",
		query.Eq("id", userID),
		query.Record{"refresh_token": nil})
	if err != nil {
		return err
	}
	s.log.Info("user logged out", zap.Uint("user_id", userID))
	return nil
}

// Profile returns the caller's own account, credentials redacted.
func (s *UserService) Profile(ctx context.Context, userID uint) (query.Record, error) {
	rec, err := s.client.FindUnique(ctx, "user", query.Args{
		Filter: query.Eq("id", userID),
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("user not found")
	}
	return rec, nil
}

// UpdateProfile changes the display name.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, name *string) (query.Record, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if _, err := s.Profile(ctx, userID); err != nil {
		return nil, err
	}
	return s.client.Update(ctx, "user",
		query.Eq("id", userID),
		query.Record{"name": strings.TrimSpace(*name)})
}

// ChangePassword verifies the current password before storing a new hash and
// dropping any live refresh token.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < 8 {
		return apperr.BadRequest("password must be at least 8 characters")
	}
	rec, err := s.client.FindUnique(ctx, "user", query.Args{
		Filter: query.Eq("id", userID),
		Select: []string{"id", "password"},
	})
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.NotFound("user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.String("password")), []byte(current)); err != nil {
		return apperr.AuthenticationRequired("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("could not hash password", err)
	}
	_, err = s.client.Update(ctx, "user",
		query.Eq("id", userID),
		query.Record{"password": string(hash), "refresh_token": nil})
	if err != nil {
		return err
	}
	s.log.Info("password changed", zap.Uint("user_id", userID))
	return nil
}
