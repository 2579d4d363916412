package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// SecretPrefix marks every issued API key secret so leaked keys are easy to
// recognize in logs and scanners.
const SecretPrefix = "manara_"

const secretBytes = 32

// ApiKeyService issues and revokes tenant-scoped API keys. The plain secret
// leaves the service exactly once, on creation; only its SHA-256 digest is
// stored, so a lookup hashes the presented secret and matches the digest.
type ApiKeyService struct {
	client *store.Client
	log    *zap.Logger
}

func NewApiKeyService(client *store.Client, log *zap.Logger) *ApiKeyService {
	return &ApiKeyService{client: client, log: log}
}

// Create mints a new key for the bound organization and returns the stored
// row plus the one-time plain secret. Plan quota enforcement happens in the
// route middleware before this runs.
func (s *ApiKeyService) Create(ctx context.Context, orgID uint, name string) (query.Record, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", apperr.BadRequest("key name is required")
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, "", apperr.Internal("could not generate key material", err)
	}

	rec, err := s.client.Create(ctx, "api_key", query.Record{
		"organization_id": orgID,
		"name":            strings.TrimSpace(name),
		"key_hash":        HashSecret(secret),
	})
	if err != nil {
		return nil, "", err
	}

	delete(rec, "key_hash")
	s.log.Info("api key created",
		zap.Uint("organization_id", orgID),
		zap.Uint("api_key_id", rec.Uint("id")))
	return rec, secret, nil
}

// List returns the organization's live keys, newest first. The projection
// leaves key_hash out so digests never reach a response body.
func (s *ApiKeyService) List(ctx context.Context, orgID uint) ([]query.Record, error) {
	return s.client.FindMany(ctx, "api_key", query.Args{
		Filter:  query.Eq("organization_id", orgID),
		Select:  []string{"id", "organization_id", "name", "created_at", "updated_at"},
		OrderBy: "created_at desc",
	})
}

// Revoke soft-deletes a key. A key belonging to another organization is
// indistinguishable from a missing one.
func (s *ApiKeyService) Revoke(ctx context.Context, orgID, keyID uint) error {
	rec, err := s.client.FindFirst(ctx, "api_key", query.Args{
		Filter: query.Eq("id", keyID),
	})
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.NotFound("api key not found")
	}

	_, err = s.client.Update(ctx, "api_key",
		query.Eq("id", keyID),
		query.Record{"deleted_at": time.Now().UTC()})
	if err != nil {
		return err
	}
	s.log.Info("api key revoked",
		zap.Uint("organization_id", orgID),
		zap.Uint("api_key_id", keyID))
	return nil
}

// Resolve maps a presented secret to its live key row, or nil when unknown,
// revoked, or outside the caller's tenant binding.
func (s *ApiKeyService) Resolve(ctx context.Context, secret string) (query.Record, error) {
	if !strings.HasPrefix(secret, SecretPrefix) {
		return nil, nil
	}
	return s.client.FindUnique(ctx, "api_key", query.Args{
		Filter: query.Eq("key_hash", HashSecret(secret)),
	})
}

// HashSecret returns the hex SHA-256 digest stored in place of the secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return SecretPrefix + hex.EncodeToString(buf), nil
}
