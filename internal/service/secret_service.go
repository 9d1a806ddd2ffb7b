package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/haltia/matrix-ci/internal/security"
	"github.com/haltia/matrix-ci/internal/store"
)

type SecretWriter interface {
	CreateSecret(context.Context, string, string, string) (*store.Secret, error)
	UpdateSecretValue(context.Context, int64, string) error
	DeleteSecret(context.Context, int64) error
}

type SecretReader interface {
	ReadSecretByID(context.Context, int64) (*store.Secret, error)
	ReadSecretByName(context.Context, string) (*store.Secret, error)
	ListSecrets(context.Context) ([]*store.Secret, error)
	ListSecretNames(context.Context) ([]string, error)
}

type SecretStore interface {
	SecretWriter
	SecretReader
}

type SecretService struct {
	secretStore SecretStore
	encrypter   security.Encrypter
}

func NewSecretService(
	s SecretStore,
	encrypter security.Encrypter,
) *SecretService {
	return &SecretService{secretStore: s, encrypter: encrypter}
}

// CreateSecret stores a secret under its manifest reference name. The
// value is encrypted before it reaches the database.
func (s *SecretService) CreateSecret(
	ctx context.Context,
	name, description, value string,
) (*store.Secret, error) {
	hash := s.encrypter.EncryptAES(value)
	sec, err := s.secretStore.CreateSecret(ctx, name, description, hash)
	if err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *SecretService) GetSecretByID(
	ctx context.Context,
	secretID int64,
) (*store.Secret, error) {
	return s.secretStore.ReadSecretByID(ctx, secretID)
}

func (s *SecretService) GetSecretByName(
	ctx context.Context,
	name string,
) (*store.Secret, error) {
	return s.secretStore.ReadSecretByName(ctx, name)
}

func (s *SecretService) ListSecrets(ctx context.Context) ([]*store.Secret, error) {
	secrets, err := s.secretStore.ListSecrets(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return secrets, nil
}

func (s *SecretService) ListSecretNames(ctx context.Context) ([]string, error) {
	names, err := s.secretStore.ListSecretNames(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return names, nil
}

func (s *SecretService) UpdateSecretValue(
	ctx context.Context,
	secretID int64,
	value string,
) error {
	hash := s.encrypter.EncryptAES(value)
	return s.secretStore.UpdateSecretValue(ctx, secretID, hash)
}

func (s *SecretService) DeleteSecret(ctx context.Context, secretID int64) error {
	return s.secretStore.DeleteSecret(ctx, secretID)
}
