package store

import (
	"context"
	"time"
)

type Secret struct {
	SecretID    int64  `json:"secret_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// AES encrypted value, hex encoded
	ValueEncrypted string    `json:"-"`
	CreatedOn      time.Time `json:"created_on"`
	UpdatedOn      time.Time `json:"updated_on"`
}

type SecretStore interface {
	CreateSecret(context.Context, string, string, string) (*Secret, error)
	ReadSecretByID(context.Context, int64) (*Secret, error)
	ReadSecretByName(context.Context, string) (*Secret, error)
	UpdateSecretValue(context.Context, int64, string) error
	DeleteSecret(context.Context, int64) error
	ListSecrets(context.Context) ([]*Secret, error)
	ListSecretNames(context.Context) ([]string, error)
}
