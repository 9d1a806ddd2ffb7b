package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type SecretSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewSecretSQLiteStore(rdb, rwdb *sql.DB) *SecretSQLiteStore {
	return &SecretSQLiteStore{rdb, rwdb}
}

func (store *SecretSQLiteStore) CreateSecret(
	ctx context.Context,
	name, description, valueEncrypted string,
) (*Secret, error) {
	s := &Secret{
		Name:           name,
		Description:    description,
		ValueEncrypted: valueEncrypted,
	}
	query := `insert into secrets (
		name,
		description,
		value_encrypted
	)
	values ($1, $2, $3)
	returning secret_id, created_on, updated_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, s, query,
		s.Name,
		s.Description,
		s.ValueEncrypted,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SecretSQLiteStore) ReadSecretByID(ctx context.Context, id int64) (*Secret, error) {
	s := &Secret{SecretID: id}
	query := "select * from secrets where secret_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, s, query, s.SecretID); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SecretSQLiteStore) ReadSecretByName(
	ctx context.Context,
	name string,
) (*Secret, error) {
	s := &Secret{Name: name}
	query := "select * from secrets where name = $1"
	if err := sqlscan.Get(ctx, store.rdb, s, query, s.Name); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SecretSQLiteStore) UpdateSecretValue(
	ctx context.Context,
	id int64,
	valueEncrypted string,
) error {
	query := `update secrets
	set value_encrypted = $1,
		updated_on = current_timestamp
	where secret_id = $2`
	_, err := store.rwdb.ExecContext(ctx, query, valueEncrypted, id)
	return err
}

func (store *SecretSQLiteStore) DeleteSecret(ctx context.Context, id int64) error {
	query := "delete from secrets where secret_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}

func (store *SecretSQLiteStore) ListSecrets(ctx context.Context) ([]*Secret, error) {
	query := "select * from secrets order by name"
	secrets := make([]*Secret, 0)
	err := sqlscan.Select(ctx, store.rdb, &secrets, query)
	return secrets, err
}

func (store *SecretSQLiteStore) ListSecretNames(ctx context.Context) ([]string, error) {
	query := "select name from secrets order by name"
	names := make([]string, 0)
	err := sqlscan.Select(ctx, store.rdb, &names, query)
	return names, err
}
