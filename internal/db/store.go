package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskbridge/backend/internal/models"
)

var ErrCredentialNotFound = errors.New("credential not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) CredentialByEmail(ctx context.Context, email string) (models.Credential, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT email, token_hash, subdomain, halo_client_id, halo_client_secret,
			zendesk_active, halo_active, created_at
		FROM credentials
		WHERE email = $1
	`, email)

	var c models.Credential
	err := row.Scan(&c.Email, &c.TokenHash, &c.Subdomain, &c.HaloClientID,
		&c.HaloClientSecret, &c.ZendeskActive, &c.HaloActive, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return models.Credential{}, err
	}
	return c, nil
}

func (s *Store) UpsertCredential(ctx context.Context, c models.Credential) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO credentials (email, token_hash, subdomain, halo_client_id, halo_client_secret, zendesk_active, halo_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (email) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			subdomain = EXCLUDED.subdomain,
			halo_client_id = EXCLUDED.halo_client_id,
			halo_client_secret = EXCLUDED.halo_client_secret,
			zendesk_active = EXCLUDED.zendesk_active,
			halo_active = EXCLUDED.halo_active
	`, c.Email, c.TokenHash, c.Subdomain, c.HaloClientID, c.HaloClientSecret, c.ZendeskActive, c.HaloActive)
	return err
}

// HashToken hashes an API token for storage; tokens are never persisted in
// the clear.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyToken(hash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
