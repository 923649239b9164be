package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository persists profiles of users who signed in. The session
// remains the source of truth for authentication; the repository is an
// audit record of who has authenticated.
type UserRepository interface {
	// Upsert creates or refreshes the stored profile.
	Upsert(ctx context.Context, user UserRecord) error

	// Find returns the stored profile by provider user id.
	Find(ctx context.Context, id string) (UserRecord, bool, error)
}

// MemoryUserRepository is the fallback used when no database is configured.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]UserRecord
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]UserRecord)}
}

func (r *MemoryUserRepository) Upsert(ctx context.Context, user UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) Find(ctx context.Context, id string) (UserRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	return user, ok, nil
}

// PGUserRepository stores profiles in PostgreSQL.
type PGUserRepository struct {
	pool *pgxpool.Pool
}

func NewPGUserRepository(pool *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{pool: pool}
}

func (r *PGUserRepository) Upsert(ctx context.Context, user UserRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, headline, location, picture, public_profile_url, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			headline = EXCLUDED.headline,
			location = EXCLUDED.location,
			picture = EXCLUDED.picture,
			public_profile_url = EXCLUDED.public_profile_url,
			last_seen_at = now()`,
		user.ID, user.Name, user.Email, user.Headline, user.Location, user.Picture, user.PublicProfileURL)
	return err
}

func (r *PGUserRepository) Find(ctx context.Context, id string) (UserRecord, bool, error) {
	var user UserRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, coalesce(email, ''), coalesce(headline, ''), coalesce(location, ''),
		       coalesce(picture, ''), coalesce(public_profile_url, '')
		FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Headline, &user.Location, &user.Picture, &user.PublicProfileURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, false, nil
		}
		return UserRecord{}, false, err
	}
	return user, true, nil
}
