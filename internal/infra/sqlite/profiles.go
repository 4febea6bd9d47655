package sqlite

import (
	"database/sql"
	"time"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// ─── Profile Repository ─────────────────────────────────────────────────────

// GetProfile retrieves a profile by user id.
// Returns nil without error when no such row exists.
func (d *DB) GetProfile(id string) (*domain.Profile, error) {
	row := d.db.QueryRow(
		`SELECT id, email, display_name, is_premium, created_at
		 FROM profiles WHERE id = ?`, id,
	)
	return scanProfile(row)
}

// EnsureProfile creates the profile row for a user if it does not exist
// yet, and returns the current row either way.
func (d *DB) EnsureProfile(user domain.User) (*domain.Profile, error) {
	_, err := d.db.Exec(
		`INSERT INTO profiles (id, email, display_name, is_premium, created_at)
		 VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT(id) DO NOTHING`,
		user.ID, user.Email, domain.DisplayNameFromEmail(user.Email), time.Now().Unix(),
	)
	if err != nil {
		return nil, err
	}
	return d.GetProfile(user.ID)
}

// SetPremium flips a profile to premium. One-way: nothing here ever
// resets the flag.
func (d *DB) SetPremium(id string) error {
	_, err := d.db.Exec(
		`UPDATE profiles SET is_premium = 1 WHERE id = ?`, id,
	)
	return err
}

func scanProfile(s scanner) (*domain.Profile, error) {
	var p domain.Profile
	var createdAt int64

	err := s.Scan(&p.ID, &p.Email, &p.DisplayName, &p.IsPremium, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}
