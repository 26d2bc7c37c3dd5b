package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auravox/internal/chat"
)

const tableProfiles = "profiles"

const profileColumns = `id, email, full_name, avatar_url, created_at`

func scanProfile(row rowScanner) (chat.Profile, error) {
	var p chat.Profile
	var created int64
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &created); err != nil {
		return chat.Profile{}, err
	}
	p.CreatedAt = fromMillis(created)
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (chat.Profile, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), id)
	p, err := scanProfile(row)
	if err != nil {
		return chat.Profile{}, notFound(err, "profile "+id)
	}
	return p, nil
}

// UpsertProfile inserts a profile or updates its editable fields. The original
// creation time is preserved.
func (s *Store) UpsertProfile(ctx context.Context, profile chat.Profile) (chat.Profile, error) {
	var before *chat.Profile
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanProfile(tx.QueryRowContext(ctx, s.rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), profile.ID))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			now := s.timestamp()
			profile.CreatedAt = fromMillis(now)
			if _, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO profiles (id, email, full_name, avatar_url, created_at)
				VALUES (?, ?, ?, ?, ?)
			`), profile.ID, profile.Email, profile.FullName, profile.AvatarURL, now); err != nil {
				return fmt.Errorf("insert profile: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("query profile: %w", err)
		}

		before = &existing
		profile.CreatedAt = existing.CreatedAt
		if _, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE profiles SET email = ?, full_name = ?, avatar_url = ? WHERE id = ?
		`), profile.Email, profile.FullName, profile.AvatarURL, profile.ID); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return chat.Profile{}, err
	}

	if before == nil {
		s.emit(chat.ChangeInsert, tableProfiles, profile, nil, profile.ID)
	} else {
		s.emit(chat.ChangeUpdate, tableProfiles, profile, *before, profile.ID)
	}
	return profile, nil
}

func (s *Store) AllProfiles(ctx context.Context) ([]chat.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []chat.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
