package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtnitsch/linkmeta/models"
)

const linkColumns = `id, folder_id, url, title, description, image_url, note, created_at, updated_at`

// InsertLink stores link under its folder. An empty ID gets a fresh uuid and a
// zero CreatedAt becomes now. The stored row is returned.
func (db *DB) InsertLink(ctx context.Context, link models.Link) (models.Link, error) {
	return db.insertLink(ctx, db.DB, link)
}

// InsertLinks stores all links in one transaction. Either every row is
// written or none is.
func (db *DB) InsertLinks(ctx context.Context, links []models.Link) ([]models.Link, error) {
	if len(links) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stored := make([]models.Link, 0, len(links))
	for _, link := range links {
		saved, err := db.insertLink(ctx, tx, link)
		if err != nil {
			return nil, err
		}
		stored = append(stored, saved)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit links: %w", err)
	}
	return stored, nil
}

func (db *DB) insertLink(ctx context.Context, q queryer, link models.Link) (models.Link, error) {
	if strings.TrimSpace(link.URL) == "" {
		return models.Link{}, fmt.Errorf("link url is required")
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := db.now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, link.ID, link.FolderID, link.URL, link.Title, link.Description, link.ImageURL, link.Note,
		formatTime(link.CreatedAt), formatTime(link.UpdatedAt))
	if err != nil {
		return models.Link{}, fmt.Errorf("failed to insert link %s: %w", link.URL, err)
	}
	return link, nil
}

// GetLink returns ErrNotFound for an unknown id.
func (db *DB) GetLink(ctx context.Context, id string) (models.Link, error) {
	row := db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Link{}, fmt.Errorf("link %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Link{}, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

// ListLinks returns the links of a folder, newest first.
func (db *DB) ListLinks(ctx context.Context, folderID string) ([]models.Link, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM links
		WHERE folder_id = ?
		ORDER BY created_at DESC, id DESC
	`, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// UpdateLinkMetadata overwrites the resolved metadata of a link. The note,
// URL and created_at are left alone.
func (db *DB) UpdateLinkMetadata(ctx context.Context, id, title, description, imageURL string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE links
		SET title = ?, description = ?, image_url = ?, updated_at = ?
		WHERE id = ?
	`, title, description, imageURL, formatTime(db.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	return requireRow(result, "link", id)
}

// DeleteLink removes a link.
func (db *DB) DeleteLink(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return requireRow(result, "link", id)
}

func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (models.Link, error) {
	var (
		link                 models.Link
		createdAt, updatedAt string
	)
	err := s.Scan(&link.ID, &link.FolderID, &link.URL, &link.Title, &link.Description,
		&link.ImageURL, &link.Note, &createdAt, &updatedAt)
	if err != nil {
		return models.Link{}, err
	}
	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Link{}, err
	}
	if link.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Link{}, err
	}
	return link, nil
}
