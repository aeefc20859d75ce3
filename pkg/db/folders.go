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

// CreateFolder inserts a folder with a fresh id.
func (db *DB) CreateFolder(ctx context.Context, name string) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Folder{}, fmt.Errorf("folder name is required")
	}

	folder := models.Folder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: db.now().UTC(),
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO folders (id, name, created_at)
		VALUES (?, ?, ?)
	`, folder.ID, folder.Name, formatTime(folder.CreatedAt))
	if err != nil {
		return models.Folder{}, fmt.Errorf("failed to insert folder: %w", err)
	}
	return folder, nil
}

// GetFolder returns ErrNotFound for an unknown id.
func (db *DB) GetFolder(ctx context.Context, id string) (models.Folder, error) {
	var (
		folder    models.Folder
		createdAt string
	)
	err := db.QueryRowContext(ctx, `SELECT id, name, created_at FROM folders WHERE id = ?`, id).
		Scan(&folder.ID, &folder.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Folder{}, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Folder{}, fmt.Errorf("failed to get folder: %w", err)
	}
	if folder.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Folder{}, err
	}
	return folder, nil
}

// ListFolders returns all folders, oldest first.
func (db *DB) ListFolders(ctx context.Context) ([]models.Folder, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM folders ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var (
			f         models.Folder
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}
