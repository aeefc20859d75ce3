package models

import "time"

// Folder groups links.
type Folder struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Link is a stored bookmark together with the metadata resolved for it.
type Link struct {
	ID          string    `json:"id" yaml:"id"`
	FolderID    string    `json:"folder_id" yaml:"folder_id"`
	URL         string    `json:"url" yaml:"url"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	ImageURL    string    `json:"image_url" yaml:"image_url"`
	Note        string    `json:"note" yaml:"note"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}
