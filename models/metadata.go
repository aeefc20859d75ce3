package models

import "strings"

// MetadataResult is the normalized {title, description, image} triple produced
// for a single URL. Image is nil when no representative image was found;
// callers substitute a favicon URL in that case.
type MetadataResult struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Image       *string `json:"image" yaml:"image"`
}

// ImageURL returns the image or an empty string when absent.
func (m MetadataResult) ImageURL() string {
	if m.Image == nil {
		return ""
	}
	return *m.Image
}

// HasImage reports whether an image was extracted.
func (m MetadataResult) HasImage() bool {
	return m.Image != nil && *m.Image != ""
}

// ImageOf returns a pointer to the trimmed image URL, or nil for blank input.
func ImageOf(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
