package models

import "time"

// Content is one encrypted file of a link. Exactly one of Ciphertext and
// StorageKey is set: inline JWE, or a key in object storage.
type Content struct {
	ID          string
	LinkID      string
	ContentType string
	FileName    *string
	Ciphertext  *string
	StorageKey  *string
	Length      int
	CreatedAt   time.Time
}

// Inline reports whether the JWE lives in the database row.
func (c *Content) Inline() bool {
	return c.Ciphertext != nil
}
