package models

import (
	"time"

	"github.com/google/uuid"
)

// Instructor is the single account that owns this installation's local data.
type Instructor struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	FullName          string    `json:"fullName"`
	CertificateNumber string    `json:"certificateNumber,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
