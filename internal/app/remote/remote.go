// Package remote abstracts the shared cloud record store both apps sync
// through: a key-value record store partitioned into named zones, plus share
// objects that scope a zone's record hierarchy to one student. The concrete
// provider is a black box to the core; this package ships a Postgres-backed
// implementation and an in-memory fake for tests.
package remote

import (
	"context"
	"time"
)

// Record type names used for the synced hierarchy.
const (
	TypeStudent      = "student"
	TypeAssignment   = "assignment"
	TypeItemProgress = "itemProgress"
	TypeTemplate     = "template"
	TypeTemplateItem = "templateItem"
)

// Record is one remote record. ID is the entity's local UUID string, which is
// what makes records from two installs collide on the same logical entity.
// ParentID expresses the Student→Assignment→ItemProgress and
// Template→TemplateItem hierarchies for share scoping.
type Record struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Zone       string            `json:"zone"`
	ParentID   string            `json:"parentId,omitempty"`
	Fields     map[string]string `json:"fields"`
	ModifiedAt time.Time         `json:"modifiedAt"`
}

// Participant is one accepted or invited member of a share.
type Participant struct {
	Identity   string `json:"identity"`
	Role       string `json:"role"`
	Acceptance string `json:"acceptance"`
}

// Share is the object granting the student app access to one student's zone
// hierarchy, rooted at the student record.
type Share struct {
	ID           string        `json:"id"`
	Zone         string        `json:"zone"`
	RootRecordID string        `json:"rootRecordId"`
	URL          string        `json:"url"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Store is the remote object store surface the sync core needs. Fetch misses
// return apperrors.ErrRemoteNotFound; transient transport failures return
// apperrors.ErrRemoteUnavailable.
type Store interface {
	// EnsureZone creates the named zone if it does not exist. Idempotent.
	EnsureZone(ctx context.Context, zone string) error
	SaveRecord(ctx context.Context, record *Record) error
	FetchRecord(ctx context.Context, zone, id string) (*Record, error)
	DeleteRecord(ctx context.Context, zone, id string) error
	CreateShare(ctx context.Context, zone, rootRecordID string) (*Share, error)
	FetchShare(ctx context.Context, zone, shareID string) (*Share, error)
	DeleteShare(ctx context.Context, zone, shareID string) error
	// Ping reports whether the remote store is reachable.
	Ping(ctx context.Context) error
}
