package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

// PostgresStore implements Store on a shared Postgres database. Both app
// installs point at the same remote database, which gives the record-level
// last-write-wins behavior the conflict detector compensates for.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed remote store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// wrapTransient maps transport-level failures to ErrRemoteUnavailable so the
// offline queue can pick them up.
func wrapTransient(err error, msg string) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrRemoteUnavailable, msg, err)
}

// EnsureZone creates the zone row if absent
func (s *PostgresStore) EnsureZone(ctx context.Context, zone string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO remote_zones (name, created_at)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, zone, time.Now())
	if err != nil {
		return wrapTransient(err, "ensure zone")
	}
	return nil
}

// SaveRecord upserts a record into its zone
func (s *PostgresStore) SaveRecord(ctx context.Context, record *Record) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO remote_records (zone, record_id, record_type, parent_id, fields, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (zone, record_id) DO UPDATE
		SET record_type = EXCLUDED.record_type,
			parent_id = EXCLUDED.parent_id,
			fields = EXCLUDED.fields,
			modified_at = EXCLUDED.modified_at
	`, record.Zone, record.ID, record.Type, record.ParentID, fields, record.ModifiedAt)
	if err != nil {
		return wrapTransient(err, "save record")
	}
	return nil
}

// FetchRecord retrieves one record by zone and id
func (s *PostgresStore) FetchRecord(ctx context.Context, zone, id string) (*Record, error) {
	var record Record
	var fields []byte
	err := s.db.QueryRow(ctx, `
		SELECT zone, record_id, record_type, parent_id, fields, modified_at
		FROM remote_records
		WHERE zone = $1 AND record_id = $2
	`, zone, id).Scan(&record.Zone, &record.ID, &record.Type, &record.ParentID, &fields, &record.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRemoteNotFound
		}
		return nil, wrapTransient(err, "fetch record")
	}

	if err := json.Unmarshal(fields, &record.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode record fields: %w", err)
	}

	return &record, nil
}

// DeleteRecord removes one record
func (s *PostgresStore) DeleteRecord(ctx context.Context, zone, id string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM remote_records WHERE zone = $1 AND record_id = $2`, zone, id)
	if err != nil {
		return wrapTransient(err, "delete record")
	}
	return nil
}

// CreateShare creates a share rooted at the given record
func (s *PostgresStore) CreateShare(ctx context.Context, zone, rootRecordID string) (*Share, error) {
	share := &Share{
		ID:           uuid.New().String(),
		Zone:         zone,
		RootRecordID: rootRecordID,
		URL:          fmt.Sprintf("rightrudder://share/%s/%s", zone, rootRecordID),
		CreatedAt:    time.Now(),
	}

	participants, err := json.Marshal(share.Participants)
	if err != nil {
		return nil, fmt.Errorf("failed to encode participants: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO remote_shares (id, zone, root_record_id, url, participants, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, share.ID, share.Zone, share.RootRecordID, share.URL, participants, share.CreatedAt)
	if err != nil {
		return nil, wrapTransient(err, "create share")
	}

	return share, nil
}

// FetchShare retrieves one share by id
func (s *PostgresStore) FetchShare(ctx context.Context, zone, shareID string) (*Share, error) {
	var share Share
	var participants []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, zone, root_record_id, url, participants, created_at
		FROM remote_shares
		WHERE zone = $1 AND id = $2
	`, zone, shareID).Scan(&share.ID, &share.Zone, &share.RootRecordID, &share.URL, &participants, &share.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRemoteNotFound
		}
		return nil, wrapTransient(err, "fetch share")
	}

	if err := json.Unmarshal(participants, &share.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}

	return &share, nil
}

// DeleteShare revokes a share
func (s *PostgresStore) DeleteShare(ctx context.Context, zone, shareID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM remote_shares WHERE zone = $1 AND id = $2`, zone, shareID)
	if err != nil {
		return wrapTransient(err, "delete share")
	}
	return nil
}

// Ping reports remote reachability
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return wrapTransient(err, "ping")
	}
	return nil
}
