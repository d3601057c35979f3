package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/remote"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// ShareService manages the per-student share that lets the student app read
// the instructor's records. Creating a share sets up the student's zone,
// pushes the root record and records both remote ids on the local student in
// one step, so a student either has a complete share or none.
type ShareService interface {
	CreateShare(ctx context.Context, studentID uuid.UUID) (*remote.Share, error)
	GetShare(ctx context.Context, studentID uuid.UUID) (*remote.Share, error)
	Participants(ctx context.Context, studentID uuid.UUID) ([]models.ShareParticipant, error)
	RevokeShare(ctx context.Context, studentID uuid.UUID) error
}

type shareServiceImpl struct {
	repos  *repositories.Repositories
	queue  *savequeue.Queue
	store  remote.Store
	sync   SyncService
	logger zerolog.Logger
}

// NewShareService creates a new share service instance
func NewShareService(repos *repositories.Repositories, queue *savequeue.Queue, store remote.Store, syncService SyncService, logger zerolog.Logger) ShareService {
	return &shareServiceImpl{
		repos:  repos,
		queue:  queue,
		store:  store,
		sync:   syncService,
		logger: logger.With().Str("component", "share").Logger(),
	}
}

// CreateShare sets up the student's zone and share, or returns the existing
// share when one is already active.
func (s *shareServiceImpl) CreateShare(ctx context.Context, studentID uuid.UUID) (*remote.Share, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	zone := s.sync.ZoneForStudent(studentID)

	if student.HasActiveShare() {
		share, err := s.store.FetchShare(ctx, zone, *student.ShareRecordID)
		if err == nil {
			return share, nil
		}
		if !errors.Is(err, apperrors.ErrRemoteNotFound) {
			return nil, err
		}
		// The local record points at a share the remote no longer has.
		// Fall through and rebuild it.
		s.logger.Warn().Str("studentId", studentID.String()).Msg("Stored share not found remotely; recreating")
	}

	if err := s.sync.PushStudent(ctx, studentID); err != nil {
		return nil, err
	}

	rootRecordID := studentID.String()
	share, err := s.store.CreateShare(ctx, zone, rootRecordID)
	if err != nil {
		return nil, err
	}

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Students.SetShareInfo(ctx, studentID, &rootRecordID, &share.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("studentId", studentID.String()).
		Str("shareId", share.ID).
		Msg("Created student share")
	return share, nil
}

// GetShare fetches the active share for a student
func (s *shareServiceImpl) GetShare(ctx context.Context, studentID uuid.UUID) (*remote.Share, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.HasActiveShare() {
		return nil, apperrors.ErrShareNotFound
	}
	return s.store.FetchShare(ctx, s.sync.ZoneForStudent(studentID), *student.ShareRecordID)
}

// Participants lists who has accepted the student's share
func (s *shareServiceImpl) Participants(ctx context.Context, studentID uuid.UUID) ([]models.ShareParticipant, error) {
	share, err := s.GetShare(ctx, studentID)
	if err != nil {
		return nil, err
	}

	participants := make([]models.ShareParticipant, 0, len(share.Participants))
	for _, p := range share.Participants {
		participants = append(participants, models.ShareParticipant{
			Identity:   p.Identity,
			Role:       p.Role,
			Acceptance: p.Acceptance,
		})
	}
	return participants, nil
}

// RevokeShare deletes the remote share and clears the local share info. The
// zone and its records stay so a future share does not re-push everything.
func (s *shareServiceImpl) RevokeShare(ctx context.Context, studentID uuid.UUID) error {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !student.HasActiveShare() {
		return apperrors.ErrShareNotFound
	}

	zone := s.sync.ZoneForStudent(studentID)
	if err := s.store.DeleteShare(ctx, zone, *student.ShareRecordID); err != nil && !errors.Is(err, apperrors.ErrRemoteNotFound) {
		return err
	}

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Students.SetShareInfo(ctx, studentID, student.RemoteRecordID, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("studentId", studentID.String()).Msg("Revoked student share")
	return nil
}
