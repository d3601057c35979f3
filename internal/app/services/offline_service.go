package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/connectivity"
	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// ReplayResult summarizes one replay pass over the pending operation log.
type ReplayResult struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// OfflineService records sync intents while the remote store is unreachable
// and replays them in FIFO order once connectivity returns. Replay also runs
// on a periodic timer as a safety net for operations that failed transiently
// while online.
type OfflineService interface {
	Enqueue(ctx context.Context, opType models.OperationType, studentID uuid.UUID, checklistID, itemID *uuid.UUID, payload any) error
	ProcessPending(ctx context.Context) (*ReplayResult, error)
	Start(ctx context.Context)
	PendingCount(ctx context.Context) (int, error)
	ListDeadLettered(ctx context.Context) ([]*models.OfflineOperation, error)
	ResetOperation(ctx context.Context, id uuid.UUID) error
	DeleteOperation(ctx context.Context, id uuid.UUID) error
}

type offlineServiceImpl struct {
	repos          *repositories.Repositories
	queue          *savequeue.Queue
	sync           SyncService
	monitor        connectivity.Monitor
	replayInterval time.Duration
	completedTTL   time.Duration
	logger         zerolog.Logger
}

// NewOfflineService creates a new offline operation service instance
func NewOfflineService(repos *repositories.Repositories, queue *savequeue.Queue, syncService SyncService, monitor connectivity.Monitor, replayInterval, completedTTL time.Duration, logger zerolog.Logger) OfflineService {
	if replayInterval <= 0 {
		replayInterval = 5 * time.Minute
	}
	if completedTTL <= 0 {
		completedTTL = 7 * 24 * time.Hour
	}
	return &offlineServiceImpl{
		repos:          repos,
		queue:          queue,
		sync:           syncService,
		monitor:        monitor,
		replayInterval: replayInterval,
		completedTTL:   completedTTL,
		logger:         logger.With().Str("component", "offline").Logger(),
	}
}

// Enqueue persists one operation at the tail of the log
func (s *offlineServiceImpl) Enqueue(ctx context.Context, opType models.OperationType, studentID uuid.UUID, checklistID, itemID *uuid.UUID, payload any) error {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode operation payload: %w", err)
		}
		data = encoded
	}

	op := &models.OfflineOperation{
		ID:            uuid.New(),
		OperationType: opType,
		StudentID:     studentID,
		ChecklistID:   checklistID,
		ItemID:        itemID,
		OperationData: data,
		MaxRetries:    models.MaxOperationRetries,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.OfflineOps.Create(ctx, op)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("operationId", op.ID.String()).
		Str("type", string(opType)).
		Str("studentId", studentID.String()).
		Msg("Queued offline operation")
	return nil
}

// ProcessPending replays all pending operations oldest first. A failed
// operation bumps its retry count and does not block the ones behind it;
// operations past their retry budget are excluded by the repository query.
func (s *offlineServiceImpl) ProcessPending(ctx context.Context) (*ReplayResult, error) {
	pending, err := s.repos.OfflineOps.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{}
	for _, op := range pending {
		if op.IsCompleted {
			result.Skipped++
			continue
		}

		if err := s.dispatch(ctx, op); err != nil {
			result.Failed++
			attemptedAt := time.Now().UTC()
			if markErr := s.queue.Save(ctx, func(ctx context.Context) error {
				return s.repos.OfflineOps.IncrementRetry(ctx, op.ID, attemptedAt)
			}); markErr != nil {
				s.logger.Error().Err(markErr).Str("operationId", op.ID.String()).Msg("Failed to record retry attempt")
			}
			s.logger.Warn().
				Err(err).
				Str("operationId", op.ID.String()).
				Int("retryCount", op.RetryCount+1).
				Msg("Offline operation replay failed")

			// The remote is down again; stop burning retries on the rest.
			if errors.Is(err, apperrors.ErrRemoteUnavailable) {
				break
			}
			continue
		}

		completedAt := time.Now().UTC()
		if err := s.queue.Save(ctx, func(ctx context.Context) error {
			return s.repos.OfflineOps.MarkCompleted(ctx, op.ID, completedAt)
		}); err != nil {
			s.logger.Error().Err(err).Str("operationId", op.ID.String()).Msg("Failed to mark operation completed")
			continue
		}
		result.Replayed++
	}

	if result.Replayed > 0 || result.Failed > 0 {
		s.logger.Info().
			Int("replayed", result.Replayed).
			Int("failed", result.Failed).
			Msg("Offline replay pass finished")
	}
	return result, nil
}

// dispatch executes one operation against the remote store. Every branch
// pushes the current local state, so replaying an operation twice, or
// replaying a stale operation after a newer edit, converges on the same
// remote record.
func (s *offlineServiceImpl) dispatch(ctx context.Context, op *models.OfflineOperation) error {
	switch op.OperationType {
	case models.OperationUpdate:
		return s.sync.PushStudent(ctx, op.StudentID)

	case models.OperationAdd, models.OperationComment:
		if op.ChecklistID == nil {
			return fmt.Errorf("%s operation %s has no checklist id", op.OperationType, op.ID)
		}
		err := s.sync.PushAssignment(ctx, *op.ChecklistID)
		if errors.Is(err, apperrors.ErrAssignmentNotFound) {
			// The assignment was removed while the operation waited; there
			// is nothing left to push.
			return nil
		}
		return err

	case models.OperationCompletion:
		return s.dispatchCompletion(ctx, op)

	default:
		return fmt.Errorf("unknown operation type %q", op.OperationType)
	}
}

func (s *offlineServiceImpl) dispatchCompletion(ctx context.Context, op *models.OfflineOperation) error {
	if op.ChecklistID == nil {
		return fmt.Errorf("completion operation %s has no checklist id", op.ID)
	}

	var payload models.CompletionPayload
	if err := json.Unmarshal(op.OperationData, &payload); err != nil {
		return fmt.Errorf("failed to decode completion payload: %w", err)
	}

	assignment, err := s.repos.Assignments.GetByID(ctx, *op.ChecklistID)
	if errors.Is(err, apperrors.ErrAssignmentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	progress := assignment.ProgressByItemID(payload.TemplateItemID)
	if progress == nil {
		// The progress row was reconciled away; the operation is moot.
		return nil
	}

	// Push the current row rather than the payload snapshot. The row holds
	// the latest absolute state, so an older queued completion never rolls
	// back a newer edit.
	return s.sync.PushItemProgress(ctx, assignment, progress)
}

// Start runs the replay loop until the context is cancelled. Replay fires on
// every offline to online transition and on the periodic ticker; completed
// operations older than the retention window are purged once per pass.
func (s *offlineServiceImpl) Start(ctx context.Context) {
	states, cancel := s.monitor.Subscribe()

	go func() {
		defer cancel()
		ticker := time.NewTicker(s.replayInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				if state == connectivity.Online {
					s.logger.Info().Msg("Connectivity restored; replaying queued operations")
					s.runPass(ctx)
				}
			case <-ticker.C:
				if s.monitor.IsOnline() {
					s.runPass(ctx)
				}
			}
		}
	}()
}

func (s *offlineServiceImpl) runPass(ctx context.Context) {
	if _, err := s.ProcessPending(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Offline replay pass failed")
	}

	cutoff := time.Now().UTC().Add(-s.completedTTL)
	err := s.queue.Save(ctx, func(ctx context.Context) error {
		purged, err := s.repos.OfflineOps.DeleteCompletedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if purged > 0 {
			s.logger.Debug().Int("purged", purged).Msg("Purged completed offline operations")
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to purge completed offline operations")
	}
}

// PendingCount returns the number of operations still awaiting replay
func (s *offlineServiceImpl) PendingCount(ctx context.Context) (int, error) {
	return s.repos.OfflineOps.CountPending(ctx)
}

// ListDeadLettered returns the operations that exhausted their retry budget
func (s *offlineServiceImpl) ListDeadLettered(ctx context.Context) ([]*models.OfflineOperation, error) {
	return s.repos.OfflineOps.ListDeadLettered(ctx)
}

// ResetOperation zeroes an operation's retry count so replay picks it up again
func (s *offlineServiceImpl) ResetOperation(ctx context.Context, id uuid.UUID) error {
	return s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.OfflineOps.ResetRetries(ctx, id)
	})
}

// DeleteOperation drops an operation from the log
func (s *offlineServiceImpl) DeleteOperation(ctx context.Context, id uuid.UUID) error {
	return s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.OfflineOps.Delete(ctx, id)
	})
}
