package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/connectivity"
	"github.com/heilo27/rightrudder/internal/app/models/dto"
	"github.com/heilo27/rightrudder/internal/app/services"
	"github.com/heilo27/rightrudder/internal/middleware"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// SyncController handles sync, offline queue and integrity operations
type SyncController struct {
	syncService      services.SyncService
	offlineService   services.OfflineService
	integrityService services.IntegrityService
	monitor          connectivity.Monitor
	queue            *savequeue.Queue
	logger           zerolog.Logger
}

// NewSyncController creates a new SyncController
func NewSyncController(syncService services.SyncService, offlineService services.OfflineService, integrityService services.IntegrityService, monitor connectivity.Monitor, queue *savequeue.Queue, logger zerolog.Logger) *SyncController {
	return &SyncController{
		syncService:      syncService,
		offlineService:   offlineService,
		integrityService: integrityService,
		monitor:          monitor,
		queue:            queue,
		logger:           logger,
	}
}

// SyncStudent runs a full push and pull for one student
// @Summary Sync one student's records
// @Description Pushes the student's hierarchy and pulls the remote record. Detected field conflicts defer the push until resolved.
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 503 {object} dto.ErrorResponse "Remote store unavailable"
// @Router /students/{id}/sync [post]
func (c *SyncController) SyncStudent(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	result, err := c.syncService.SyncStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// Status reports connectivity and queue depths
// @Summary Get sync status
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SyncStatusResponse}
// @Router /sync/status [get]
func (c *SyncController) Status(ctx *gin.Context) {
	pendingOps, err := c.offlineService.PendingCount(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	deadLettered, err := c.offlineService.ListDeadLettered(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SyncStatusResponse{
		IsOnline:          c.monitor.IsOnline(),
		PendingWrites:     c.queue.Pending(),
		PendingOperations: pendingOps,
		DeadLettered:      len(deadLettered),
	}))
}

// Replay forces an immediate replay pass over pending operations
// @Summary Replay queued offline operations now
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse
// @Router /sync/replay [post]
func (c *SyncController) Replay(ctx *gin.Context) {
	result, err := c.offlineService.ProcessPending(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// ListDeadLettered returns operations that exhausted their retries
// @Summary List dead-lettered operations
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse
// @Router /sync/operations/dead-letter [get]
func (c *SyncController) ListDeadLettered(ctx *gin.Context) {
	ops, err := c.offlineService.ListDeadLettered(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(ops))
}

// ResetOperation re-arms a dead-lettered operation
// @Summary Reset an operation's retry budget
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Param id path string true "Operation ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Operation not found"
// @Router /sync/operations/{id}/reset [post]
func (c *SyncController) ResetOperation(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.offlineService.ResetOperation(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Operation reset"))
}

// DeleteOperation drops an operation from the log
// @Summary Delete an offline operation
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Param id path string true "Operation ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Operation not found"
// @Router /sync/operations/{id} [delete]
func (c *SyncController) DeleteOperation(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.offlineService.DeleteOperation(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Operation deleted"))
}

// VerifyIntegrity runs the full verification and repair pass
// @Summary Verify and repair local data integrity
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse
// @Router /integrity/verify [post]
func (c *SyncController) VerifyIntegrity(ctx *gin.Context) {
	report, err := c.integrityService.VerifyAndRepair(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(report))
}
