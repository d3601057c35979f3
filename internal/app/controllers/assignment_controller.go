package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models/dto"
	"github.com/heilo27/rightrudder/internal/app/services"
	"github.com/heilo27/rightrudder/internal/middleware"
)

// AssignmentController handles checklist assignment operations
type AssignmentController struct {
	assignmentService services.AssignmentService
	logger            zerolog.Logger
}

// NewAssignmentController creates a new AssignmentController
func NewAssignmentController(assignmentService services.AssignmentService, logger zerolog.Logger) *AssignmentController {
	return &AssignmentController{
		assignmentService: assignmentService,
		logger:            logger,
	}
}

// Assign binds a template to a student
// @Summary Assign a checklist template to a student
// @Description Creates the assignment with one progress row per template item. Assigning the same template twice returns the existing assignment.
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param request body dto.AssignRequest true "Template to assign"
// @Success 201 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Student or template not found"
// @Router /students/{id}/assignments [post]
func (c *AssignmentController) Assign(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	assignment, err := c.assignmentService.Assign(ctx.Request.Context(), studentID, req.TemplateID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(assignment))
}

// ListByStudent returns a student's assignments
// @Summary List a student's assignments
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/assignments [get]
func (c *AssignmentController) ListByStudent(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	assignments, err := c.assignmentService.ListByStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(assignments))
}

// Get returns one assignment with its progress rows
// @Summary Get an assignment
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id} [get]
func (c *AssignmentController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	assignment, err := c.assignmentService.GetAssignment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(assignment))
}

// Progress returns the computed completion summary
// @Summary Get an assignment's progress summary
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id}/progress [get]
func (c *AssignmentController) Progress(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	summary, err := c.assignmentService.Progress(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(summary))
}

// UpdateComments replaces the instructor comments
// @Summary Update an assignment's instructor comments
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param request body dto.UpdateCommentsRequest true "New comments"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id}/comments [put]
func (c *AssignmentController) UpdateComments(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateCommentsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	if err := c.assignmentService.UpdateComments(ctx.Request.Context(), id, req.Comments); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Comments updated"))
}

// UpdateDualGiven replaces the logged dual instruction hours
// @Summary Update an assignment's dual given hours
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param request body dto.UpdateDualGivenRequest true "Hours"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id}/dual-given [put]
func (c *AssignmentController) UpdateDualGiven(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateDualGivenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	if err := c.assignmentService.UpdateDualGiven(ctx.Request.Context(), id, req.Hours); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Dual given hours updated"))
}

// UpdateItemCompletion sets one item's completion state
// @Summary Set an item's completion state
// @Description Sets the absolute completion state. When the student has an active share only the changed record is pushed.
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param itemId path string true "Template item ID"
// @Param request body dto.ItemCompletionRequest true "Completion state"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Assignment or progress row not found"
// @Router /assignments/{id}/items/{itemId} [put]
func (c *AssignmentController) UpdateItemCompletion(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(ctx, "itemId")
	if !ok {
		return
	}

	var req dto.ItemCompletionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	progress, err := c.assignmentService.UpdateItemCompletion(ctx.Request.Context(), id, itemID, req.IsComplete, req.Notes)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(progress))
}

// Remove deletes an assignment
// @Summary Remove an assignment
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id} [delete]
func (c *AssignmentController) Remove(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.assignmentService.RemoveAssignment(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Assignment removed"))
}
