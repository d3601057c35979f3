package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models/dto"
	"github.com/heilo27/rightrudder/internal/app/services"
	"github.com/heilo27/rightrudder/internal/middleware"
)

// TemplateController handles checklist template catalog operations
type TemplateController struct {
	templateService services.TemplateService
	exportService   services.ExportService
	logger          zerolog.Logger
}

// NewTemplateController creates a new TemplateController
func NewTemplateController(templateService services.TemplateService, exportService services.ExportService, logger zerolog.Logger) *TemplateController {
	return &TemplateController{
		templateService: templateService,
		exportService:   exportService,
		logger:          logger,
	}
}

// Create adds a user-created template
// @Summary Create a template
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TemplateRequest true "Template fields"
// @Success 201 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Router /templates [post]
func (c *TemplateController) Create(ctx *gin.Context) {
	var req dto.TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	items := make([]services.TemplateItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.TemplateItemInput{Title: item.Title, Notes: item.Notes})
	}

	template, err := c.templateService.Create(ctx.Request.Context(), req.Name, req.Category, req.Phase, items)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(template))
}

// List returns the whole catalog
// @Summary List templates
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse
// @Router /templates [get]
func (c *TemplateController) List(ctx *gin.Context) {
	templates, err := c.templateService.GetAll(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(templates))
}

// Get returns one template with its items
// @Summary Get a template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Router /templates/{id} [get]
func (c *TemplateController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	template, err := c.templateService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(template))
}

// Update renames a template
// @Summary Update a template's name and grouping
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param request body dto.TemplateRequest true "Template fields"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Router /templates/{id} [put]
func (c *TemplateController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	template, err := c.templateService.Rename(ctx.Request.Context(), id, req.Name, req.Category, req.Phase)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(template))
}

// Delete removes a template
// @Summary Delete a template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Router /templates/{id} [delete]
func (c *TemplateController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.templateService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Template deleted"))
}

// AddItem appends a checklist line
// @Summary Add a template item
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param request body dto.TemplateItemRequest true "Item fields"
// @Success 201 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Router /templates/{id}/items [post]
func (c *TemplateController) AddItem(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.TemplateItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	item, err := c.templateService.AddItem(ctx.Request.Context(), id, services.TemplateItemInput{Title: req.Title, Notes: req.Notes})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(item))
}

// UpdateItem replaces one checklist line's content
// @Summary Update a template item
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param itemId path string true "Item ID"
// @Param request body dto.TemplateItemRequest true "Item fields"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template or item not found"
// @Router /templates/{id}/items/{itemId} [put]
func (c *TemplateController) UpdateItem(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(ctx, "itemId")
	if !ok {
		return
	}

	var req dto.TemplateItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	item, err := c.templateService.UpdateItem(ctx.Request.Context(), id, itemID, services.TemplateItemInput{Title: req.Title, Notes: req.Notes})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(item))
}

// DeleteItem removes one checklist line
// @Summary Delete a template item
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template or item not found"
// @Router /templates/{id}/items/{itemId} [delete]
func (c *TemplateController) DeleteItem(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(ctx, "itemId")
	if !ok {
		return
	}

	if err := c.templateService.DeleteItem(ctx.Request.Context(), id, itemID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Item deleted"))
}

// ReorderItems rewrites the display order
// @Summary Reorder a template's items
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param request body dto.ReorderItemsRequest true "Item ids in new order"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Router /templates/{id}/items/reorder [post]
func (c *TemplateController) ReorderItems(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.ReorderItemsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	if err := c.templateService.ReorderItems(ctx.Request.Context(), id, req.ItemIDs); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Items reordered"))
}

// Export bundles templates into a portable JSON document
// @Summary Export templates
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param templateId query []string false "Template ids to export; all when omitted"
// @Param exportedBy query string false "Exporter display name"
// @Success 200 {object} dto.TemplateExportDocument
// @Router /templates/export [get]
func (c *TemplateController) Export(ctx *gin.Context) {
	var query dto.ExportQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	ids := make([]uuid.UUID, 0, len(query.TemplateIDs))
	for _, raw := range query.TemplateIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid template id").WithField("templateId")))
			return
		}
		ids = append(ids, id)
	}

	doc, err := c.exportService.Export(ctx.Request.Context(), ids, query.ExportedBy)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

// Import inserts templates from an exported document
// @Summary Import templates
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TemplateExportDocument true "Exported template document"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid document"
// @Router /templates/import [post]
func (c *TemplateController) Import(ctx *gin.Context) {
	var doc dto.TemplateExportDocument
	if err := ctx.ShouldBindJSON(&doc); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	result, err := c.exportService.Import(ctx.Request.Context(), &doc)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}
