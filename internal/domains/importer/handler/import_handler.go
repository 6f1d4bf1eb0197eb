package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/domains/importer/model"
	"crm-backend/internal/domains/importer/service"
	"crm-backend/internal/shared"
	"crm-backend/internal/shared/response"
)

const maxUploadBytes = 20 << 20 // 20 MiB

var acceptedExtensions = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
}

// ImportHandler exposes the import lifecycle over HTTP.
type ImportHandler struct {
	orchestrator *service.Orchestrator
}

func NewImportHandler(orchestrator *service.Orchestrator) *ImportHandler {
	return &ImportHandler{orchestrator: orchestrator}
}

// RegisterRoutes mounts the import endpoints under the authenticated group.
func (h *ImportHandler) RegisterRoutes(group *gin.RouterGroup) {
	imports := group.Group("/imports")
	{
		imports.POST("", h.CreateImport)
		imports.GET("", h.ListImports)
		imports.GET("/:id", h.GetImport)
		imports.GET("/:id/errors", h.ListRowErrors)
		imports.POST("/:id/confirm", h.Confirm)
		imports.POST("/:id/cancel", h.Cancel)
		imports.DELETE("/:id", h.DeleteImport)
	}
}

func caller(c *gin.Context) (uuid.UUID, bool, bool) {
	raw := c.GetString(shared.CtxUserID)
	userID, err := uuid.Parse(raw)
	if err != nil {
		response.Unauthorized(c, "invalid user identity")
		return uuid.Nil, false, false
	}
	return userID, c.GetString(shared.CtxRole) == shared.RoleAdmin, true
}

func importIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid import id")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

type createImportRequest struct {
	Type string `form:"type"`
}

func (r createImportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(model.ValidTypes()...)),
	)
}

// CreateImport accepts a multipart upload and starts the pipeline. The
// response carries the pending import; analysis runs asynchronously.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req createImportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "validation failed", err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.BadRequest(c, "file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := acceptedExtensions[ext]
	if !ok {
		response.BadRequest(c, "unsupported file format, expected .xlsx or .csv")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalServerError(c, "failed to read upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.InternalServerError(c, "failed to read upload")
		return
	}

	imp, err := h.orchestrator.InitializeImport(c.Request.Context(), userID, fileHeader.Filename, content, contentType, model.ImportType(req.Type))
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize import")
		response.InternalServerError(c, "failed to initialize import")
		return
	}

	response.Success(c, http.StatusCreated, imp)
}

func (h *ImportHandler) ListImports(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	imports, total, err := h.orchestrator.ListImports(c.Request.Context(), userID, isAdmin, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list imports")
		response.InternalServerError(c, "failed to list imports")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, imports, &response.Meta{
		Page:  offset/limit + 1,
		Limit: limit,
		Total: total,
	})
}

func (h *ImportHandler) GetImport(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	importID, ok := importIDParam(c)
	if !ok {
		return
	}

	imp, err := h.orchestrator.GetImport(c.Request.Context(), importID, userID, isAdmin)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, imp)
}

func (h *ImportHandler) ListRowErrors(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	importID, ok := importIDParam(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	rowErrors, total, err := h.orchestrator.ListRowErrors(c.Request.Context(), importID, userID, isAdmin, limit, offset)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rowErrors, &response.Meta{
		Page:  offset/limit + 1,
		Limit: limit,
		Total: total,
	})
}

// Confirm launches processing for an import awaiting confirmation.
func (h *ImportHandler) Confirm(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	importID, ok := importIDParam(c)
	if !ok {
		return
	}

	if _, err := h.orchestrator.GetImport(c.Request.Context(), importID, userID, isAdmin); err != nil {
		h.renderError(c, err)
		return
	}

	imp, err := h.orchestrator.Confirm(c.Request.Context(), importID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, imp)
}

// Cancel aborts a non-terminal import.
func (h *ImportHandler) Cancel(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	importID, ok := importIDParam(c)
	if !ok {
		return
	}

	if _, err := h.orchestrator.GetImport(c.Request.Context(), importID, userID, isAdmin); err != nil {
		h.renderError(c, err)
		return
	}

	imp, err := h.orchestrator.Cancel(c.Request.Context(), importID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, imp)
}

// DeleteImport removes a terminal import and its history.
func (h *ImportHandler) DeleteImport(c *gin.Context) {
	userID, isAdmin, ok := caller(c)
	if !ok {
		return
	}
	importID, ok := importIDParam(c)
	if !ok {
		return
	}

	if err := h.orchestrator.DeleteImport(c.Request.Context(), importID, userID, isAdmin); err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *ImportHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrImportNotFound):
		response.NotFound(c, "import not found")
	case errors.Is(err, model.ErrInvalidTransition):
		response.Conflict(c, err.Error())
	case errors.Is(err, model.ErrImportNotTerminal):
		response.Conflict(c, "import is still running")
	case errors.Is(err, model.ErrUnknownImportType):
		response.BadRequest(c, err.Error())
	default:
		log.Error().Err(err).Msg("Import request failed")
		response.InternalServerError(c, "internal error")
	}
}
