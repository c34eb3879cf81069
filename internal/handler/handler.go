// Package handler HTTP API сервиса каруселей на gin.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"carousel-server/internal/models"
	"carousel-server/internal/service"
	"carousel-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileServer отдача объектов хранилища по подписанным ссылкам.
type FileServer interface {
	Open(bucket, path string) (*os.File, string, error)
	Verify(bucket, path, expires, sig string) error
}

// CarouselHandler обработчики API.
type CarouselHandler struct {
	documents      service.DocumentService
	generation     service.GenerationService
	edits          service.EditService
	files          FileServer
	jwtSecret      string
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewCarouselHandler(
	documents service.DocumentService,
	generation service.GenerationService,
	edits service.EditService,
	files FileServer,
	jwtSecret string,
	maxUploadBytes int64,
	logger *zap.Logger,
) *CarouselHandler {
	return &CarouselHandler{
		documents:      documents,
		generation:     generation,
		edits:          edits,
		files:          files,
		jwtSecret:      jwtSecret,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("CarouselHandler"),
	}
}

// RegisterRoutes регистрирует маршруты API и отдачу файлов.
// modelLimits ставятся только на маршруты, которые вызывают модели.
func (h *CarouselHandler) RegisterRoutes(router gin.IRouter, modelLimits ...gin.HandlerFunc) {
	withLimits := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, modelLimits...), fn)
	}

	router.GET("/files/:bucket/*path", h.serveFile)

	api := router.Group("/api/v1", middleware.JWTAuth(h.jwtSecret, h.logger))
	{
		api.POST("/documents", h.createDocument)
		api.GET("/documents/:id", h.getDocument)
		api.POST("/documents/:id/generate", withLimits(h.startGeneration)...)
		api.GET("/documents/:id/progress", h.getProgress)
		api.POST("/documents/:id/edit", withLimits(h.applyEdit)...)
		api.GET("/documents/:id/locks", h.getLocks)
		api.PUT("/documents/:id/locks", h.putLocks)
		api.POST("/documents/:id/references", h.uploadReference)
		api.POST("/documents/:id/cleanup-placeholders", h.cleanupPlaceholders)

		api.GET("/layouts", h.listLayouts)
		api.POST("/layouts", h.createLayout)
	}
}

// --- DTO ---

type generateRequest struct {
	ImageModel string `json:"imageModel"`
}

type generateResponse struct {
	JobID uuid.UUID        `json:"jobId"`
	State *models.JobState `json:"state"`
}

type editRequest struct {
	Instruction string `json:"instruction" binding:"required"`
	SlideIndex  int    `json:"slideIndex" binding:"gte=0"`
}

type createLayoutRequest struct {
	Kind    models.LayoutKind `json:"kind" binding:"required,oneof=layout visual"`
	Payload json.RawMessage   `json:"payload" binding:"required"`
}

// --- helpers ---

// ownerAndDocument достает владельца из токена и id документа из пути.
func (h *CarouselHandler) ownerAndDocument(c *gin.Context) (string, uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.handleServiceError(c, models.ErrUnauthorized)
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid document id")
		return "", uuid.Nil, false
	}
	return userID, id, true
}

// --- handlers ---

func (h *CarouselHandler) createDocument(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.handleServiceError(c, models.ErrUnauthorized)
		return
	}
	var req service.CreateDocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	doc, err := h.documents.CreateDocument(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *CarouselHandler) getDocument(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	view, err := h.documents.GetDocument(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// startGeneration выполняет генерацию в рамках запроса и возвращает итоговое состояние задачи.
func (h *CarouselHandler) startGeneration(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	jobID, err := h.generation.StartGeneration(c.Request.Context(), userID, id, strings.TrimSpace(req.ImageModel))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	state, err := h.generation.GetProgress(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{JobID: jobID, State: state})
}

func (h *CarouselHandler) getProgress(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	state, err := h.generation.GetProgress(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *CarouselHandler) applyEdit(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	res, err := h.edits.ApplyInstruction(c.Request.Context(), userID, id, req.Instruction, req.SlideIndex)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CarouselHandler) getLocks(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	locks, err := h.documents.GetLocks(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, locks)
}

func (h *CarouselHandler) putLocks(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	var locks models.LockSet
	if err := c.ShouldBindJSON(&locks); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.documents.PutLocks(c.Request.Context(), userID, id, locks); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadReference тело запроса сырое изображение, role и name в query.
func (h *CarouselHandler) uploadReference(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	body := c.Request.Body
	if h.maxUploadBytes > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Code: ErrCodeBadRequest, Message: fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes)})
			return
		}
		badRequest(c, "Failed to read upload")
		return
	}

	asset, err := h.documents.AddReference(c.Request.Context(), userID, id, service.ReferenceUpload{
		Role:        models.AssetRole(c.Query("role")),
		Name:        c.Query("name"),
		ContentType: c.ContentType(),
		Data:        data,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (h *CarouselHandler) cleanupPlaceholders(c *gin.Context) {
	userID, id, ok := h.ownerAndDocument(c)
	if !ok {
		return
	}
	removed, err := h.documents.CleanupPlaceholders(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *CarouselHandler) listLayouts(c *gin.Context) {
	c.JSON(http.StatusOK, h.documents.ListLayouts(c.Request.Context()))
}

func (h *CarouselHandler) createLayout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.handleServiceError(c, models.ErrUnauthorized)
		return
	}
	var req createLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	id, err := h.documents.CreateLayout(c.Request.Context(), userID, req.Kind, req.Payload)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// serveFile отдача приватного объекта по подписанной ссылке.
func (h *CarouselHandler) serveFile(c *gin.Context) {
	bucket := c.Param("bucket")
	path := strings.TrimPrefix(c.Param("path"), "/")
	if err := h.files.Verify(bucket, path, c.Query("expires"), c.Query("sig")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	f, contentType, err := h.files.Open(bucket, path)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age="+strconv.Itoa(300))
	http.ServeContent(c.Writer, c.Request, path, modTime, f)
}
