package api

import (
	"mime/multipart"
	"net/http"

	"github.com/huseinhashi/academic-record/internal/config"
	"github.com/huseinhashi/academic-record/internal/logger"
	"github.com/huseinhashi/academic-record/internal/model"
	"github.com/huseinhashi/academic-record/internal/records"
	apperrors "github.com/huseinhashi/academic-record/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc *records.Service
	cfg *config.Config
	log zerolog.Logger
}

func NewHandler(svc *records.Service, cfg *config.Config) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
		log: logger.Get(),
	}
}

// SubmitRecord handles POST /records (multipart: issuer_id, record_type,
// title, file).
func (h *Handler) SubmitRecord(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file was uploaded"})
		return
	}

	up, closeFn, err := openUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer closeFn()

	view, err := h.svc.Submit(
		c.Request.Context(),
		GetActor(c),
		c.PostForm("issuer_id"),
		model.RecordType(c.PostForm("record_type")),
		c.PostForm("title"),
		up,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// VerifyRecord handles PUT /records/verify/:id.
func (h *Handler) VerifyRecord(c *gin.Context) {
	var req model.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	view, err := h.svc.Decide(c.Request.Context(), GetActor(c), c.Param("id"), req.Action, req.RejectionReason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ResubmitRecord handles PUT /records/:id (multipart: file).
func (h *Handler) ResubmitRecord(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file was uploaded"})
		return
	}

	up, closeFn, err := openUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer closeFn()

	view, err := h.svc.Resubmit(c.Request.Context(), GetActor(c), c.Param("id"), up)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetRecord handles GET /records/:id.
func (h *Handler) GetRecord(c *gin.Context) {
	view, err := h.svc.Read(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetMyRecords handles GET /records/my-records.
func (h *Handler) GetMyRecords(c *gin.Context) {
	views, err := h.svc.ListMine(c.Request.Context(), GetActor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(views), "data": views})
}

// GetStudentRecords handles GET /records/student/:id.
func (h *Handler) GetStudentRecords(c *gin.Context) {
	views, err := h.svc.ListByStudent(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(views), "data": views})
}

// GetInstitutionRecords handles GET /records/institution/:id with an
// optional ?status= filter.
func (h *Handler) GetInstitutionRecords(c *gin.Context) {
	var status *model.RecordStatus
	if raw := c.Query("status"); raw != "" {
		s := model.RecordStatus(raw)
		status = &s
	}

	views, err := h.svc.ListByIssuer(c.Request.Context(), GetActor(c), c.Param("id"), status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(views), "data": views})
}

// CheckHash handles GET /records/check-hash/:hash. Public endpoint.
func (h *Handler) CheckHash(c *gin.Context) {
	resp, err := h.svc.CheckFingerprint(c.Request.Context(), c.Param("hash"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteRecord handles DELETE /records/:id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Academic record deleted successfully"})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// respondError maps the error taxonomy onto HTTP statuses. This is the
// only place the mapping exists; everything below the handlers deals in
// typed errors.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindAuthorization:
		status = http.StatusForbidden
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindStorage:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func openUpload(fileHeader *multipart.FileHeader) (records.Upload, func(), error) {
	file, err := fileHeader.Open()
	if err != nil {
		return records.Upload{}, nil, err
	}

	up := records.Upload{
		Content:     file,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}
	return up, func() { file.Close() }, nil
}
