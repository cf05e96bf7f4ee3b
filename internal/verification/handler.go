package verification

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
)

// Handler exposes the verification pipelines over HTTP.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a verification handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers verification routes. All routes expect the auth
// middleware to have resolved the subject id into the request context.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	v := router.Group("/verification")
	{
		v.POST("/kyc", h.submitKYC)

		academics := v.Group("/academics")
		{
			academics.POST("/class10", h.submitClass10)
			academics.POST("/class12", h.submitClass12)
			academics.POST("/higher-education", h.submitHigherEducation)
		}

		v.POST("/work-experience", h.submitWorkExperience)
		v.PUT("/work-experience/fresher", h.setFresher)

		v.GET("/status", h.status)
		v.GET("/health", h.upstreamHealth)
	}
}

func (h *Handler) submitKYC(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, errValidation("expected a multipart form with kyc document slots"))
		return
	}
	documents := make(map[string]extraction.File)
	for _, slot := range []string{SlotAadhaar, SlotPan, SlotSelfie} {
		headers := form.File[slot]
		if len(headers) == 0 {
			continue
		}
		file, err := readUpload(headers[0])
		if err != nil {
			h.respondError(c, errValidation("could not read uploaded file %q", headers[0].Filename))
			return
		}
		documents[slot] = file
	}

	result, err := h.service.SubmitKYC(c.Request.Context(), subjectID, documents)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, "kyc documents processed", result)
}

func (h *Handler) submitClass10(c *gin.Context) {
	h.submitFiles(c, "class10 marksheets processed", h.service.SubmitClass10)
}

func (h *Handler) submitClass12(c *gin.Context) {
	h.submitFiles(c, "class12 marksheets processed", h.service.SubmitClass12)
}

func (h *Handler) submitHigherEducation(c *gin.Context) {
	h.submitFiles(c, "higher education documents processed", h.service.SubmitHigherEducation)
}

func (h *Handler) submitWorkExperience(c *gin.Context) {
	h.submitFiles(c, "work experience documents processed", h.service.SubmitWorkExperience)
}

func (h *Handler) submitFiles(c *gin.Context, message string, submit func(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error)) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, errValidation("expected a multipart form with a files field"))
		return
	}
	headers := form.File["files"]
	files := make([]extraction.File, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header)
		if err != nil {
			h.respondError(c, errValidation("could not read uploaded file %q", header.Filename))
			return
		}
		files = append(files, file)
	}

	result, err := submit(c.Request.Context(), subjectID, files)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, message, result)
}

func (h *Handler) setFresher(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	var req struct {
		IsFresher *bool `json:"is_fresher" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errValidation("is_fresher is required"))
		return
	}
	if !*req.IsFresher {
		// Un-marking a fresher is deliberately unsupported: the cleared
		// experience entries cannot be restored.
		h.respondError(c, errValidation("un-marking fresher is not supported"))
		return
	}

	result, err := h.service.SetFresher(c.Request.Context(), subjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, "marked as fresher", result)
}

func (h *Handler) status(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	view, err := h.service.Status(c.Request.Context(), subjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

func (h *Handler) upstreamHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"extraction_service_healthy": h.service.UpstreamHealthy(c.Request.Context()),
		},
	})
}

func (h *Handler) subjectID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid subject identity"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respond(c *gin.Context, message string, result *SubmissionResult) {
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        message,
		"data":           result,
		"overall_status": result.OverallStatus,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	e := AsError(err)
	if e.Code == CodeInternal {
		h.logger.Error("verification request failed", zap.Error(err))
	}
	c.JSON(e.HTTPStatus(), gin.H{
		"success": false,
		"message": e.Message,
		"code":    e.Code,
	})
}

func readUpload(header *multipart.FileHeader) (extraction.File, error) {
	f, err := header.Open()
	if err != nil {
		return extraction.File{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return extraction.File{}, err
	}
	return extraction.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
