package ingestion

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/metrics"
	"ingest/pkg/models"
)

type Handler struct {
	service      *Service
	logger       logger.Logger
	maxBodyBytes int64
}

func NewHandler(service *Service, cfg config.IngestionConfig, log logger.Logger) *Handler {
	return &Handler{
		service:      service,
		logger:       log,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// RegisterRoutes mounts the ingest endpoints. middleware applies to these
// routes only, leaving health and metrics endpoints unthrottled.
func (h *Handler) RegisterRoutes(router gin.IRouter, middleware ...gin.HandlerFunc) {
	ingest := router.Group("/ingest", middleware...)
	{
		ingest.POST("", h.Ingest)
		ingest.POST("/batch", h.IngestBatch)
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// Ingest godoc
// @Summary      Ingest a single record
// @Description  Validates the record, fills a missing id and timestamp, and publishes it to ingest.raw.<content_type>
// @Tags         ingestion
// @Accept       json
// @Produce      json
// @Param        record  body      models.Record  true  "Record to ingest"
// @Success      201     {object}  models.IngestOutcome
// @Failure      400     {object}  errors.ErrorBody
// @Failure      500     {object}  errors.ErrorBody
// @Failure      502     {object}  errors.ErrorBody
// @Failure      503     {object}  errors.ErrorBody
// @Router       /ingest [post]
func (h *Handler) Ingest(c *gin.Context) {
	start := time.Now()

	var rec models.Record
	if err := h.bind(c, &rec); err != nil {
		h.respondError(c, constants.EndpointSingle, start, err)
		return
	}

	outcome, err := h.service.IngestOne(c.Request.Context(), rec)
	if err != nil {
		h.respondError(c, constants.EndpointSingle, start, err)
		return
	}

	c.Header(constants.HeaderRecordID, outcome.ID)
	h.respond(c, constants.EndpointSingle, start, http.StatusCreated, outcome)
}

// IngestBatch godoc
// @Summary      Ingest a batch of records
// @Description  Processes every item independently. Invalid items and items that fail to publish are skipped; the response lists the published ids in input order.
// @Tags         ingestion
// @Accept       json
// @Produce      json
// @Param        batch  body      models.BatchRequest  true  "Records to ingest"
// @Success      201    {object}  models.BatchOutcome
// @Failure      400    {object}  errors.ErrorBody
// @Router       /ingest/batch [post]
func (h *Handler) IngestBatch(c *gin.Context) {
	start := time.Now()

	var req models.BatchRequest
	if err := h.bind(c, &req); err != nil {
		h.respondError(c, constants.EndpointBatch, start, err)
		return
	}

	outcome, err := h.service.IngestBatch(c.Request.Context(), req.Items)
	if err != nil {
		h.respondError(c, constants.EndpointBatch, start, err)
		return
	}

	h.respond(c, constants.EndpointBatch, start, http.StatusCreated, outcome)
}

func (h *Handler) bind(c *gin.Context, obj interface{}) error {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.ErrValidation.WithMessage("request body too large").WithCause(err)
		}
		return errors.ErrValidation.WithMessage("invalid request body").WithCause(err)
	}
	return nil
}

func (h *Handler) respond(c *gin.Context, endpoint string, start time.Time, status int, body interface{}) {
	metrics.ObserveIngestRequestDuration(endpoint, strconv.Itoa(status), time.Since(start))
	c.JSON(status, body)
}

func (h *Handler) respondError(c *gin.Context, endpoint string, start time.Time, err error) {
	metrics.ObserveIngestRequestDuration(endpoint, strconv.Itoa(errors.ToHTTPStatus(err)), time.Since(start))
	h.HandleError(c, err)
}
