// Package http webhook 接入的 HTTP 层
package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/donation/application"
	"github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
	"github.com/fundraisehq/donorcrm/pkg/middleware"
)

// maxBodyBytes webhook 请求体上限
const maxBodyBytes = 1 << 20

// WebhookHandler 捐赠 webhook 处理器
type WebhookHandler struct {
	credentials  *application.CredentialService
	ingest       *application.IngestService
	tenantHeader string
	metrics      *metrics.Metrics
}

// NewWebhookHandler 创建 webhook 处理器
func NewWebhookHandler(credentials *application.CredentialService, ingest *application.IngestService, tenantHeader string, m *metrics.Metrics) *WebhookHandler {
	if tenantHeader == "" {
		tenantHeader = "X-Tenant-ID"
	}
	return &WebhookHandler{
		credentials:  credentials,
		ingest:       ingest,
		tenantHeader: tenantHeader,
		metrics:      m,
	}
}

// RegisterRoutes 注册路由
func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/webhook/donation", h.HandleDonation)
}

// errorResponse 错误信封
type errorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// successResponse 成功信封；匿名捐赠时 donor 为 null
type successResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Donation  *domain.Donation       `json:"donation"`
	Donor     *contactdomain.Contact `json:"donor"`
	RequestID string                 `json:"request_id"`
	Timestamp time.Time              `json:"timestamp"`
}

// HandleDonation 处理一次捐赠 webhook 调用
func (h *WebhookHandler) HandleDonation(c *gin.Context) {
	ctx := c.Request.Context()

	cred, ierr := h.credentials.Authenticate(ctx,
		c.Request.Method,
		c.GetHeader("Authorization"),
		c.GetHeader(h.tenantHeader),
	)
	if ierr != nil {
		h.reject(c, ierr)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.reject(c, application.WrapIngestError(application.KindServerError, "failed to read request body", err))
		return
	}

	result, ierr := h.ingest.Ingest(ctx, cred, body)
	if ierr != nil {
		h.reject(c, ierr)
		return
	}

	c.JSON(http.StatusOK, successResponse{
		Success:   true,
		Message:   "donation recorded",
		Donation:  result.Donation,
		Donor:     result.Donor,
		RequestID: middleware.RequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// MethodNotAllowed 供 engine.NoMethod 使用
func (h *WebhookHandler) MethodNotAllowed(c *gin.Context) {
	h.reject(c, application.NewIngestError(application.KindMethodNotAllowed, "only POST requests are accepted"))
}

// NotFound 供 engine.NoRoute 使用
func (h *WebhookHandler) NotFound(c *gin.Context) {
	h.reject(c, application.NewIngestError(application.KindNotFound, "route not found"))
}

func (h *WebhookHandler) reject(c *gin.Context, ierr *application.IngestError) {
	ctx := c.Request.Context()
	status := ierr.Kind.HTTPStatus()

	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "webhook request failed", "kind", string(ierr.Kind), "error", ierr.Error())
	} else {
		logger.Warn(ctx, "webhook request rejected", "kind", string(ierr.Kind), "error", ierr.Error())
	}
	if h.metrics != nil {
		h.metrics.WebhookRejected.Inc()
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Error:     string(ierr.Kind),
		Code:      status,
		Message:   ierr.Message,
		Details:   ierr.Details,
		RequestID: middleware.RequestID(c),
		Timestamp: time.Now().UTC(),
	})
}
