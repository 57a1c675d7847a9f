package notification

import (
	"crypto/subtle"

	"notification_hub/internal/common"
	"notification_hub/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service     Service
	producerKey string
	logger      *zap.Logger
}

func NewHandler(service Service, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		producerKey: cfg.ProducerAPIKey,
		logger:      logger.Named("NotificationHandler"),
	}
}

// ListResponse is the body of GET /notifications.
type ListResponse struct {
	Notifications []Notification     `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
	Pagination    *common.Pagination `json:"pagination,omitempty"`
}

// RegisterRoutes sets up the routes for notification operations.
// The group must run behind the identity middleware.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.listNotifications)
	router.POST("", h.createNotification)
	router.DELETE("", h.deleteNotifications)
	router.POST("/mark-read", h.markNotificationAsRead)
	router.POST("/mark-all-read", h.markAllNotificationsAsRead)
}

func (h *Handler) listNotifications(c *gin.Context) {
	recipient := common.GetRecipientFromContext(c)

	notifications, err := h.service.List(c.Request.Context(), recipient)
	if err != nil {
		common.RespondWithError(c, ToAPIError(err))
		return
	}

	resp := ListResponse{Notifications: notifications, UnreadCount: UnreadCount(notifications)}
	if page, pageSize, ok := common.GetPaginationParams(c); ok {
		resp.Pagination = common.NewPagination(int64(len(notifications)), page, pageSize)
		start, end := resp.Pagination.Bounds()
		resp.Notifications = notifications[start:end]
	}
	common.RespondOK(c, resp)
}

func (h *Handler) createNotification(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewValidationAPIError(map[string]string{"payload": err.Error()}))
		return
	}

	caller := common.GetRecipientFromContext(c)
	target := caller
	if req.Recipient != "" {
		target = req.Recipient
	}
	if (target != caller || req.IsGlobal) && !h.producerAuthorized(c) {
		common.RespondWithError(c, common.ErrForbidden.WithDetails("A valid producer key is required to target other recipients or the global list."))
		return
	}

	n, err := h.service.Create(c.Request.Context(), target, req)
	if err != nil {
		common.RespondWithError(c, ToAPIError(err))
		return
	}
	common.RespondCreated(c, n)
}

// deleteNotifications masks or removes one id when ?id= is present, everything otherwise.
func (h *Handler) deleteNotifications(c *gin.Context) {
	recipient := common.GetRecipientFromContext(c)

	if id, ok := c.GetQuery("id"); ok {
		result, err := h.service.DeleteOne(c.Request.Context(), recipient, id)
		if err != nil {
			common.RespondWithError(c, ToAPIError(err))
			return
		}
		common.RespondOK(c, result)
		return
	}

	result, err := h.service.DeleteAll(c.Request.Context(), recipient)
	if err != nil {
		common.RespondWithError(c, ToAPIError(err))
		return
	}
	common.RespondOK(c, result)
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	recipient := common.GetRecipientFromContext(c)

	result, err := h.service.MarkRead(c.Request.Context(), recipient, c.Query("id"))
	if err != nil {
		common.RespondWithError(c, ToAPIError(err))
		return
	}
	common.RespondOK(c, result)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	recipient := common.GetRecipientFromContext(c)

	updated, err := h.service.MarkAllRead(c.Request.Context(), recipient)
	if err != nil {
		common.RespondWithError(c, ToAPIError(err))
		return
	}
	common.RespondOK(c, gin.H{"updated": updated})
}

// producerAuthorized reports whether the caller may write outside its own list.
// With no key configured every caller is a producer.
func (h *Handler) producerAuthorized(c *gin.Context) bool {
	if h.producerKey == "" {
		return true
	}
	given := c.GetHeader(common.ProducerKeyHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.producerKey)) == 1
}
