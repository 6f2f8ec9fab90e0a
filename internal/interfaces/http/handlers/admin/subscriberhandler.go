package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/application/admin/usecases"
	"github.com/kursio/kursio/internal/shared/logger"
	"github.com/kursio/kursio/internal/shared/utils"
)

const maxRecentEvents = 200

// SubscriberHandler is the support surface for billing state: listing
// users, forcing reconciliation and reading the webhook event log.
type SubscriberHandler struct {
	listUC         listSubscribersUseCase
	reconcileUC    reconcileUserUseCase
	reconcileAllUC reconcileAllUseCase
	events         eventLogReader
	logger         logger.Interface
}

func NewSubscriberHandler(
	listUC listSubscribersUseCase,
	reconcileUC reconcileUserUseCase,
	reconcileAllUC reconcileAllUseCase,
	events eventLogReader,
	logger logger.Interface,
) *SubscriberHandler {
	return &SubscriberHandler{
		listUC:         listUC,
		reconcileUC:    reconcileUC,
		reconcileAllUC: reconcileAllUC,
		events:         events,
		logger:         logger,
	}
}

func (h *SubscriberHandler) ListUsers(c *gin.Context) {
	p := utils.ParsePagination(c)
	query := usecases.ListSubscribersQuery{
		Page:               p.Page,
		PageSize:           p.PageSize,
		Email:              c.Query("email"),
		SubscriptionStatus: c.Query("status"),
	}
	if raw := c.Query("has_customer"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "has_customer must be a boolean")
			return
		}
		query.HasCustomer = &v
	}

	result, err := h.listUC.Execute(c.Request.Context(), query)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Users, result.Total, result.Page, result.PageSize)
}

func (h *SubscriberHandler) ReconcileUser(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}

	result, err := h.reconcileUC.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("admin reconciled user",
		"user_id", userID,
		"previous_status", result.PreviousStatus,
		"source", result.Source,
		"written", result.Written,
	)
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *SubscriberHandler) ReconcileAll(c *gin.Context) {
	result, err := h.reconcileAllUC.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "reconciliation finished", result)
}

type webhookEventResponse struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	UserID     string          `json:"userId,omitempty"`
	CustomerID string          `json:"customerId,omitempty"`
	Outcome    string          `json:"outcome"`
	Detail     string          `json:"detail,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

func (h *SubscriberHandler) RecentWebhookEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			utils.ErrorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, maxRecentEvents)
	}

	entries, err := h.events.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorw("failed to read webhook event log", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	out := make([]webhookEventResponse, 0, len(entries))
	for _, e := range entries {
		item := webhookEventResponse{
			EventID:    e.EventID,
			EventType:  e.EventType,
			UserID:     e.UserID,
			CustomerID: e.CustomerID,
			Outcome:    e.Outcome,
			Detail:     e.Detail,
			ReceivedAt: e.ReceivedAt,
		}
		if json.Valid(e.Payload) {
			item.Payload = json.RawMessage(e.Payload)
		}
		out = append(out, item)
	}

	utils.SuccessResponse(c, http.StatusOK, "", out)
}
