package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/application/subscription/usecases"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
	"github.com/kursio/kursio/internal/shared/logger"
	"github.com/kursio/kursio/internal/shared/utils"
)

// SubscriptionHandler serves the explicit status checks. Both reconcile
// against the billing provider before answering.
type SubscriptionHandler struct {
	statusUC     getSubscriptionStatusUseCase
	forceCheckUC forceCheckSubscriptionUseCase
	logger       logger.Interface
}

func NewSubscriptionHandler(
	statusUC getSubscriptionStatusUseCase,
	forceCheckUC forceCheckSubscriptionUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		statusUC:     statusUC,
		forceCheckUC: forceCheckUC,
		logger:       logger,
	}
}

func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	result, err := h.statusUC.Execute(c.Request.Context(), usecases.GetSubscriptionStatusQuery{UserID: userID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ForceCheck answers 200 even when the refresh degraded; the body's
// success flag tells the caller whether the stored status is current.
func (h *SubscriptionHandler) ForceCheck(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	result, err := h.forceCheckUC.Execute(c.Request.Context(), usecases.ForceCheckSubscriptionCommand{UserID: userID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, result.Message, result)
}
