package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/application/billing/usecases"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
	"github.com/kursio/kursio/internal/shared/logger"
	"github.com/kursio/kursio/internal/shared/utils"
)

type BillingHandler struct {
	checkoutUC createCheckoutSessionUseCase
	portalUC   createPortalSessionUseCase
	logger     logger.Interface
}

func NewBillingHandler(checkoutUC createCheckoutSessionUseCase, portalUC createPortalSessionUseCase, logger logger.Interface) *BillingHandler {
	return &BillingHandler{
		checkoutUC: checkoutUC,
		portalUC:   portalUC,
		logger:     logger,
	}
}

// CreateCheckoutSession accepts an empty body for the default subscription checkout.
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var cmd usecases.CreateCheckoutSessionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warnw("invalid request body for checkout session", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.UserID = userID

	result, err := h.checkoutUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	result, err := h.portalUC.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}
