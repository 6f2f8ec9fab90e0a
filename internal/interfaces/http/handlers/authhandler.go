package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/application/user/usecases"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
	"github.com/kursio/kursio/internal/shared/logger"
	"github.com/kursio/kursio/internal/shared/utils"
)

type AuthHandler struct {
	registerUC   registerUseCase
	loginUC      loginUseCase
	getProfileUC getProfileUseCase
	logger       logger.Interface
}

func NewAuthHandler(
	registerUC registerUseCase,
	loginUC loginUseCase,
	getProfileUC getProfileUseCase,
	logger logger.Interface,
) *AuthHandler {
	return &AuthHandler{
		registerUC:   registerUC,
		loginUC:      loginUC,
		getProfileUC: getProfileUC,
		logger:       logger,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var cmd usecases.RegisterWithPasswordCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.logger.Warnw("invalid request body for register", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.registerUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, user, "registration successful")
}

// Login verifies credentials, refreshes the subscription status and issues a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var cmd usecases.LoginWithPasswordCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.logger.Warnw("invalid request body for login", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.loginUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "login successful", result)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	user, err := h.getProfileUC.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", user)
}
