package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	. "tasktracker/internal/adapter/http/helper"
	. "tasktracker/internal/adapter/http/validation"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/util"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
)

type AuthHandler struct {
	svc    port.AuthService
	Logger *config.LokiLogger
}

func NewAuthHandler(svc port.AuthService, logger *config.LokiLogger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		Logger: logger,
	}
}

// Register godoc
// @Summary      Register an account
// @Description  Creates an account and opens its first session
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      request.RegisterRequest  true  "Account data"
// @Success      201   {object}  response.SuccessResponse{data=response.AuthResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Failure      409   {object}  response.ErrorResponse
// @Router       /auth/register [post]
func (a *AuthHandler) Register(c *gin.Context) {
	params, err := util.BindJSON[request.RegisterRequest](c)
	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	result, err := a.svc.Register(c.Request.Context(), params)
	if err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	SendSuccess(c, http.StatusCreated, response.NewAuthResponse(result))
}

// Login godoc
// @Summary      Log in
// @Description  Verifies credentials and returns an access token and a refresh token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      request.LoginRequest  true  "Credentials"
// @Success      200   {object}  response.SuccessResponse{data=response.AuthResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Failure      401   {object}  response.ErrorResponse
// @Router       /auth/login [post]
func (a *AuthHandler) Login(c *gin.Context) {
	params, err := util.BindJSON[request.LoginRequest](c)
	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	result, err := a.svc.Authenticate(c.Request.Context(), params)
	if err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewAuthResponse(result))
}

// Refresh godoc
// @Summary      Rotate a refresh token
// @Description  Revokes the presented refresh token and issues a new token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      request.RefreshTokenRequest  true  "Refresh token"
// @Success      200   {object}  response.SuccessResponse{data=response.AuthResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Failure      401   {object}  response.ErrorResponse
// @Router       /auth/refresh [post]
func (a *AuthHandler) Refresh(c *gin.Context) {
	params, err := util.BindJSON[request.RefreshTokenRequest](c)
	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	result, err := a.svc.RotateRefreshToken(c.Request.Context(), params.RefreshToken)
	if err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewAuthResponse(result))
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the presented refresh token of the current account
// @Tags         Auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  request.RefreshTokenRequest  true  "Refresh token"
// @Success      204
// @Failure      400   {object}  response.ErrorResponse
// @Failure      401   {object}  response.ErrorResponse
// @Router       /auth/logout [post]
func (a *AuthHandler) Logout(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	params, err := util.BindJSON[request.RefreshTokenRequest](c)
	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	if err := a.svc.RevokeRefreshToken(c.Request.Context(), accountID, params.RefreshToken); err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
