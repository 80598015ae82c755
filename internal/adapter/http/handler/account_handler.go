package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	. "tasktracker/internal/adapter/http/helper"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
)

type AccountHandler struct {
	svc    port.AccountService
	Logger *config.LokiLogger
}

func NewAccountHandler(svc port.AccountService, logger *config.LokiLogger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		Logger: logger,
	}
}

// Me godoc
// @Summary      Current account
// @Tags         Account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.SuccessResponse{data=response.AccountResponse}
// @Failure      401  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /me [get]
func (a *AccountHandler) Me(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	account, err := a.svc.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewAccountResponse(account))
}

// Deactivate godoc
// @Summary      Deactivate the current account
// @Description  Blocks future logins and revokes every session
// @Tags         Account
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  response.ErrorResponse
// @Router       /me/deactivate [post]
func (a *AccountHandler) Deactivate(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	if err := a.svc.Deactivate(c.Request.Context(), accountID); err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete godoc
// @Summary      Delete the current account
// @Description  Removes the account together with its tasks and sessions
// @Tags         Account
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  response.ErrorResponse
// @Router       /me [delete]
func (a *AccountHandler) Delete(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	if err := a.svc.Delete(c.Request.Context(), accountID); err != nil {
		SendDomainError(c, a.Logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

