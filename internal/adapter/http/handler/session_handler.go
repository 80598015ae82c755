package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	. "tasktracker/internal/adapter/http/helper"
	. "tasktracker/internal/adapter/http/validation"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/util"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
)

// RefreshTokenHeader lets a client say which session it is using so the
// listing can flag it as current.
const RefreshTokenHeader = "X-Refresh-Token"

type SessionHandler struct {
	svc    port.SessionService
	Logger *config.LokiLogger
}

func NewSessionHandler(svc port.SessionService, logger *config.LokiLogger) *SessionHandler {
	return &SessionHandler{
		svc:    svc,
		Logger: logger,
	}
}

// ListSessions godoc
// @Summary      List active sessions
// @Description  Active refresh tokens of the current account, newest first
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Param        X-Refresh-Token  header    string  false  "Refresh token of the calling client"
// @Success      200              {object}  response.SuccessResponse{data=[]response.SessionResponse}
// @Failure      401              {object}  response.ErrorResponse
// @Router       /sessions [get]
func (s *SessionHandler) ListSessions(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	tokens, err := s.svc.ListActive(c.Request.Context(), accountID)
	if err != nil {
		SendDomainError(c, s.Logger, err)
		return
	}

	currentHash := ""
	if raw := c.GetHeader(RefreshTokenHeader); raw != "" {
		currentHash = domain.HashToken(raw)
	}

	sessions := make([]response.SessionResponse, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, response.NewSessionResponse(t, currentHash))
	}

	SendSuccess(c, http.StatusOK, sessions)
}

// RevokeSession godoc
// @Summary      Revoke a session
// @Tags         Sessions
// @Security     BearerAuth
// @Param        id   path  int  true  "Session id"
// @Success      204
// @Failure      400  {object}  response.ErrorResponse
// @Failure      403  {object}  response.ErrorResponse
// @Router       /sessions/{id} [delete]
func (s *SessionHandler) RevokeSession(c *gin.Context) {
	accountID, ok := auth.AccountID(c)
	if !ok {
		SendUnauthorizedError(c, "Unauthorized request")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		SendBadRequestError(c, "id", "Invalid session id")
		return
	}

	if err := s.svc.RevokeByID(c.Request.Context(), accountID, id); err != nil {
		SendDomainError(c, s.Logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokeOtherSessions godoc
// @Summary      Revoke every other session
// @Description  Revokes all active sessions of the current account except the presented one
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      request.RefreshTokenRequest  true  "Refresh token to keep"
// @Success      200   {object}  response.SuccessResponse{data=response.RevokedResponse}
// @Failure      400   {object}  response.ErrorResponse
// @Router       /sessions/revoke-others [post]
func (s *SessionHandler) RevokeOtherSessions(c *gin.Context) {
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

	n, err := s.svc.RevokeAllExceptCurrent(c.Request.Context(), accountID, params.RefreshToken)
	if err != nil {
		SendDomainError(c, s.Logger, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.RevokedResponse{Revoked: n})
}
