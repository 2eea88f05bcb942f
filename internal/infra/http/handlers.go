package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edhedges/receive-kit/internal/domain"
	"github.com/edhedges/receive-kit/internal/usecase"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rejectionResponse carries the failing stage's error list. For the integrity
// stage that list is per-record results; for every other stage it is keyed
// validation errors.
type rejectionResponse struct {
	Errors any `json:"errors"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (s *Server) handleReceive(c *gin.Context) {
	var sub domain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	out, err := s.verifyUC.Execute(c.Request.Context(), sub)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("verification aborted")
		writeError(c, err)
		return
	}

	if !out.Accepted {
		var payload any = out.Errors
		if out.Stage == usecase.StageIntegrity {
			payload = out.Records
		}
		s.log.Info().
			Str("request_id", c.GetString(ctxRequestID)).
			Str("stage", string(out.Stage)).
			Str("token", sub.Token).
			Msg("submission rejected")
		c.JSON(http.StatusBadRequest, rejectionResponse{Errors: payload})
		return
	}

	s.log.Info().
		Str("request_id", c.GetString(ctxRequestID)).
		Str("token", out.Token).
		Msg("submission accepted")
	c.JSON(http.StatusOK, successResponse{Success: true, Token: out.Token})
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrReceiptNotFound):
		status, code = http.StatusBadGateway, "RECEIPT_NOT_FOUND"
	case errors.Is(err, domain.ErrChainUnavailable):
		status, code = http.StatusBadGateway, "CHAIN_UNAVAILABLE"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
