package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docinsight-backend/internal/llm"
	"github.com/yungbote/docinsight-backend/internal/platform/apierr"
	"github.com/yungbote/docinsight-backend/internal/session"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps service and model-caller errors onto the envelope.
// Anything unrecognised becomes a 500 without leaking the cause.
func RespondAPIError(c *gin.Context, err error) {
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		RespondError(c, status, ae.Code, ae)
		return
	}
	status, code := Classify(err)
	if status == http.StatusInternalServerError && code == "internal_error" {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New("internal server error"))
		return
	}
	RespondError(c, status, code, err)
}

// Classify returns the status and code for a non-apierr error.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, llm.ErrConfiguration):
		return http.StatusInternalServerError, "model_not_configured"
	case errors.Is(err, llm.ErrTimeout):
		return http.StatusGatewayTimeout, "model_timeout"
	case errors.Is(err, llm.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, llm.ErrBadRequest):
		return http.StatusBadGateway, "model_bad_response"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrOwnerMismatch):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, session.ErrCorruptSession):
		return http.StatusInternalServerError, "corrupt_session"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
