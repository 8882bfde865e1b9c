package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Kind      apperrors.Kind     `json:"kind,omitempty"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable"`
	Conflict  *model.Appointment `json:"conflict,omitempty"`
}

func statusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindCycleBlocked:
		return http.StatusPaymentRequired
	case apperrors.KindConflictWarning, apperrors.KindDuplicateBillingRecord:
		return http.StatusConflict
	case apperrors.KindSlotUnavailable, apperrors.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperrors.KindPersistenceFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := errorBody{Message: http.StatusText(status)}

		var (
			appErr  *apperrors.Error
			httpErr *echo.HTTPError
		)
		switch {
		case errors.As(err, &appErr):
			status = statusOf(appErr.Kind)
			body = errorBody{
				Kind:      appErr.Kind,
				Message:   appErr.Error(),
				Retryable: appErr.Retryable(),
				Conflict:  appErr.Conflict,
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(status)
			}
		default:
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}
