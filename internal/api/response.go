package api

import (
	"errors"
	"net/http"
	"os"

	"ecommerce-backend/internal/entity"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
}

func success(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func paginated(c echo.Context, message string, data interface{}, pagination *entity.Pagination) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data, Pagination: pagination})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

// errorStatus maps a service error to its HTTP status and client message.
func errorStatus(err error) (int, string) {
	var (
		validation   *entity.ValidationError
		notFound     *entity.NotFoundError
		state        *entity.InvalidStateError
		stock        *entity.InsufficientStockError
		unavailable  *entity.ProductUnavailableError
		unauthorized *entity.UnauthorizedError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &state),
		errors.As(err, &stock), errors.As(err, &unavailable):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrEmptyCart):
		return http.StatusBadRequest, "Your cart is empty"
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, entity.ErrDuplicateRequest):
		return http.StatusConflict, "Duplicate request: this order is already being processed"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// fromError renders err through the envelope; validation failures also list the offending field.
func fromError(c echo.Context, err error) error {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msgf("%s %s failed", c.Request().Method, c.Path())
	}

	body := Response{Success: false, Message: message}
	var validation *entity.ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		body.Errors = map[string]string{validation.Field: validation.Message}
	}
	return c.JSON(status, body)
}

// HTTPErrorHandler renders framework errors (unknown routes, bad methods, middleware rejections) in the envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = fromError(c, err)
		return
	}

	message := http.StatusText(he.Code)
	switch he.Code {
	case http.StatusNotFound:
		message = "Endpoint not found"
	case http.StatusMethodNotAllowed:
		message = "Method not allowed"
	case http.StatusInternalServerError:
		logger.Error().Err(err).Msgf("%s %s failed", c.Request().Method, c.Path())
		message = "Internal server error"
	default:
		if m, ok := he.Message.(string); ok && m != "" {
			message = m
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = fail(c, he.Code, message)
}
