// Package handlers maps HTTP requests onto the domain services.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const defaultLimit = 10

// RequestValidator adapts validator/v10 to echo.
type RequestValidator struct {
	validate *validator.Validate
}

// NewValidator creates a RequestValidator.
func NewValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate checks the `validate` tags of i.
func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return apperr.BadUserInput("%s", err)
	}
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fmt.Sprintf("%s failed on %s", f.Field(), f.Tag())
	}
	return apperr.BadUserInput("%s", strings.Join(msgs, "; "))
}

// bind decodes the request into req and validates it.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.BadUserInput("invalid request payload")
	}
	return c.Validate(req)
}

// pagination reads the page and limit query parameters.
func pagination(c echo.Context) (services.Pagination, error) {
	p := services.Pagination{Page: 1, Limit: defaultLimit}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apperr.BadUserInput("page must be a number")
		}
		p.Page = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apperr.BadUserInput("limit must be a number")
		}
		p.Limit = n
	}
	return p, nil
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// ErrorHandler renders every error as {"error": {"kind", "message"}}.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		detail := errorDetail{}
		var (
			appErr  *apperr.Error
			httpErr *echo.HTTPError
		)
		switch {
		case errors.As(err, &appErr):
			detail.Kind, detail.Message = appErr.Kind, appErr.Message
		case errors.As(err, &httpErr):
			detail.Kind = kindOfStatus(httpErr.Code)
			detail.Message = fmt.Sprint(httpErr.Message)
		default:
			log.WithError(err).Error("request failed")
			internal := apperr.Translate(err)
			detail.Kind, detail.Message = internal.Kind, internal.Message
		}

		status := detail.Kind.HTTPStatus()
		if httpErr != nil && appErr == nil {
			status = httpErr.Code
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorBody{Error: detail})
		}
		if err != nil {
			log.WithError(err).Warn("writing error response")
		}
	}
}

func kindOfStatus(status int) apperr.Kind {
	switch status {
	case http.StatusUnauthorized:
		return apperr.KindUnauthenticated
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	}
	if status >= http.StatusInternalServerError {
		return apperr.KindInternal
	}
	return apperr.KindBadRequest
}
