package httpapi

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/pws-history/internal/common"
	"github.com/i474232898/pws-history/internal/weather"
)

// RangeError carries how many rows a failed range request had gathered.
type RangeError struct {
	Err     error
	Partial int
}

func (e *RangeError) Error() string {
	return e.Err.Error()
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", weather.ErrValidation, err)
}

// StatusFor maps an error class onto the HTTP status returned to clients.
func StatusFor(class weather.ErrorClass) int {
	switch class {
	case weather.ClassValidation:
		return fiber.StatusBadRequest
	case weather.ClassUpstreamHTTP, weather.ClassMalformedResponse:
		return fiber.StatusBadGateway
	case weather.ClassNetwork:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"error": message, "class": class}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	class := weather.ClassOf(err)
	body := fiber.Map{
		"error": err.Error(),
		"class": class,
	}

	var rangeErr *RangeError
	if errors.As(err, &rangeErr) {
		body["partialCount"] = rangeErr.Partial
	}
	var dayErr *weather.DayError
	if errors.As(err, &dayErr) {
		body["failedDate"] = common.CompactDate(dayErr.Date)
	}
	var httpErr *weather.UpstreamHTTPError
	if errors.As(err, &httpErr) {
		body["upstreamStatus"] = httpErr.StatusCode
	}

	return c.Status(StatusFor(class)).JSON(body)
}
