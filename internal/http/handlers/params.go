package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
	"mcacrm/internal/services"
	"mcacrm/internal/validate"
)

// pathID parses a positive integer path parameter.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validate.Errors{{Field: name, Message: "value is not a valid integer", Type: "type_error"}}
	}
	return id, nil
}

func badQuery(name, want string) error {
	return services.Rule("Invalid query parameter %s: expected %s", name, want)
}

func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badQuery(name, "an integer")
	}
	return n, nil
}

func queryID(c *fiber.Ctx, name string) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, badQuery(name, "a positive integer")
	}
	return n, nil
}

func queryBool(c *fiber.Ctx, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badQuery(name, "true or false")
	}
	return &b, nil
}

func queryFlag(c *fiber.Ctx, name string, def bool) (bool, error) {
	b, err := queryBool(c, name)
	if err != nil || b == nil {
		return def, err
	}
	return *b, nil
}

func queryDate(c *fiber.Ctx, name string) (*domain.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, badQuery(name, "a YYYY-MM-DD date")
	}
	return &d, nil
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseInstant(raw)
	if err != nil {
		return nil, badQuery(name, "a date or RFC 3339 timestamp")
	}
	return &t.Time, nil
}

func queryDecimal(c *fiber.Ctx, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, badQuery(name, "a number")
	}
	return &d, nil
}

// paging reads skip and limit with the usual bounds.
func paging(c *fiber.Ctx) (skip, limit int, err error) {
	if skip, err = queryInt(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(c, "limit", 100); err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, services.Rule("skip must be >= 0")
	}
	if limit < 1 || limit > 1000 {
		return 0, 0, services.Rule("limit must be between 1 and 1000")
	}
	return skip, limit, nil
}

// bind decodes the JSON body; services validate the result.
func bind(c *fiber.Ctx, dst any) error {
	return validate.Decode(c.Body(), dst)
}
