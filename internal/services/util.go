package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

func formatted(s string, fn func(string) (string, bool)) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if v, ok := fn(s); ok {
		return v
	}
	return s
}

func mapPtr(p *string, fn func(string) string) {
	if p != nil {
		*p = fn(*p)
	}
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decOr(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if p == nil {
		return def
	}
	return *p
}

func firstErr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}
