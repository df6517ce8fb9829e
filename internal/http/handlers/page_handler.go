package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mcacrm/internal/domain"
	"mcacrm/internal/services"
)

// PageHandler serves the server-rendered pages.
type PageHandler struct {
	Merchants *services.MerchantService
	Deals     *services.DealService
}

func (h *PageHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.Merchants.Stats(c.UserContext())
	if err != nil {
		return err
	}
	summary, err := h.Deals.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return render(c, "dashboard", fiber.Map{
		"Title":    "Dashboard",
		"Stats":    stats,
		"Summary":  summary,
		"Statuses": domain.MerchantStatuses,
	}, "layout")
}

func (h *PageHandler) MerchantsPage(c *fiber.Ctx) error {
	data, err := h.table(c)
	if err != nil {
		return err
	}
	data["Title"] = "Merchants"
	return render(c, "merchants", data, "layout")
}

// MerchantsTable renders only the table body for partial refreshes.
func (h *PageHandler) MerchantsTable(c *fiber.Ctx) error {
	data, err := h.table(c)
	if err != nil {
		return err
	}
	return render(c, "merchants_table", data)
}

func (h *PageHandler) table(c *fiber.Ctx) (fiber.Map, error) {
	skip, limit, err := paging(c)
	if err != nil {
		return nil, err
	}
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	search := strings.TrimSpace(c.Query("search"))
	items, total, err := h.Merchants.List(c.UserContext(), domain.MerchantFilter{
		Status:   status,
		Search:   search,
		SortBy:   "created_at",
		SortDesc: true,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"Merchants": items,
		"Total":     total,
		"Status":    status,
		"Search":    search,
		"Statuses":  domain.MerchantStatuses,
	}, nil
}
