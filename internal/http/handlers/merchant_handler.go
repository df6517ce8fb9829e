package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mcacrm/internal/domain"
	applog "mcacrm/internal/log"
	"mcacrm/internal/services"
)

type MerchantHandler struct {
	Merchants *services.MerchantService
}

func (h *MerchantHandler) Create(c *fiber.Ctx) error {
	var in services.MerchantCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	m, err := h.Merchants.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "merchant.create", map[string]any{"merchant_id": m.ID})
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (h *MerchantHandler) List(c *fiber.Ctx) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	includeDeleted, err := queryFlag(c, "include_deleted", false)
	if err != nil {
		return err
	}
	f := domain.MerchantFilter{
		Status:         strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Search:         strings.TrimSpace(c.Query("search")),
		SortBy:         c.Query("sort_by", "created_at"),
		SortDesc:       !strings.EqualFold(c.Query("sort_order", "desc"), "asc"),
		IncludeDeleted: includeDeleted,
		Skip:           skip,
		Limit:          limit,
	}
	items, total, err := h.Merchants.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"merchants": items,
		"total":     total,
		"page":      skip/limit + 1,
		"per_page":  limit,
	})
}

func (h *MerchantHandler) Stats(c *fiber.Ctx) error {
	s, err := h.Merchants.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *MerchantHandler) ByFEIN(c *fiber.Ctx) error {
	m, err := h.Merchants.GetByFEIN(c.UserContext(), c.Params("fein"))
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *MerchantHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Merchants.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *MerchantHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.MerchantUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	m, err := h.Merchants.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "merchant.update", map[string]any{"merchant_id": id})
	return c.JSON(m)
}

func (h *MerchantHandler) SetStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	status := c.Query("status")
	if status == "" {
		return services.Rule("status query parameter is required")
	}
	m, err := h.Merchants.SetStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	applog.Audit(c, "merchant.status", map[string]any{"merchant_id": id, "status": m.Status})
	return c.JSON(m)
}

func (h *MerchantHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Merchants.Delete(c.UserContext(), id, strings.TrimSpace(c.Query("deleted_by"))); err != nil {
		return err
	}
	applog.Audit(c, "merchant.delete", map[string]any{"merchant_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
