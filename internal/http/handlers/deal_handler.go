package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mcacrm/internal/domain"
	applog "mcacrm/internal/log"
	"mcacrm/internal/metrics"
	"mcacrm/internal/services"
)

type DealHandler struct {
	Deals *services.DealService
}

func (h *DealHandler) Create(c *fiber.Ctx) error {
	var in services.DealCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.Deals.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	metrics.RecordDealFunded(false)
	applog.Audit(c, "deal.create", map[string]any{"deal_id": d.ID, "deal_number": d.DealNumber, "offer_id": d.OfferID})
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *DealHandler) List(c *fiber.Ctx) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	f := domain.DealFilter{Status: strings.ToLower(strings.TrimSpace(c.Query("status"))), Skip: skip, Limit: limit}
	if f.MerchantID, err = queryID(c, "merchant_id"); err != nil {
		return err
	}
	if f.FundingDateFrom, err = queryDate(c, "funding_date_from"); err != nil {
		return err
	}
	if f.FundingDateTo, err = queryDate(c, "funding_date_to"); err != nil {
		return err
	}
	if f.MinAmount, err = queryDecimal(c, "min_amount"); err != nil {
		return err
	}
	if f.MaxAmount, err = queryDecimal(c, "max_amount"); err != nil {
		return err
	}
	if f.InCollections, err = queryBool(c, "in_collections"); err != nil {
		return err
	}
	out, err := h.Deals.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *DealHandler) Active(c *fiber.Ctx) error {
	out, err := h.Deals.Active(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *DealHandler) Summary(c *fiber.Ctx) error {
	s, err := h.Deals.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *DealHandler) ByNumber(c *fiber.Ctx) error {
	d, err := h.Deals.GetByNumber(c.UserContext(), c.Params("deal_number"))
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *DealHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.Deals.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *DealHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.DealUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.Deals.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "deal.update", map[string]any{"deal_id": id, "status": d.Status})
	return c.JSON(d)
}

func (h *DealHandler) Balance(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.Deals.RecalculateBalance(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *DealHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Deals.Cancel(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "deal.cancel", map[string]any{"deal_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DealHandler) ByMerchant(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Deals.ByMerchant(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
