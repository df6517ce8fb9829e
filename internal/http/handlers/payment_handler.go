package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mcacrm/internal/domain"
	applog "mcacrm/internal/log"
	"mcacrm/internal/metrics"
	"mcacrm/internal/services"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	var in services.PaymentCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Payments.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	metrics.RecordPayment(p.PaymentType)
	applog.Audit(c, "payment.create", map[string]any{"payment_id": p.ID, "deal_id": p.DealID, "amount": p.Amount.String()})
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PaymentHandler) List(c *fiber.Ctx) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	f := domain.PaymentFilter{PaymentType: strings.TrimSpace(c.Query("type", c.Query("payment_type"))), Skip: skip, Limit: limit}
	if f.DealID, err = queryID(c, "deal_id"); err != nil {
		return err
	}
	if f.DateFrom, err = queryTime(c, "date_from"); err != nil {
		return err
	}
	if f.DateTo, err = queryTime(c, "date_to"); err != nil {
		return err
	}
	if f.Bounced, err = queryBool(c, "bounced"); err != nil {
		return err
	}
	if f.MinAmount, err = queryDecimal(c, "min_amount"); err != nil {
		return err
	}
	if f.MaxAmount, err = queryDecimal(c, "max_amount"); err != nil {
		return err
	}
	out, err := h.Payments.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *PaymentHandler) Recent(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", 7)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	out, err := h.Payments.Recent(c.UserContext(), days, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *PaymentHandler) Bounced(c *fiber.Ctx) error {
	dealID, err := queryID(c, "deal_id")
	if err != nil {
		return err
	}
	out, err := h.Payments.Bounced(c.UserContext(), dealID)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *PaymentHandler) StatsByType(c *fiber.Ctx) error {
	dealID, err := queryID(c, "deal_id")
	if err != nil {
		return err
	}
	out, err := h.Payments.StatsByType(c.UserContext(), dealID)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Payments.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *PaymentHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.PaymentUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Payments.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "payment.update", map[string]any{"payment_id": id, "deal_id": p.DealID})
	return c.JSON(p)
}

func (h *PaymentHandler) Bounce(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	bounced, err := queryFlag(c, "bounced", true)
	if err != nil {
		return err
	}
	p, err := h.Payments.MarkBounced(c.UserContext(), id, bounced, c.Query("notes"))
	if err != nil {
		return err
	}
	applog.Audit(c, "payment.bounce", map[string]any{"payment_id": id, "bounced": bounced})
	return c.JSON(p)
}

func (h *PaymentHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Payments.Delete(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "payment.delete", map[string]any{"payment_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PaymentHandler) ByDeal(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Payments.ByDeal(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *PaymentHandler) DealSummary(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.Payments.Summary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s)
}
