package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "mcacrm/internal/log"
	"mcacrm/internal/services"
)

type OfferHandler struct {
	Offers *services.OfferService
}

func (h *OfferHandler) Create(c *fiber.Ctx) error {
	var in services.OfferCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	o, err := h.Offers.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "offer.create", map[string]any{"offer_id": o.ID, "merchant_id": o.MerchantID})
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *OfferHandler) List(c *fiber.Ctx) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	includeDeleted, err := queryFlag(c, "include_deleted", false)
	if err != nil {
		return err
	}
	out, err := h.Offers.List(c.UserContext(), skip, limit, includeDeleted)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *OfferHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Offers.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(o)
}

func (h *OfferHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.OfferUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	o, err := h.Offers.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "offer.update", map[string]any{"offer_id": id})
	return c.JSON(o)
}

func (h *OfferHandler) SetStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	status := strings.ToLower(c.Params("status"))
	o, err := h.Offers.SetStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	applog.Audit(c, "offer.status", map[string]any{"offer_id": id, "status": o.Status})
	return c.JSON(fiber.Map{"message": "Offer status updated to " + o.Status, "offer_id": id, "offer": o})
}

func (h *OfferHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Offers.Delete(c.UserContext(), id, strings.TrimSpace(c.Query("deleted_by"))); err != nil {
		return err
	}
	applog.Audit(c, "offer.delete", map[string]any{"offer_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OfferHandler) Restore(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Offers.Restore(c.UserContext(), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "offer.restore", map[string]any{"offer_id": id})
	return c.JSON(o)
}

func (h *OfferHandler) ByMerchant(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Offers.ByMerchant(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *OfferHandler) Selected(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Offers.Selected(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(o)
}
