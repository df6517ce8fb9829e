package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mcacrm/internal/domain"
	applog "mcacrm/internal/log"
	"mcacrm/internal/metrics"
	"mcacrm/internal/services"
)

type RenewalHandler struct {
	Renewals *services.RenewalService
}

func (h *RenewalHandler) Create(c *fiber.Ctx) error {
	var in services.RenewalCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.Renewals.CreateRenewalDeal(c.UserContext(), in)
	if err != nil {
		return err
	}
	metrics.RecordDealFunded(true)
	old := make([]int64, 0, len(in.OldDeals))
	for _, od := range in.OldDeals {
		old = append(old, od.OldDealID)
	}
	applog.Audit(c, "renewal.create", map[string]any{"deal_id": d.ID, "deal_number": d.DealNumber, "old_deal_ids": old})
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *RenewalHandler) GetInfo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ri, err := h.Renewals.GetInfo(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ri)
}

func (h *RenewalHandler) UpdateInfo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.RenewalInfoUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	ri, err := h.Renewals.UpdateInfo(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "renewal.info_update", map[string]any{"renewal_info_id": id})
	return c.JSON(ri)
}

func (h *RenewalHandler) InfoByDeal(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Renewals.InfoByDeal(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *RenewalHandler) OldDeals(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Renewals.OldDeals(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *RenewalHandler) Summary(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.Renewals.Summary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *RenewalHandler) Chain(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ch, err := h.Renewals.Chain(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

func (h *RenewalHandler) RenewedInto(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.Renewals.RenewedInto(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"was_renewed": t != nil, "renewal_deal": t})
}

func (h *RenewalHandler) Reverse(c *fiber.Ctx) error {
	oldID, err := queryID(c, "old_deal_id")
	if err != nil {
		return err
	}
	newID, err := queryID(c, "new_deal_id")
	if err != nil {
		return err
	}
	if oldID == 0 || newID == 0 {
		return services.Rule("old_deal_id and new_deal_id are required")
	}
	if err := h.Renewals.Reverse(c.UserContext(), oldID, newID); err != nil {
		return err
	}
	applog.Audit(c, "renewal.reverse", map[string]any{"old_deal_id": oldID, "new_deal_id": newID})
	return c.JSON(fiber.Map{"message": "Renewal reversed successfully"})
}

func (h *RenewalHandler) MerchantDeals(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Renewals.MerchantRenewalDeals(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *RenewalHandler) Relationships(c *fiber.Ctx) error {
	var (
		f   domain.RelationshipFilter
		err error
	)
	if f.OldDealID, err = queryID(c, "old_deal_id"); err != nil {
		return err
	}
	if f.NewDealID, err = queryID(c, "new_deal_id"); err != nil {
		return err
	}
	f.Status = strings.ToLower(strings.TrimSpace(c.Query("status")))
	out, err := h.Renewals.Relationships(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
