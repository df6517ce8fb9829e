package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "mcacrm/internal/log"
	"mcacrm/internal/services"
)

type BankingHandler struct {
	Accounts *services.BankAccountService
}

func (h *BankingHandler) ids(c *fiber.Ctx) (merchantID, id int64, err error) {
	if merchantID, err = pathID(c, "merchant_id"); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(c, "id"); err != nil {
		return 0, 0, err
	}
	return merchantID, id, nil
}

func (h *BankingHandler) Create(c *fiber.Ctx) error {
	merchantID, err := pathID(c, "merchant_id")
	if err != nil {
		return err
	}
	var in services.BankAccountCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	b, err := h.Accounts.Create(c.UserContext(), merchantID, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "bank_account.create", map[string]any{"bank_account_id": b.ID, "merchant_id": merchantID})
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (h *BankingHandler) List(c *fiber.Ctx) error {
	merchantID, err := pathID(c, "merchant_id")
	if err != nil {
		return err
	}
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	activeOnly, err := queryFlag(c, "active_only", false)
	if err != nil {
		return err
	}
	out, err := h.Accounts.List(c.UserContext(), merchantID, activeOnly, skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *BankingHandler) Get(c *fiber.Ctx) error {
	merchantID, id, err := h.ids(c)
	if err != nil {
		return err
	}
	b, err := h.Accounts.Get(c.UserContext(), merchantID, id)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (h *BankingHandler) GetByID(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Accounts.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (h *BankingHandler) Update(c *fiber.Ctx) error {
	merchantID, id, err := h.ids(c)
	if err != nil {
		return err
	}
	var in services.BankAccountUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	b, err := h.Accounts.Update(c.UserContext(), merchantID, id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "bank_account.update", map[string]any{"bank_account_id": id})
	return c.JSON(b)
}

func (h *BankingHandler) Delete(c *fiber.Ctx) error {
	merchantID, id, err := h.ids(c)
	if err != nil {
		return err
	}
	if err := h.Accounts.Delete(c.UserContext(), merchantID, id); err != nil {
		return err
	}
	applog.Audit(c, "bank_account.delete", map[string]any{"bank_account_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BankingHandler) SetPrimary(c *fiber.Ctx) error {
	merchantID, id, err := h.ids(c)
	if err != nil {
		return err
	}
	b, err := h.Accounts.SetPrimary(c.UserContext(), merchantID, id)
	if err != nil {
		return err
	}
	applog.Audit(c, "bank_account.set_primary", map[string]any{"bank_account_id": id, "merchant_id": merchantID})
	return c.JSON(b)
}
