package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "mcacrm/internal/log"
	"mcacrm/internal/services"
)

type PrincipalHandler struct {
	Principals *services.PrincipalService
}

func (h *PrincipalHandler) Create(c *fiber.Ctx) error {
	var in services.PrincipalCreate
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Principals.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "principal.create", map[string]any{"principal_id": p.ID, "merchant_id": p.MerchantID})
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PrincipalHandler) List(c *fiber.Ctx) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	out, err := h.Principals.List(c.UserContext(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *PrincipalHandler) SearchBySSN(c *fiber.Ctx) error {
	out, err := h.Principals.SearchBySSN(c.UserContext(), c.Query("ssn"))
	if err != nil {
		return err
	}
	applog.Security(c, "principal.ssn_search", map[string]any{"matches": len(out)})
	return c.JSON(out)
}

func (h *PrincipalHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Principals.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// RevealSSN returns the unmasked SSN and leaves a security trail.
func (h *PrincipalHandler) RevealSSN(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ssn, err := h.Principals.RevealSSN(c.UserContext(), id)
	if err != nil {
		return err
	}
	applog.Security(c, "principal.ssn_reveal", map[string]any{"principal_id": id})
	return c.JSON(fiber.Map{"principal_id": id, "ssn": ssn})
}

func (h *PrincipalHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.PrincipalUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Principals.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "principal.update", map[string]any{"principal_id": id})
	return c.JSON(p)
}

func (h *PrincipalHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Principals.Delete(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "principal.delete", map[string]any{"principal_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PrincipalHandler) ByMerchant(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	onlyGuarantors, err := queryFlag(c, "only_guarantors", false)
	if err != nil {
		return err
	}
	out, err := h.Principals.ByMerchant(c.UserContext(), id, onlyGuarantors)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"principals": out, "total": len(out), "merchant_id": id})
}

func (h *PrincipalHandler) OwnershipSummary(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.Principals.OwnershipSummary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s)
}
