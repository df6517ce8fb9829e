package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type fundedDeal struct {
	merchant, account, offer, deal int64
}

// fundDeal creates a merchant with a bank account and funds a 10000 x 1.3 deal.
func fundDeal(t *testing.T, app *fiber.App) fundedDeal {
	t.Helper()
	var f fundedDeal
	m := call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{"company_name": "Acme Bakery"})
	mustStatus(t, m, http.StatusCreated)
	f.merchant = id(t, m.object(t))

	b := call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/merchants/%d/banking", f.merchant), map[string]any{
		"account_name": "Operating", "account_number": "1234", "routing_number": "021000021",
		"bank_name": "First Bank", "account_type": "checking", "is_primary": true,
	})
	mustStatus(t, b, http.StatusCreated)
	f.account = id(t, b.object(t))

	o := call(t, app, http.MethodPost, "/api/v1/offers", map[string]any{
		"merchant_id": f.merchant, "advance": 10000, "factor": 1.3, "number_of_periods": 100, "status": "selected",
	})
	mustStatus(t, o, http.StatusCreated)
	f.offer = id(t, o.object(t))

	d := call(t, app, http.MethodPost, "/api/v1/deals", map[string]any{
		"merchant_id": f.merchant, "offer_id": f.offer, "bank_account_id": f.account,
		"funding_date": "2025-01-02", "first_payment_date": "2025-01-03",
	})
	mustStatus(t, d, http.StatusCreated)
	f.deal = id(t, d.object(t))
	return f
}

func TestPaymentKeysAndDateForms(t *testing.T) {
	app, _ := newTestApp(t)
	f := fundDeal(t, app)

	dateOnly := call(t, app, http.MethodPost, "/api/v1/payments", map[string]any{
		"deal_id": f.deal, "date": "2025-01-06", "amount": 130, "type": "ACH",
	})
	mustStatus(t, dateOnly, http.StatusCreated)
	got := dateOnly.object(t)
	if got["date"] != "2025-01-06T00:00:00Z" || got["type"] != "ACH" {
		t.Fatalf("payment keys: %s", dateOnly.Raw)
	}

	alias := call(t, app, http.MethodPost, "/api/v1/payments", map[string]any{
		"deal_id": f.deal, "payment_date": "2025-01-05T12:00:00Z", "amount": 130, "payment_type": "Wire",
	})
	mustStatus(t, alias, http.StatusCreated)
	if alias.object(t)["type"] != "Wire" {
		t.Fatalf("aliased type: %s", alias.Raw)
	}

	wires := call(t, app, http.MethodGet, "/api/v1/payments?type=Wire", nil)
	mustStatus(t, wires, http.StatusOK)
	if len(wires.list(t)) != 1 {
		t.Fatalf("type filter: %s", wires.Raw)
	}
	since := call(t, app, http.MethodGet, "/api/v1/payments?date_from=2025-01-06", nil)
	mustStatus(t, since, http.StatusOK)
	if len(since.list(t)) != 1 {
		t.Fatalf("date-only filter: %s", since.Raw)
	}

	bad := call(t, app, http.MethodPost, "/api/v1/payments", map[string]any{
		"deal_id": f.deal, "date": "01/06/2025", "amount": 130, "type": "ACH",
	})
	mustStatus(t, bad, http.StatusUnprocessableEntity)
	mustStatus(t, call(t, app, http.MethodGet, "/api/v1/payments?date_from=yesterday", nil), http.StatusBadRequest)

	upd := call(t, app, http.MethodPut, fmt.Sprintf("/api/v1/payments/%d", id(t, got)), map[string]any{"payment_type": "Check"})
	mustStatus(t, upd, http.StatusOK)
	if upd.object(t)["type"] != "Check" {
		t.Fatalf("update via alias: %s", upd.Raw)
	}
}

func TestRenewalInfoUpdateRecomputesDealTotals(t *testing.T) {
	app, _ := newTestApp(t)
	f := fundDeal(t, app)

	o2 := call(t, app, http.MethodPost, "/api/v1/offers", map[string]any{
		"merchant_id": f.merchant, "advance": 20000, "factor": 1.25, "number_of_periods": 120, "status": "selected",
	})
	mustStatus(t, o2, http.StatusCreated)
	rn := call(t, app, http.MethodPost, "/api/v1/renewals/deals", map[string]any{
		"merchant_id": f.merchant, "offer_id": id(t, o2.object(t)),
		"funding_date": "2025-06-02", "first_payment_date": "2025-06-03",
		"old_deals": []map[string]any{{"old_deal_id": f.deal, "transfer_balance": 5000}},
	})
	mustStatus(t, rn, http.StatusCreated)
	nid := id(t, rn.object(t))

	infos := call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/renewals/deals/%d/renewal-info", nid), nil)
	mustStatus(t, infos, http.StatusOK)
	list := infos.list(t)
	if len(list) != 1 {
		t.Fatalf("renewal info: %s", infos.Raw)
	}
	infoID := id(t, list[0])

	upd := call(t, app, http.MethodPut, fmt.Sprintf("/api/v1/renewals/info/%d", infoID), map[string]any{
		"transfer_balance": 7000, "notes": " payoff confirmed ",
	})
	mustStatus(t, upd, http.StatusOK)
	info := upd.object(t)
	if info["transfer_balance"].(float64) != 7000 || info["notes"] != "payoff confirmed" {
		t.Fatalf("info update: %s", upd.Raw)
	}

	deal := call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/deals/%d", nid), nil).object(t)
	if deal["total_transfer_balance"].(float64) != 7000 || deal["net_cash_to_merchant"].(float64) != 13000 {
		t.Fatalf("deal totals after info update: %v / %v", deal["total_transfer_balance"], deal["net_cash_to_merchant"])
	}

	notesOnly := call(t, app, http.MethodPut, fmt.Sprintf("/api/v1/renewals/info/%d", infoID), map[string]any{"notes": "final"})
	mustStatus(t, notesOnly, http.StatusOK)
	same := call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/deals/%d", nid), nil).object(t)
	if same["net_cash_to_merchant"].(float64) != 13000 {
		t.Fatalf("notes-only update moved totals: %v", same["net_cash_to_merchant"])
	}

	mustStatus(t, call(t, app, http.MethodPut, "/api/v1/renewals/info/9999", map[string]any{"notes": "x"}), http.StatusNotFound)
}

func TestOfferDeleteAndRestore(t *testing.T) {
	app, _ := newTestApp(t)
	f := fundDeal(t, app)

	// funded offer
	mustStatus(t, call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/offers/%d", f.offer), nil), http.StatusBadRequest)

	sel := call(t, app, http.MethodPost, "/api/v1/offers", map[string]any{
		"merchant_id": f.merchant, "advance": 5000, "factor": 1.2, "number_of_periods": 50, "status": "selected",
	})
	mustStatus(t, sel, http.StatusCreated)
	refused := call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/offers/%d", id(t, sel.object(t))), nil)
	mustStatus(t, refused, http.StatusBadRequest)

	draft := call(t, app, http.MethodPost, "/api/v1/offers", map[string]any{
		"merchant_id": f.merchant, "advance": 5000, "factor": 1.2, "payment_amount": 120,
	})
	mustStatus(t, draft, http.StatusCreated)
	did := id(t, draft.object(t))

	mustStatus(t, call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/offers/%d/restore", did), nil), http.StatusNotFound)
	mustStatus(t, call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/offers/%d?deleted_by=ops", did), nil), http.StatusNoContent)
	mustStatus(t, call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/offers/%d", did), nil), http.StatusNotFound)

	back := call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/offers/%d/restore", did), nil)
	mustStatus(t, back, http.StatusOK)
	if id(t, back.object(t)) != did {
		t.Fatalf("restore: %s", back.Raw)
	}
	mustStatus(t, call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/offers/%d", did), nil), http.StatusOK)
	mustStatus(t, call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/offers/%d/restore", did), nil), http.StatusNotFound)
}

func TestBankAccountDeleteWhileInUse(t *testing.T) {
	app, _ := newTestApp(t)
	f := fundDeal(t, app)

	spare := call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/merchants/%d/banking", f.merchant), map[string]any{
		"account_name": "Reserve", "account_number": "5678", "routing_number": "021000021",
		"bank_name": "First Bank", "account_type": "savings",
	})
	mustStatus(t, spare, http.StatusCreated)

	used := call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/merchants/%d/banking/%d", f.merchant, f.account), nil)
	mustStatus(t, used, http.StatusBadRequest)
	if used.object(t)["detail"] != "Cannot delete bank account used by a deal" {
		t.Fatalf("detail: %s", used.Raw)
	}
	mustStatus(t, call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/banking/%d", f.account), nil), http.StatusOK)

	sid := id(t, spare.object(t))
	mustStatus(t, call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/merchants/%d/banking/%d", f.merchant, sid), nil), http.StatusNoContent)
	mustStatus(t, call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/banking/%d", sid), nil), http.StatusNotFound)
}

func TestOwnershipSummary(t *testing.T) {
	app, _ := newTestApp(t)
	m := call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{"company_name": "Acme Bakery"})
	mustStatus(t, m, http.StatusCreated)
	mid := id(t, m.object(t))

	empty := call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/merchants/%d/principals/ownership-summary", mid), nil)
	mustStatus(t, empty, http.StatusOK)
	if s := empty.object(t); s["principal_count"].(float64) != 0 || s["primary_contact"] != nil {
		t.Fatalf("empty summary: %s", empty.Raw)
	}

	dana := call(t, app, http.MethodPost, "/api/v1/principals", map[string]any{
		"merchant_id": mid, "first_name": "Dana", "last_name": "Reyes", "ssn": "234-56-7890",
		"date_of_birth": "1980-05-01", "ownership_percentage": 60, "is_primary_contact": true,
		"email": "dana@acmebakery.com", "phone": "2145550100",
	})
	mustStatus(t, dana, http.StatusCreated)
	mustStatus(t, call(t, app, http.MethodPost, "/api/v1/principals", map[string]any{
		"merchant_id": mid, "first_name": "Lee", "last_name": "Park", "ssn": "345-67-8901",
		"date_of_birth": "1975-01-01", "ownership_percentage": 40, "is_guarantor": false,
	}), http.StatusCreated)

	r := call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/merchants/%d/principals/ownership-summary", mid), nil)
	mustStatus(t, r, http.StatusOK)
	s := r.object(t)
	if s["merchant_id"].(float64) != float64(mid) || s["principal_count"].(float64) != 2 || s["guarantor_count"].(float64) != 1 {
		t.Fatalf("counts: %s", r.Raw)
	}
	if s["total_ownership_percentage"].(float64) != 100 || s["ownership_allocated"] != true {
		t.Fatalf("ownership: %s", r.Raw)
	}
	primary, ok := s["primary_contact"].(map[string]any)
	if !ok || primary["name"] != "Dana Reyes" || primary["id"].(float64) != float64(id(t, dana.object(t))) {
		t.Fatalf("primary contact: %s", r.Raw)
	}
	if len(s["principals"].([]any)) != 2 {
		t.Fatalf("principals: %s", r.Raw)
	}

	mustStatus(t, call(t, app, http.MethodGet, "/api/v1/merchants/9999/principals/ownership-summary", nil), http.StatusNotFound)
}
