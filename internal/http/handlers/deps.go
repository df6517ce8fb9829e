package handlers

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"mcacrm/internal/config"
	"mcacrm/internal/secure"
	"mcacrm/internal/services"
)

type Deps struct {
	MerchantHandler  *MerchantHandler
	PrincipalHandler *PrincipalHandler
	BankingHandler   *BankingHandler
	OfferHandler     *OfferHandler
	DealHandler      *DealHandler
	PaymentHandler   *PaymentHandler
	RenewalHandler   *RenewalHandler
	PageHandler      *PageHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) (*Deps, error) {
	sealer, err := secure.NewSealer(cfg.SSNKey)
	if err != nil {
		return nil, fmt.Errorf("ssn sealer: %w", err)
	}
	merchantSvc := services.NewMerchantService(db)
	principalSvc := services.NewPrincipalService(db, sealer)
	accountSvc := services.NewBankAccountService(db)
	offerSvc := services.NewOfferService(db)
	dealSvc := services.NewDealService(db)
	paymentSvc := services.NewPaymentService(db)
	renewalSvc := services.NewRenewalService(db)

	return &Deps{
		MerchantHandler:  &MerchantHandler{Merchants: merchantSvc},
		PrincipalHandler: &PrincipalHandler{Principals: principalSvc},
		BankingHandler:   &BankingHandler{Accounts: accountSvc},
		OfferHandler:     &OfferHandler{Offers: offerSvc},
		DealHandler:      &DealHandler{Deals: dealSvc},
		PaymentHandler:   &PaymentHandler{Payments: paymentSvc},
		RenewalHandler:   &RenewalHandler{Renewals: renewalSvc},
		PageHandler:      &PageHandler{Merchants: merchantSvc, Deals: dealSvc},
	}, nil
}
