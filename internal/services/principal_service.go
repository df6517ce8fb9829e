package services

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
	applog "mcacrm/internal/log"
	"mcacrm/internal/repos"
	"mcacrm/internal/secure"
	"mcacrm/internal/validate"
)

type PrincipalCreate struct {
	MerchantID          int64            `json:"merchant_id" validate:"required,gt=0"`
	FirstName           string           `json:"first_name" validate:"required,min=1,max=100,personname"`
	LastName            string           `json:"last_name" validate:"required,min=1,max=100,personname"`
	SSN                 string           `json:"ssn" validate:"required,taxssn"`
	DateOfBirth         *domain.Date     `json:"date_of_birth" validate:"required,notfuture,adult"`
	OwnershipPercentage *decimal.Decimal `json:"ownership_percentage" validate:"omitnil,gte=0,lte=100"`
	HomeAddress         string           `json:"home_address" validate:"max=255"`
	City                string           `json:"city" validate:"max=100"`
	State               string           `json:"state" validate:"omitempty,usstate"`
	Zip                 string           `json:"zip" validate:"omitempty,zipcode"`
	Phone               string           `json:"phone" validate:"omitempty,e164phone"`
	Email               string           `json:"email" validate:"omitempty,max=255,mailbox"`
	IsPrimaryContact    bool             `json:"is_primary_contact"`
	IsGuarantor         *bool            `json:"is_guarantor"`
}

func (in *PrincipalCreate) Normalize() {
	in.FirstName = validate.Collapse(in.FirstName)
	in.LastName = validate.Collapse(in.LastName)
	in.SSN = formatted(in.SSN, validate.SSN)
	in.HomeAddress = strings.TrimSpace(in.HomeAddress)
	in.City = validate.Collapse(in.City)
	in.State, _ = validate.State(in.State)
	in.Zip = formatted(in.Zip, validate.ZIP)
	in.Phone = formatted(in.Phone, validate.E164)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in *PrincipalCreate) Check() validate.Errors {
	return principalRules(in.HomeAddress, in.City, in.State, in.Zip, in.Email, in.Phone, in.IsPrimaryContact)
}

// principalRules enforces the all-or-none address and primary contact reachability.
func principalRules(addr, city, state, zip, email, phone string, primary bool) validate.Errors {
	var errs validate.Errors
	parts := map[string]string{"home_address": addr, "city": city, "state": state, "zip": zip}
	given := 0
	for _, v := range parts {
		if v != "" {
			given++
		}
	}
	if given > 0 && given < len(parts) {
		for _, f := range []string{"home_address", "city", "state", "zip"} {
			if parts[f] == "" {
				errs = append(errs, validate.FieldError{Field: f, Message: "Complete address is required when any address field is provided", Type: "value_error"})
			}
		}
	}
	if primary {
		if email == "" {
			errs = append(errs, validate.FieldError{Field: "email", Message: "Primary contact must have an email", Type: "value_error"})
		}
		if phone == "" {
			errs = append(errs, validate.FieldError{Field: "phone", Message: "Primary contact must have a phone", Type: "value_error"})
		}
	}
	return errs
}

type PrincipalUpdate struct {
	FirstName           *string          `json:"first_name" validate:"omitnil,min=1,max=100,personname"`
	LastName            *string          `json:"last_name" validate:"omitnil,min=1,max=100,personname"`
	SSN                 *string          `json:"ssn" validate:"omitnil,taxssn"`
	DateOfBirth         *domain.Date     `json:"date_of_birth" validate:"omitnil,notfuture,adult"`
	OwnershipPercentage *decimal.Decimal `json:"ownership_percentage" validate:"omitnil,gte=0,lte=100"`
	HomeAddress         *string          `json:"home_address" validate:"omitnil,max=255"`
	City                *string          `json:"city" validate:"omitnil,max=100"`
	State               *string          `json:"state" validate:"omitempty,usstate"`
	Zip                 *string          `json:"zip" validate:"omitempty,zipcode"`
	Phone               *string          `json:"phone" validate:"omitempty,e164phone"`
	Email               *string          `json:"email" validate:"omitempty,max=255,mailbox"`
	IsPrimaryContact    *bool            `json:"is_primary_contact"`
	IsGuarantor         *bool            `json:"is_guarantor"`
}

func (in *PrincipalUpdate) Normalize() {
	mapPtr(in.FirstName, validate.Collapse)
	mapPtr(in.LastName, validate.Collapse)
	mapPtr(in.SSN, func(s string) string { return formatted(s, validate.SSN) })
	mapPtr(in.HomeAddress, strings.TrimSpace)
	mapPtr(in.City, validate.Collapse)
	mapPtr(in.State, func(s string) string { v, _ := validate.State(s); return v })
	mapPtr(in.Zip, func(s string) string { return formatted(s, validate.ZIP) })
	mapPtr(in.Phone, func(s string) string { return formatted(s, validate.E164) })
	mapPtr(in.Email, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

type PrincipalService struct {
	db         *sqlx.DB
	sealer     *secure.Sealer
	Principals *repos.PrincipalRepo
	Merchants  *repos.MerchantRepo
}

func NewPrincipalService(db *sqlx.DB, sealer *secure.Sealer) *PrincipalService {
	return &PrincipalService{
		db:         db,
		sealer:     sealer,
		Principals: repos.NewPrincipalRepo(db),
		Merchants:  repos.NewMerchantRepo(db),
	}
}

func (s *PrincipalService) seal(p *domain.Principal, ssn string) error {
	sealed, err := s.sealer.Seal(ssn)
	if err != nil {
		return err
	}
	p.SSNSealed = sealed
	p.SSNIndex = s.sealer.Index(ssn)
	p.SSNMasked = secure.MaskSSN(ssn)
	return nil
}

const dupSSN = "Principal with this SSN already exists for this merchant"

// checkWithin runs the SSN and ownership checks on the transaction that
// writes p, after locking the merchant.
func checkWithin(ctx context.Context, pr *repos.PrincipalRepo, p *domain.Principal, ssn, ownership bool) error {
	if err := pr.LockMerchant(ctx, p.MerchantID); err != nil {
		return orNotFound(err, "Merchant")
	}
	if ssn {
		taken, err := pr.SSNTaken(ctx, p.MerchantID, p.SSNIndex, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return Conflict(dupSSN)
		}
	}
	if ownership {
		current, err := pr.OwnershipTotal(ctx, p.MerchantID, p.ID)
		if err != nil {
			return err
		}
		if current.Add(p.OwnershipPercentage).GreaterThan(domain.Hundred) {
			return Rule("Total ownership would exceed 100%% (currently %s%% allocated)", current.StringFixed(2))
		}
	}
	return nil
}

func (s *PrincipalService) Create(ctx context.Context, in PrincipalCreate) (*domain.Principal, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.Merchants.Get(ctx, in.MerchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	p := &domain.Principal{
		MerchantID:          in.MerchantID,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		DateOfBirth:         *in.DateOfBirth,
		OwnershipPercentage: domain.Money(decOr(in.OwnershipPercentage, domain.Hundred)),
		HomeAddress:         in.HomeAddress,
		City:                in.City,
		State:               in.State,
		Zip:                 in.Zip,
		Phone:               in.Phone,
		Email:               in.Email,
		IsPrimaryContact:    in.IsPrimaryContact,
		IsGuarantor:         in.IsGuarantor == nil || *in.IsGuarantor,
	}
	if err := s.seal(p, in.SSN); err != nil {
		return nil, err
	}
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		pr := repos.NewPrincipalRepo(tx)
		if err := checkWithin(ctx, pr, p, true, true); err != nil {
			return err
		}
		if err := pr.Create(ctx, p); err != nil {
			return orConflict(err, dupSSN)
		}
		if p.IsPrimaryContact {
			return pr.ClearPrimary(ctx, p.MerchantID, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PrincipalService) Get(ctx context.Context, id int64) (*domain.Principal, error) {
	p, err := s.Principals.Get(ctx, id)
	return p, orNotFound(err, "Principal")
}

func (s *PrincipalService) List(ctx context.Context, skip, limit int) ([]domain.Principal, error) {
	return s.Principals.List(ctx, skip, limit)
}

func (s *PrincipalService) ByMerchant(ctx context.Context, merchantID int64, onlyGuarantors bool) ([]domain.Principal, error) {
	if _, err := s.Merchants.Get(ctx, merchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	return s.Principals.ByMerchant(ctx, merchantID, onlyGuarantors)
}

// SearchBySSN matches principals through the blind index; the SSN itself is never queried.
func (s *PrincipalService) SearchBySSN(ctx context.Context, ssn string) ([]domain.Principal, error) {
	formattedSSN, ok := validate.SSN(ssn)
	if !ok {
		return nil, validate.Errors{{Field: "ssn", Message: "Invalid SSN", Type: "value_error"}}
	}
	return s.Principals.FindBySSNIndex(ctx, s.sealer.Index(formattedSSN))
}

// RevealSSN opens the sealed SSN of a principal.
func (s *PrincipalService) RevealSSN(ctx context.Context, id int64) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.sealer.Open(p.SSNSealed)
}

func (s *PrincipalService) Update(ctx context.Context, id int64, in PrincipalUpdate) (*domain.Principal, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	assign(&p.FirstName, in.FirstName)
	assign(&p.LastName, in.LastName)
	assign(&p.HomeAddress, in.HomeAddress)
	assign(&p.City, in.City)
	assign(&p.State, in.State)
	assign(&p.Zip, in.Zip)
	assign(&p.Phone, in.Phone)
	assign(&p.Email, in.Email)
	assign(&p.IsPrimaryContact, in.IsPrimaryContact)
	assign(&p.IsGuarantor, in.IsGuarantor)
	if in.DateOfBirth != nil {
		p.DateOfBirth = *in.DateOfBirth
	}
	if errs := principalRules(p.HomeAddress, p.City, p.State, p.Zip, p.Email, p.Phone, p.IsPrimaryContact); len(errs) > 0 {
		return nil, errs
	}
	if in.SSN != nil {
		if err := s.seal(p, *in.SSN); err != nil {
			return nil, err
		}
	}
	if in.OwnershipPercentage != nil {
		p.OwnershipPercentage = domain.Money(*in.OwnershipPercentage)
	}
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		pr := repos.NewPrincipalRepo(tx)
		if err := checkWithin(ctx, pr, p, in.SSN != nil, in.OwnershipPercentage != nil); err != nil {
			return err
		}
		if p.IsPrimaryContact {
			if err := pr.ClearPrimary(ctx, p.MerchantID, p.ID); err != nil {
				return err
			}
		}
		return orConflict(pr.Update(ctx, p), dupSSN)
	})
	if err != nil {
		return nil, orNotFound(err, "Principal")
	}
	return p, nil
}

func (s *PrincipalService) Delete(ctx context.Context, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Principals.SoftDelete(ctx, id); err != nil {
		return orNotFound(err, "Principal")
	}
	left, err := s.Principals.CountByMerchant(ctx, p.MerchantID)
	if err != nil {
		return err
	}
	if left == 0 {
		applog.Logger().Warn().Int64("merchant_id", p.MerchantID).Msg("merchant has no remaining principals")
	}
	return nil
}

func (s *PrincipalService) OwnershipSummary(ctx context.Context, merchantID int64) (*domain.OwnershipSummary, error) {
	list, err := s.ByMerchant(ctx, merchantID, false)
	if err != nil {
		return nil, err
	}
	sum := &domain.OwnershipSummary{
		MerchantID:               merchantID,
		PrincipalCount:           len(list),
		TotalOwnershipPercentage: decimal.Zero,
		Principals:               list,
	}
	for _, p := range list {
		sum.TotalOwnershipPercentage = sum.TotalOwnershipPercentage.Add(p.OwnershipPercentage)
		if p.IsGuarantor {
			sum.GuarantorCount++
		}
		if p.IsPrimaryContact && sum.PrimaryContact == nil {
			sum.PrimaryContact = &domain.PrimaryContactRef{ID: p.ID, Name: p.FullName()}
		}
	}
	sum.TotalOwnershipPercentage = domain.Money(sum.TotalOwnershipPercentage)
	sum.OwnershipAllocated = sum.TotalOwnershipPercentage.Equal(domain.Hundred)
	return sum, nil
}
