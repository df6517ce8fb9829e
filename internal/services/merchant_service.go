package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mcacrm/internal/domain"
	"mcacrm/internal/repos"
	"mcacrm/internal/validate"
)

type MerchantCreate struct {
	CompanyName   string       `json:"company_name" validate:"required,min=2,max=255,hasletter"`
	Address       string       `json:"address" validate:"max=500"`
	City          string       `json:"city" validate:"omitempty,min=2,max=100,hasletter"`
	State         string       `json:"state" validate:"omitempty,usstate"`
	Zip           string       `json:"zip" validate:"omitempty,zipcode"`
	FEIN          string       `json:"fein" validate:"omitempty,fein"`
	Phone         string       `json:"phone" validate:"omitempty,usphone"`
	EntityType    string       `json:"entity_type" validate:"omitempty,entitytype"`
	SubmittedDate *domain.Date `json:"submitted_date" validate:"omitempty,notfuture,since2000"`
	Email         string       `json:"email" validate:"omitempty,max=255,mailbox,bizemail"`
	ContactPerson string       `json:"contact_person" validate:"omitempty,min=2,max=255,hasletter,notplaceholder"`
	Status        string       `json:"status" validate:"omitempty,merchantstatus"`
	Notes         string       `json:"notes" validate:"max=5000"`
}

func (in *MerchantCreate) Normalize() {
	in.CompanyName = validate.Collapse(in.CompanyName)
	in.Address = strings.TrimSpace(in.Address)
	in.City = validate.Collapse(in.City)
	in.ContactPerson = validate.Collapse(in.ContactPerson)
	in.Notes = strings.TrimSpace(in.Notes)
	in.State, _ = validate.State(in.State)
	in.Zip = formatted(in.Zip, validate.ZIP)
	in.FEIN = formatted(in.FEIN, validate.FEIN)
	in.Phone = formatted(in.Phone, validate.USPhone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
}

// MerchantUpdate is a partial update; nil fields are left unchanged.
type MerchantUpdate struct {
	CompanyName   *string      `json:"company_name" validate:"omitnil,min=2,max=255,hasletter"`
	Address       *string      `json:"address" validate:"omitnil,max=500"`
	City          *string      `json:"city" validate:"omitempty,min=2,max=100,hasletter"`
	State         *string      `json:"state" validate:"omitempty,usstate"`
	Zip           *string      `json:"zip" validate:"omitempty,zipcode"`
	FEIN          *string      `json:"fein" validate:"omitempty,fein"`
	Phone         *string      `json:"phone" validate:"omitempty,usphone"`
	EntityType    *string      `json:"entity_type" validate:"omitempty,entitytype"`
	SubmittedDate *domain.Date `json:"submitted_date" validate:"omitempty,notfuture,since2000"`
	Email         *string      `json:"email" validate:"omitempty,max=255,mailbox,bizemail"`
	ContactPerson *string      `json:"contact_person" validate:"omitempty,min=2,max=255,hasletter,notplaceholder"`
	Status        *string      `json:"status" validate:"omitnil,merchantstatus"`
	Notes         *string      `json:"notes" validate:"omitnil,max=5000"`
}

func (in *MerchantUpdate) Normalize() {
	mapPtr(in.CompanyName, validate.Collapse)
	mapPtr(in.Address, strings.TrimSpace)
	mapPtr(in.City, validate.Collapse)
	mapPtr(in.ContactPerson, validate.Collapse)
	mapPtr(in.Notes, strings.TrimSpace)
	mapPtr(in.State, func(s string) string { v, _ := validate.State(s); return v })
	mapPtr(in.Zip, func(s string) string { return formatted(s, validate.ZIP) })
	mapPtr(in.FEIN, func(s string) string { return formatted(s, validate.FEIN) })
	mapPtr(in.Phone, func(s string) string { return formatted(s, validate.USPhone) })
	mapPtr(in.Email, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	mapPtr(in.Status, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

type MerchantService struct {
	db        *sqlx.DB
	Merchants *repos.MerchantRepo
}

func NewMerchantService(db *sqlx.DB) *MerchantService {
	return &MerchantService{db: db, Merchants: repos.NewMerchantRepo(db)}
}

func (s *MerchantService) Create(ctx context.Context, in MerchantCreate) (*domain.Merchant, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.ensureFEINFree(ctx, in.FEIN, 0); err != nil {
		return nil, err
	}
	m := &domain.Merchant{
		CompanyName:   in.CompanyName,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
		Zip:           in.Zip,
		FEIN:          optional(in.FEIN),
		Phone:         in.Phone,
		EntityType:    in.EntityType,
		SubmittedDate: in.SubmittedDate,
		Email:         in.Email,
		ContactPerson: in.ContactPerson,
		Status:        in.Status,
		Notes:         in.Notes,
	}
	if m.Status == "" {
		m.Status = domain.MerchantLead
	}
	if err := s.Merchants.Create(ctx, m); err != nil {
		return nil, orConflict(err, "Merchant with FEIN "+in.FEIN+" already exists")
	}
	return m, nil
}

func (s *MerchantService) ensureFEINFree(ctx context.Context, fein string, selfID int64) error {
	if fein == "" {
		return nil
	}
	existing, err := s.Merchants.GetByFEIN(ctx, fein)
	if errors.Is(err, repos.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return Conflict("Merchant with FEIN %s already exists", fein)
	}
	return nil
}

func (s *MerchantService) Get(ctx context.Context, id int64) (*domain.Merchant, error) {
	m, err := s.Merchants.Get(ctx, id)
	return m, orNotFound(err, "Merchant")
}

func (s *MerchantService) GetByFEIN(ctx context.Context, fein string) (*domain.Merchant, error) {
	formattedFEIN, ok := validate.FEIN(fein)
	if !ok {
		return nil, validate.Errors{{Field: "fein", Message: "FEIN must be 9 digits", Type: "value_error"}}
	}
	m, err := s.Merchants.GetByFEIN(ctx, formattedFEIN)
	return m, orNotFound(err, "Merchant")
}

// List returns one page of merchants plus the total matching the filter.
func (s *MerchantService) List(ctx context.Context, f domain.MerchantFilter) ([]domain.Merchant, int, error) {
	if f.Status != "" && !slices.Contains(domain.MerchantStatuses, f.Status) {
		return nil, 0, Rule("Invalid status. Must be one of: %s", strings.Join(domain.MerchantStatuses, ", "))
	}
	if f.SortBy != "" && !repos.ValidMerchantSort(f.SortBy) {
		return nil, 0, Rule("Invalid sort_by. Must be one of: company_name, status, created_at, updated_at")
	}
	items, err := s.Merchants.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Merchants.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *MerchantService) Update(ctx context.Context, id int64, in MerchantUpdate) (*domain.Merchant, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FEIN != nil {
		if err := s.ensureFEINFree(ctx, *in.FEIN, id); err != nil {
			return nil, err
		}
		m.FEIN = optional(*in.FEIN)
	}
	assign(&m.CompanyName, in.CompanyName)
	assign(&m.Address, in.Address)
	assign(&m.City, in.City)
	assign(&m.State, in.State)
	assign(&m.Zip, in.Zip)
	assign(&m.Phone, in.Phone)
	assign(&m.EntityType, in.EntityType)
	assign(&m.Email, in.Email)
	assign(&m.ContactPerson, in.ContactPerson)
	assign(&m.Status, in.Status)
	assign(&m.Notes, in.Notes)
	if in.SubmittedDate != nil {
		m.SubmittedDate = in.SubmittedDate
	}
	if err := s.Merchants.Update(ctx, m); err != nil {
		return nil, orConflict(orNotFound(err, "Merchant"), "Merchant FEIN already exists")
	}
	return m, nil
}

func (s *MerchantService) SetStatus(ctx context.Context, id int64, status string) (*domain.Merchant, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !slices.Contains(domain.MerchantStatuses, status) {
		return nil, Rule("Invalid status. Must be one of: %s", strings.Join(domain.MerchantStatuses, ", "))
	}
	if err := s.Merchants.SetStatus(ctx, id, status); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	return s.Get(ctx, id)
}

// Delete closes a merchant unless it still has offers in flight.
func (s *MerchantService) Delete(ctx context.Context, id int64, by string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	open, err := s.Merchants.HasOpenOffers(ctx, id)
	if err != nil {
		return err
	}
	if open {
		return Rule("Cannot delete merchant with active offers")
	}
	return orNotFound(s.Merchants.SoftDelete(ctx, id, by), "Merchant")
}

// Stats counts merchants by status and those created in the last 30 days.
func (s *MerchantService) Stats(ctx context.Context) (domain.MerchantStats, error) {
	return s.Merchants.Stats(ctx, time.Now().AddDate(0, 0, -30))
}
