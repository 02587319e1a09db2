package service

import (
	"context"
	"errors"
	"fmt"

	"pastahub/internal/idoklad"
	"pastahub/internal/model"
	"pastahub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContactSyncer is the consumed slice of the accounting API for contact
// synchronization.
type ContactSyncer interface {
	Contacts(ctx context.Context) ([]idoklad.Contact, error)
	PostContact(ctx context.Context, contact idoklad.Contact) (int, error)
	PutContact(ctx context.Context, contact idoklad.Contact) error
}

// --- DTOs ---

type CustomerRequest struct {
	Name       string `json:"name" binding:"required"`
	TaxID      string `json:"tax_id" binding:"omitempty,len=8,numeric"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	UserID     string `json:"user_id"`
}

type AddressRequest struct {
	Label       string `json:"label"`
	FullAddress string `json:"full_address" binding:"required"`
	Monday      bool   `json:"monday"`
	Tuesday     bool   `json:"tuesday"`
	Wednesday   bool   `json:"wednesday"`
	Thursday    bool   `json:"thursday"`
	Friday      bool   `json:"friday"`
	Saturday    bool   `json:"saturday"`
	Sunday      bool   `json:"sunday"`
}

type PriceOverrideRequest struct {
	ProductID       string `json:"product_id"`
	PriceCategoryID string `json:"price_category_id"`
	UnitPrice       string `json:"unit_price" binding:"required"`
}

type PriceOverrideResponse struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id,omitempty"`
	PriceCategoryID string `json:"price_category_id,omitempty"`
	UnitPrice       string `json:"unit_price"`
}

type ContactSyncOutcome struct {
	Linked  int `json:"linked"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// CustomerService manages buyer profiles, their delivery addresses and
// per-customer price overrides, and keeps the external accounting contacts
// in sync with local customer records.
type CustomerService interface {
	List(ctx context.Context, page, limit int) ([]model.Customer, int64, error)
	Get(ctx context.Context, id string) (*model.Customer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error)
	Create(ctx context.Context, req CustomerRequest) (*model.Customer, error)
	Update(ctx context.Context, id string, req CustomerRequest) (*model.Customer, error)
	AddAddress(ctx context.Context, customerID string, req AddressRequest) (*model.DeliveryAddress, error)
	UpdateAddress(ctx context.Context, customerID, addressID string, req AddressRequest) (*model.DeliveryAddress, error)
	DeleteAddress(ctx context.Context, customerID, addressID string) error
	UpsertOverride(ctx context.Context, customerID string, req PriceOverrideRequest) (PriceOverrideResponse, error)
	DeleteOverride(ctx context.Context, customerID, overrideID string) error
	ListOverrides(ctx context.Context, customerID string) ([]PriceOverrideResponse, error)
	SyncContacts(ctx context.Context, actorID string) (ContactSyncOutcome, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	overrideRepo repository.PriceOverrideRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	contacts     ContactSyncer
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	overrideRepo repository.PriceOverrideRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	contacts ContactSyncer,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		overrideRepo: overrideRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		contacts:     contacts,
	}
}

func (s *customerService) List(ctx context.Context, page, limit int) ([]model.Customer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.customerRepo.List(ctx, page, limit)
}

func (s *customerService) Get(ctx context.Context, id string) (*model.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id: %w", err)
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *customerService) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *customerService) applyRequest(customer *model.Customer, req CustomerRequest) error {
	customer.Name = req.Name
	customer.TaxID = req.TaxID
	customer.Street = req.Street
	customer.City = req.City
	customer.PostalCode = req.PostalCode

	customer.UserID = nil
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		customer.UserID = &userID
	}
	return nil
}

func (s *customerService) Create(ctx context.Context, req CustomerRequest) (*model.Customer, error) {
	var customer model.Customer
	if err := s.applyRequest(&customer, req); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(ctx, &customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &customer, nil
}

func (s *customerService) Update(ctx context.Context, id string, req CustomerRequest) (*model.Customer, error) {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(customer, req); err != nil {
		return nil, err
	}
	customer.Addresses = nil
	customer.User = nil
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return s.Get(ctx, id)
}

// --- Delivery addresses ---

func applyAddressRequest(address *model.DeliveryAddress, req AddressRequest) {
	address.Label = req.Label
	address.FullAddress = req.FullAddress
	address.Monday = req.Monday
	address.Tuesday = req.Tuesday
	address.Wednesday = req.Wednesday
	address.Thursday = req.Thursday
	address.Friday = req.Friday
	address.Saturday = req.Saturday
	address.Sunday = req.Sunday
}

func (s *customerService) AddAddress(ctx context.Context, customerID string, req AddressRequest) (*model.DeliveryAddress, error) {
	customer, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	address := model.DeliveryAddress{CustomerID: customer.ID}
	applyAddressRequest(&address, req)
	if err := s.customerRepo.CreateAddress(ctx, &address); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return &address, nil
}

func (s *customerService) UpdateAddress(ctx context.Context, customerID, addressID string, req AddressRequest) (*model.DeliveryAddress, error) {
	address, err := s.ownedAddress(ctx, customerID, addressID)
	if err != nil {
		return nil, err
	}
	applyAddressRequest(address, req)
	if err := s.customerRepo.UpdateAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	return address, nil
}

func (s *customerService) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	address, err := s.ownedAddress(ctx, customerID, addressID)
	if err != nil {
		return err
	}
	return s.customerRepo.DeleteAddress(ctx, address.ID)
}

// ownedAddress loads the address and checks it belongs to the customer.
func (s *customerService) ownedAddress(ctx context.Context, customerID, addressID string) (*model.DeliveryAddress, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id: %w", err)
	}
	aid, err := uuid.Parse(addressID)
	if err != nil {
		return nil, fmt.Errorf("invalid address id: %w", err)
	}
	address, err := s.customerRepo.FindAddress(ctx, aid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if address.CustomerID != cid {
		return nil, ErrNotFound
	}
	return address, nil
}

// --- Price overrides ---

func (s *customerService) UpsertOverride(ctx context.Context, customerID string, req PriceOverrideRequest) (PriceOverrideResponse, error) {
	customer, err := s.Get(ctx, customerID)
	if err != nil {
		return PriceOverrideResponse{}, err
	}

	if (req.ProductID == "") == (req.PriceCategoryID == "") {
		return PriceOverrideResponse{}, fmt.Errorf("an override targets either a product or a price category")
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return PriceOverrideResponse{}, fmt.Errorf("invalid unit price: %w", err)
	}

	override := model.PriceOverride{CustomerID: customer.ID, UnitPrice: price}
	if req.ProductID != "" {
		productID, parseErr := uuid.Parse(req.ProductID)
		if parseErr != nil {
			return PriceOverrideResponse{}, fmt.Errorf("invalid product id: %w", parseErr)
		}
		override.ProductID = &productID
	} else {
		categoryID, parseErr := uuid.Parse(req.PriceCategoryID)
		if parseErr != nil {
			return PriceOverrideResponse{}, fmt.Errorf("invalid price category id: %w", parseErr)
		}
		override.PriceCategoryID = &categoryID
	}

	if err := s.overrideRepo.Upsert(ctx, &override); err != nil {
		return PriceOverrideResponse{}, fmt.Errorf("failed to save price override: %w", err)
	}
	return toOverrideResponse(override), nil
}

func (s *customerService) DeleteOverride(ctx context.Context, customerID, overrideID string) error {
	if _, err := s.Get(ctx, customerID); err != nil {
		return err
	}
	id, err := uuid.Parse(overrideID)
	if err != nil {
		return fmt.Errorf("invalid override id: %w", err)
	}
	return s.overrideRepo.Delete(ctx, id)
}

func (s *customerService) ListOverrides(ctx context.Context, customerID string) ([]PriceOverrideResponse, error) {
	customer, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	overrides, err := s.overrideRepo.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	res := make([]PriceOverrideResponse, 0, len(overrides))
	for _, o := range overrides {
		res = append(res, toOverrideResponse(o))
	}
	return res, nil
}

func toOverrideResponse(o model.PriceOverride) PriceOverrideResponse {
	res := PriceOverrideResponse{
		ID:        o.ID.String(),
		UnitPrice: o.UnitPrice.StringFixed(2),
	}
	if o.ProductID != nil {
		res.ProductID = o.ProductID.String()
	}
	if o.PriceCategoryID != nil {
		res.PriceCategoryID = o.PriceCategoryID.String()
	}
	return res
}

// --- Contact synchronization ---

// SyncContacts reconciles local customers against the accounting service's
// contact list. Unlinked customers are matched to remote contacts by their
// registration number; matched ones are linked, unmatched ones get a fresh
// remote contact, and already linked ones push their current name and
// billing address to the remote record.
func (s *customerService) SyncContacts(ctx context.Context, actorID string) (ContactSyncOutcome, error) {
	var outcome ContactSyncOutcome

	remote, err := s.contacts.Contacts(ctx)
	if err != nil {
		return outcome, &GatewayError{Err: err}
	}
	byTaxID := make(map[string]idoklad.Contact, len(remote))
	for _, contact := range remote {
		if contact.IdentificationNumber != "" {
			byTaxID[contact.IdentificationNumber] = contact
		}
	}

	const pageSize = 100
	for page := 1; ; page++ {
		customers, _, listErr := s.customerRepo.List(ctx, page, pageSize)
		if listErr != nil {
			return outcome, listErr
		}
		if len(customers) == 0 {
			break
		}

		for i := range customers {
			customer := &customers[i]
			if err := s.syncOne(ctx, customer, byTaxID, &outcome); err != nil {
				return outcome, err
			}
		}

		if len(customers) < pageSize {
			break
		}
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
	}
	audit := &model.AuditLog{
		UserID:     actor,
		Action:     model.ActionSyncContacts,
		EntityName: "contact sync",
		Details: fmt.Sprintf(`{"linked": %d, "created": %d, "updated": %d}`,
			outcome.Linked, outcome.Created, outcome.Updated),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return outcome, fmt.Errorf("failed to write audit log: %w", err)
	}
	return outcome, nil
}

func (s *customerService) syncOne(ctx context.Context, customer *model.Customer, byTaxID map[string]idoklad.Contact, outcome *ContactSyncOutcome) error {
	contact := contactFromCustomer(customer)

	if customer.IDokladContactID != nil {
		contact.ID = *customer.IDokladContactID
		if err := s.contacts.PutContact(ctx, contact); err != nil {
			return &GatewayError{Err: fmt.Errorf("failed to update contact for %q: %w", customer.Name, err)}
		}
		outcome.Updated++
		return nil
	}

	if matched, ok := byTaxID[customer.TaxID]; ok && customer.TaxID != "" {
		customer.IDokladContactID = &matched.ID
		outcome.Linked++
	} else {
		id, err := s.contacts.PostContact(ctx, contact)
		if err != nil {
			return &GatewayError{Err: fmt.Errorf("failed to create contact for %q: %w", customer.Name, err)}
		}
		customer.IDokladContactID = &id
		outcome.Created++
	}

	customer.Addresses = nil
	customer.User = nil
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return fmt.Errorf("failed to store contact link for %q: %w", customer.Name, err)
	}
	return nil
}

func contactFromCustomer(customer *model.Customer) idoklad.Contact {
	contact := idoklad.Contact{
		CompanyName:          customer.Name,
		IdentificationNumber: customer.TaxID,
		Street:               customer.Street,
		City:                 customer.City,
		PostalCode:           customer.PostalCode,
	}
	if customer.User != nil {
		contact.Email = customer.User.Email
	}
	return contact
}
