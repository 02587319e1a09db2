package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pastahub/internal/model"
	"pastahub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryNoteResult reports note creation. AlreadyExisted is a warning,
// not an error: calling create twice is a no-op returning the old number.
type DeliveryNoteResult struct {
	OrderID        string `json:"order_id"`
	NoteNumber     int    `json:"note_number"`
	AlreadyExisted bool   `json:"already_existed"`
}

// DeliveryNoteService assigns globally monotonic delivery-note numbers and
// freezes the recipient snapshot that becomes the legal record of what was
// shipped. The snapshot is never recomputed from live customer data.
type DeliveryNoteService interface {
	CreateDeliveryNote(ctx context.Context, orderID string, actorID string) (DeliveryNoteResult, error)
}

type deliveryNoteService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewDeliveryNoteService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) DeliveryNoteService {
	return &deliveryNoteService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *deliveryNoteService) CreateDeliveryNote(ctx context.Context, orderID string, actorID string) (DeliveryNoteResult, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return DeliveryNoteResult{}, fmt.Errorf("invalid order id: %w", err)
	}

	var result DeliveryNoteResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return findErr
		}

		result.OrderID = order.ID.String()
		if order.DeliveryNoteNumber != nil {
			result.NoteNumber = *order.DeliveryNoteNumber
			result.AlreadyExisted = true
			return nil
		}

		max, maxErr := s.orderRepo.MaxDeliveryNoteNumber(txCtx)
		if maxErr != nil {
			return fmt.Errorf("failed to determine next note number: %w", maxErr)
		}
		number := max + 1

		customer, custErr := s.customerRepo.FindByID(txCtx, order.CustomerID)
		if custErr != nil {
			return fmt.Errorf("failed to load customer: %w", custErr)
		}

		recipient := model.NoteRecipient{
			Name:       customer.Name,
			TaxID:      customer.TaxID,
			Street:     customer.Street,
			City:       customer.City,
			PostalCode: customer.PostalCode,
		}
		if order.DeliveryAddressID != nil {
			if address, addrErr := s.customerRepo.FindAddress(txCtx, *order.DeliveryAddressID); addrErr == nil {
				recipient.DeliveryAddress = address.FullAddress
			}
		}
		snapshot, marshalErr := json.Marshal(recipient)
		if marshalErr != nil {
			return marshalErr
		}

		order.DeliveryNoteNumber = &number
		order.DeliveryNoteRecipient = string(snapshot)
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return fmt.Errorf("failed to assign note number: %w", saveErr)
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
			actor = &parsed
		}
		audit := &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionCreateDeliveryNote,
			EntityID:   order.ID.String(),
			EntityName: fmt.Sprintf("delivery note %d", number),
			Details:    string(snapshot),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result.NoteNumber = number
		return nil
	})
	if err != nil {
		return DeliveryNoteResult{}, err
	}
	return result, nil
}
