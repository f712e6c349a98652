// Package address manages a customer's saved delivery addresses.
package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/users"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

type addressStore interface {
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error)
	HasAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error)
	AddAddress(ctx context.Context, address *models.UserAddress) error
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]users.AddressDTO, error)
	Add(ctx context.Context, userID uuid.UUID, input AddInput) (*users.AddressDTO, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
	Remember(ctx context.Context, userID uuid.UUID, delivery types.DeliveryAddress) (bool, error)
}

// AddInput is a new saved address.
type AddInput struct {
	Type      enums.AddressType
	Address   string
	Landmark  *string
	Latitude  *float64
	Longitude *float64
	IsDefault bool
}

type service struct {
	store addressStore
}

func NewService(store addressStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("address store required")
	}
	return &service{store: store}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]users.AddressDTO, error) {
	rows, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]users.AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, users.AddressFromModel(row))
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddInput) (*users.AddressDTO, error) {
	text := strings.TrimSpace(input.Address)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if input.Type == "" {
		input.Type = enums.AddressTypeHome
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid address type")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if input.Latitude != nil && !(types.Coordinates{Latitude: *input.Latitude, Longitude: *input.Longitude}).Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	existing, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	row := &models.UserAddress{
		UserID:    userID,
		Type:      input.Type,
		Address:   text,
		Landmark:  trimmed(input.Landmark),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		// the first saved address is always the default
		IsDefault: input.IsDefault || len(existing) == 0,
	}
	if err := s.store.AddAddress(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
	}
	dto := users.AddressFromModel(*row)
	return &dto, nil
}

func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	if err := s.store.SetDefaultAddress(ctx, userID, addressID); err != nil {
		return mapStoreError(err, "set default address")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if err := s.store.DeleteAddress(ctx, userID, addressID); err != nil {
		return mapStoreError(err, "delete address")
	}
	return nil
}

// Remember saves a delivery address used at checkout as the new default when
// the exact text is not already in the address book.
func (s *service) Remember(ctx context.Context, userID uuid.UUID, delivery types.DeliveryAddress) (bool, error) {
	text := strings.TrimSpace(delivery.Address)
	if text == "" {
		return false, nil
	}
	known, err := s.store.HasAddress(ctx, userID, text)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup address")
	}
	if known {
		return false, nil
	}
	row := &models.UserAddress{
		UserID:    userID,
		Type:      enums.AddressTypeHome,
		Address:   text,
		Landmark:  trimmed(delivery.Landmark),
		IsDefault: true,
	}
	if c := delivery.Coordinates; c != nil {
		lat, lng := c.Latitude, c.Longitude
		row.Latitude, row.Longitude = &lat, &lng
	}
	if err := s.store.AddAddress(ctx, row); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
	}
	return true, nil
}

func mapStoreError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
