package application

import (
	"context"

	"github.com/slapcommerce/core/pkg/domain"
	"go.uber.org/fx"
)

// CreateProductCommand starts a new draft Product.
type CreateProductCommand struct {
	ID            string `validate:"required,uuid4"`
	CorrelationID string `validate:"required,uuid4"`
	UserID        string `validate:"required"`
	Title         string `validate:"required"`
	Description   string `validate:"omitempty"`
}

func (c CreateProductCommand) CommandType() string { return "CreateProduct" }
func (c CreateProductCommand) Validate() error     { return validateStruct(c) }

// UpdateProductDetailsCommand replaces title and description.
type UpdateProductDetailsCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	Title           string `validate:"required"`
	Description     string `validate:"omitempty"`
}

func (c UpdateProductDetailsCommand) CommandType() string { return "UpdateProductDetails" }
func (c UpdateProductDetailsCommand) Validate() error     { return validateStruct(c) }

// AddVariantToProductCommand records that a variant belongs to a product.
type AddVariantToProductCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	VariantID       string `validate:"required"`
}

func (c AddVariantToProductCommand) CommandType() string { return "AddVariantToProduct" }
func (c AddVariantToProductCommand) Validate() error     { return validateStruct(c) }

// RemoveVariantFromProductCommand drops a variant from a product's
// membership list.
type RemoveVariantFromProductCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	VariantID       string `validate:"required"`
}

func (c RemoveVariantFromProductCommand) CommandType() string { return "RemoveVariantFromProduct" }
func (c RemoveVariantFromProductCommand) Validate() error     { return validateStruct(c) }

// PublishProductCommand moves a draft Product to active.
type PublishProductCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c PublishProductCommand) CommandType() string { return "PublishProduct" }
func (c PublishProductCommand) Validate() error     { return validateStruct(c) }

// ArchiveProductCommand moves a Product to the terminal archived status.
type ArchiveProductCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c ArchiveProductCommand) CommandType() string { return "ArchiveProduct" }
func (c ArchiveProductCommand) Validate() error     { return validateStruct(c) }

type productCommandHandlers struct {
	uow domain.UnitOfWork
}

// NewProductCommandHandlers constructs the handler bundle.
func NewProductCommandHandlers(uow domain.UnitOfWork) *productCommandHandlers {
	return &productCommandHandlers{uow: uow}
}

func (h *productCommandHandlers) create(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(CreateProductCommand)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		product, err := domain.NewProduct(cmd.ID, cmd.CorrelationID, cmd.Title, cmd.Description)
		if err != nil {
			return nil, err
		}
		product.SetUserID(cmd.UserID)
		if err := persistAggregate(ctx, repos, product); err != nil {
			return nil, err
		}
		return product.Version(), nil
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("product created", "productId", cmd.ID)
	return commandResponse(cmd.ID, result.(int64)), nil
}

func (h *productCommandHandlers) updateDetails(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(UpdateProductDetailsCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(prod *domain.Product) error {
		return prod.UpdateDetails(cmd.Title, cmd.Description)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("product details updated", "productId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *productCommandHandlers) addVariant(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(AddVariantToProductCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(prod *domain.Product) error {
		return prod.AddVariant(cmd.VariantID)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant added to product", "productId", cmd.ID, "variantId", cmd.VariantID)
	return commandResponse(cmd.ID, version), nil
}

func (h *productCommandHandlers) removeVariant(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(RemoveVariantFromProductCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(prod *domain.Product) error {
		return prod.RemoveVariant(cmd.VariantID)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant removed from product", "productId", cmd.ID, "variantId", cmd.VariantID)
	return commandResponse(cmd.ID, version), nil
}

func (h *productCommandHandlers) publish(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(PublishProductCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(prod *domain.Product) error {
		return prod.Publish()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("product published", "productId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *productCommandHandlers) archive(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(ArchiveProductCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(prod *domain.Product) error {
		return prod.Archive()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("product archived", "productId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *productCommandHandlers) mutate(ctx context.Context, id, userID string, expectedVersion int64, fn func(*domain.Product) error) (int64, error) {
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		snapshot, err := loadSnapshotChecked(ctx, repos, id, expectedVersion)
		if err != nil {
			return nil, err
		}
		product, err := domain.LoadProductFromSnapshot(snapshot.Payload)
		if err != nil {
			return nil, err
		}
		product.SetUserID(userID)
		if err := fn(product); err != nil {
			return nil, err
		}
		if err := persistAggregate(ctx, repos, product); err != nil {
			return nil, err
		}
		return product.Version(), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// ProvideProductCommandHandlers registers every product command against the
// command bus's fx group.
func ProvideProductCommandHandlers(h *productCommandHandlers) []CommandHandlerEntry {
	return []CommandHandlerEntry{
		{Type: "CreateProduct", Handler: h.create},
		{Type: "UpdateProductDetails", Handler: h.updateDetails},
		{Type: "AddVariantToProduct", Handler: h.addVariant},
		{Type: "RemoveVariantFromProduct", Handler: h.removeVariant},
		{Type: "PublishProduct", Handler: h.publish},
		{Type: "ArchiveProduct", Handler: h.archive},
	}
}

// ProductCommandModule wires the product command handler bundle into the fx
// "command_handlers" group.
var ProductCommandModule = fx.Provide(
	NewProductCommandHandlers,
	fx.Annotate(ProvideProductCommandHandlers, fx.ResultTags(`group:"command_handlers,flatten"`)),
)
