package application

import (
	"context"

	"github.com/slapcommerce/core/pkg/domain"
	"go.uber.org/fx"
)

// CreateCollectionCommand starts a new draft Collection.
type CreateCollectionCommand struct {
	ID            string `validate:"required,uuid4"`
	CorrelationID string `validate:"required,uuid4"`
	UserID        string `validate:"required"`
	Title         string `validate:"required"`
}

func (c CreateCollectionCommand) CommandType() string { return "CreateCollection" }
func (c CreateCollectionCommand) Validate() error     { return validateStruct(c) }

// UpdateCollectionTitleCommand replaces a Collection's title.
type UpdateCollectionTitleCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	Title           string `validate:"required"`
}

func (c UpdateCollectionTitleCommand) CommandType() string { return "UpdateCollectionTitle" }
func (c UpdateCollectionTitleCommand) Validate() error     { return validateStruct(c) }

// AddProductToCollectionCommand appends a product to a Collection.
type AddProductToCollectionCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	ProductID       string `validate:"required"`
}

func (c AddProductToCollectionCommand) CommandType() string { return "AddProductToCollection" }
func (c AddProductToCollectionCommand) Validate() error     { return validateStruct(c) }

// RemoveProductFromCollectionCommand drops a product from a Collection.
type RemoveProductFromCollectionCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	ProductID       string `validate:"required"`
}

func (c RemoveProductFromCollectionCommand) CommandType() string {
	return "RemoveProductFromCollection"
}
func (c RemoveProductFromCollectionCommand) Validate() error { return validateStruct(c) }

// ReorderCollectionProductsCommand replaces a Collection's product order
// wholesale.
type ReorderCollectionProductsCommand struct {
	ID                string   `validate:"required,uuid4"`
	CorrelationID     string   `validate:"required,uuid4"`
	UserID            string   `validate:"required"`
	ExpectedVersion   int64    `validate:"gte=0"`
	OrderedProductIDs []string `validate:"required,min=1"`
}

func (c ReorderCollectionProductsCommand) CommandType() string { return "ReorderCollectionProducts" }
func (c ReorderCollectionProductsCommand) Validate() error     { return validateStruct(c) }

// PublishCollectionCommand moves a draft Collection to active.
type PublishCollectionCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c PublishCollectionCommand) CommandType() string { return "PublishCollection" }
func (c PublishCollectionCommand) Validate() error     { return validateStruct(c) }

// ArchiveCollectionCommand moves a Collection to the terminal archived
// status.
type ArchiveCollectionCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c ArchiveCollectionCommand) CommandType() string { return "ArchiveCollection" }
func (c ArchiveCollectionCommand) Validate() error     { return validateStruct(c) }

type collectionCommandHandlers struct {
	uow domain.UnitOfWork
}

// NewCollectionCommandHandlers constructs the handler bundle.
func NewCollectionCommandHandlers(uow domain.UnitOfWork) *collectionCommandHandlers {
	return &collectionCommandHandlers{uow: uow}
}

func (h *collectionCommandHandlers) create(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(CreateCollectionCommand)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		collection, err := domain.NewCollection(cmd.ID, cmd.CorrelationID, cmd.Title)
		if err != nil {
			return nil, err
		}
		collection.SetUserID(cmd.UserID)
		if err := persistAggregate(ctx, repos, collection); err != nil {
			return nil, err
		}
		return collection.Version(), nil
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("collection created", "collectionId", cmd.ID)
	return commandResponse(cmd.ID, result.(int64)), nil
}

func (h *collectionCommandHandlers) updateTitle(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(UpdateCollectionTitleCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(c *domain.Collection) error {
		return c.UpdateTitle(cmd.Title)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("collection title updated", "collectionId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *collectionCommandHandlers) addProduct(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(AddProductToCollectionCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(c *domain.Collection) error {
		return c.AddProduct(cmd.ProductID)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("product added to collection", "collectionId", cmd.ID, "productId", cmd.ProductID)
	return commandResponse(cmd.ID, version), nil
}

func (h *collectionCommandHandlers) removeProduct(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(RemoveProductFromCollectionCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(c *domain.Collection) error {
		return c.RemoveProduct(cmd.ProductID)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("product removed from collection", "collectionId", cmd.ID, "productId", cmd.ProductID)
	return commandResponse(cmd.ID, version), nil
}

func (h *collectionCommandHandlers) reorder(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(ReorderCollectionProductsCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(c *domain.Collection) error {
		return c.Reorder(cmd.OrderedProductIDs)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("collection reordered", "collectionId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *collectionCommandHandlers) publish(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(PublishCollectionCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(c *domain.Collection) error {
		return c.Publish()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("collection published", "collectionId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *collectionCommandHandlers) archive(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(ArchiveCollectionCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.UserID, cmd.ExpectedVersion, func(c *domain.Collection) error {
		return c.Archive()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("collection archived", "collectionId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *collectionCommandHandlers) mutate(ctx context.Context, id, userID string, expectedVersion int64, fn func(*domain.Collection) error) (int64, error) {
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		snapshot, err := loadSnapshotChecked(ctx, repos, id, expectedVersion)
		if err != nil {
			return nil, err
		}
		collection, err := domain.LoadCollectionFromSnapshot(snapshot.Payload)
		if err != nil {
			return nil, err
		}
		collection.SetUserID(userID)
		if err := fn(collection); err != nil {
			return nil, err
		}
		if err := persistAggregate(ctx, repos, collection); err != nil {
			return nil, err
		}
		return collection.Version(), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// ProvideCollectionCommandHandlers registers every collection command
// against the command bus's fx group.
func ProvideCollectionCommandHandlers(h *collectionCommandHandlers) []CommandHandlerEntry {
	return []CommandHandlerEntry{
		{Type: "CreateCollection", Handler: h.create},
		{Type: "UpdateCollectionTitle", Handler: h.updateTitle},
		{Type: "AddProductToCollection", Handler: h.addProduct},
		{Type: "RemoveProductFromCollection", Handler: h.removeProduct},
		{Type: "ReorderCollectionProducts", Handler: h.reorder},
		{Type: "PublishCollection", Handler: h.publish},
		{Type: "ArchiveCollection", Handler: h.archive},
	}
}

// CollectionCommandModule wires the collection command handler bundle into
// the fx "command_handlers" group.
var CollectionCommandModule = fx.Provide(
	NewCollectionCommandHandlers,
	fx.Annotate(ProvideCollectionCommandHandlers, fx.ResultTags(`group:"command_handlers,flatten"`)),
)
