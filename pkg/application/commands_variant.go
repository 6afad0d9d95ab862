package application

import (
	"context"

	"github.com/slapcommerce/core/pkg/domain"
	"go.uber.org/fx"
)

// CreateVariantCommand starts a new draft Variant under ProductID, claiming
// SKU in the global SkuRegistry atomically with the variant's creation
// (both aggregates commit in the same Unit-of-Work).
type CreateVariantCommand struct {
	ID            string            `validate:"required,uuid4"`
	CorrelationID string            `validate:"required,uuid4"`
	UserID        string            `validate:"required"`
	ProductID     string            `validate:"required"`
	SKU           string            `validate:"required"`
	PriceCents    int64             `validate:"gte=0"`
	Inventory     int64             `validate:"gte=0"`
	Options       map[string]string `validate:"omitempty"`
}

func (c CreateVariantCommand) CommandType() string { return "CreateVariant" }
func (c CreateVariantCommand) Validate() error     { return validateStruct(c) }

// PublishVariantCommand moves a draft Variant to active.
type PublishVariantCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c PublishVariantCommand) CommandType() string { return "PublishVariant" }
func (c PublishVariantCommand) Validate() error     { return validateStruct(c) }

// ArchiveVariantCommand moves a Variant to the terminal archived status.
type ArchiveVariantCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
}

func (c ArchiveVariantCommand) CommandType() string { return "ArchiveVariant" }
func (c ArchiveVariantCommand) Validate() error     { return validateStruct(c) }

// UpdateVariantDetailsCommand replaces SKU, price, currency, inventory, and
// option values in one mutation. Reserving the new SKU against the
// SkuRegistry runs in the same transaction whenever SKU changes.
type UpdateVariantDetailsCommand struct {
	ID              string            `validate:"required,uuid4"`
	CorrelationID   string            `validate:"required,uuid4"`
	UserID          string            `validate:"required"`
	ExpectedVersion int64             `validate:"gte=0"`
	SKU             string            `validate:"required"`
	PriceCents      int64             `validate:"gte=0"`
	Currency        string            `validate:"omitempty,len=3"`
	Inventory       int64             `validate:"gte=0"`
	Options         map[string]string `validate:"omitempty"`
}

func (c UpdateVariantDetailsCommand) CommandType() string { return "UpdateVariantDetails" }
func (c UpdateVariantDetailsCommand) Validate() error     { return validateStruct(c) }

// UpdateVariantPriceCommand adjusts price alone.
type UpdateVariantPriceCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	PriceCents      int64  `validate:"gte=0"`
}

func (c UpdateVariantPriceCommand) CommandType() string { return "UpdateVariantPrice" }
func (c UpdateVariantPriceCommand) Validate() error     { return validateStruct(c) }

// AdjustVariantInventoryCommand applies a signed delta to on-hand inventory.
type AdjustVariantInventoryCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	Delta           int64
}

func (c AdjustVariantInventoryCommand) CommandType() string { return "AdjustVariantInventory" }
func (c AdjustVariantInventoryCommand) Validate() error     { return validateStruct(c) }

// AddVariantImageCommand appends one image to a Variant's gallery.
type AddVariantImageCommand struct {
	ID              string   `validate:"required,uuid4"`
	CorrelationID   string   `validate:"required,uuid4"`
	UserID          string   `validate:"required"`
	ExpectedVersion int64    `validate:"gte=0"`
	ImageID         string   `validate:"required"`
	URLs            []string `validate:"required,min=1,dive,url"`
	AltText         string   `validate:"omitempty"`
}

func (c AddVariantImageCommand) CommandType() string { return "AddVariantImage" }
func (c AddVariantImageCommand) Validate() error     { return validateStruct(c) }

// RemoveVariantImageCommand drops one image from a Variant's gallery.
type RemoveVariantImageCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	ImageID         string `validate:"required"`
}

func (c RemoveVariantImageCommand) CommandType() string { return "RemoveVariantImage" }
func (c RemoveVariantImageCommand) Validate() error     { return validateStruct(c) }

// ReorderVariantImagesCommand replaces the gallery order wholesale.
type ReorderVariantImagesCommand struct {
	ID              string   `validate:"required,uuid4"`
	CorrelationID   string   `validate:"required,uuid4"`
	UserID          string   `validate:"required"`
	ExpectedVersion int64    `validate:"gte=0"`
	OrderedImageIDs []string `validate:"required,min=1"`
}

func (c ReorderVariantImagesCommand) CommandType() string { return "ReorderVariantImages" }
func (c ReorderVariantImagesCommand) Validate() error     { return validateStruct(c) }

// UpdateVariantImageAltTextCommand replaces one image's alt text.
type UpdateVariantImageAltTextCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	ImageID         string `validate:"required"`
	AltText         string
}

func (c UpdateVariantImageAltTextCommand) CommandType() string { return "UpdateVariantImageAltText" }
func (c UpdateVariantImageAltTextCommand) Validate() error     { return validateStruct(c) }

// AttachDigitalAssetCommand attaches a downloadable asset to a Variant.
type AttachDigitalAssetCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	AssetID         string `validate:"required"`
	URL             string `validate:"required,url"`
	Filename        string `validate:"required"`
}

func (c AttachDigitalAssetCommand) CommandType() string { return "AttachDigitalAsset" }
func (c AttachDigitalAssetCommand) Validate() error     { return validateStruct(c) }

// DetachDigitalAssetCommand removes a previously attached asset.
type DetachDigitalAssetCommand struct {
	ID              string `validate:"required,uuid4"`
	CorrelationID   string `validate:"required,uuid4"`
	UserID          string `validate:"required"`
	ExpectedVersion int64  `validate:"gte=0"`
	AssetID         string `validate:"required"`
}

func (c DetachDigitalAssetCommand) CommandType() string { return "DetachDigitalAsset" }
func (c DetachDigitalAssetCommand) Validate() error     { return validateStruct(c) }

// variantCommandHandlers bundles the Unit-of-Work every variant command
// handler closes over. Built once and provided as a set of
// CommandHandlerEntry values via fx so registerCommandHandlers wires them
// into the bus without any aggregate-specific code in fx.go.
type variantCommandHandlers struct {
	uow domain.UnitOfWork
}

// NewVariantCommandHandlers constructs the handler bundle.
func NewVariantCommandHandlers(uow domain.UnitOfWork) *variantCommandHandlers {
	return &variantCommandHandlers{uow: uow}
}

func (h *variantCommandHandlers) create(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(CreateVariantCommand)

	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		registry, err := loadOrCreateSkuRegistry(ctx, repos, cmd.CorrelationID)
		if err != nil {
			return nil, err
		}
		if err := registry.Reserve(cmd.SKU, cmd.ID); err != nil {
			return nil, err
		}

		variant, err := domain.NewVariant(cmd.ID, cmd.CorrelationID, cmd.ProductID, cmd.SKU, cmd.PriceCents, cmd.Inventory, cmd.Options)
		if err != nil {
			return nil, err
		}
		variant.SetUserID(cmd.UserID)

		if err := persistAggregate(ctx, repos, registry); err != nil {
			return nil, err
		}
		if err := persistAggregate(ctx, repos, variant); err != nil {
			return nil, err
		}
		return variant.Version(), nil
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant created", "variantId", cmd.ID, "productId", cmd.ProductID)
	return commandResponse(cmd.ID, result.(int64)), nil
}

func (h *variantCommandHandlers) publish(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(PublishVariantCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		return v.Publish()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant published", "variantId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) archive(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(ArchiveVariantCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		return v.Archive()
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant archived", "variantId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) updateDetails(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(UpdateVariantDetailsCommand)

	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		snapshot, err := loadSnapshotChecked(ctx, repos, cmd.ID, cmd.ExpectedVersion)
		if err != nil {
			return nil, err
		}
		variant, err := domain.LoadVariantFromSnapshot(snapshot.Payload)
		if err != nil {
			return nil, err
		}
		variant.SetUserID(cmd.UserID)

		if cmd.SKU != variant.SKU() {
			registry, err := loadOrCreateSkuRegistry(ctx, repos, cmd.CorrelationID)
			if err != nil {
				return nil, err
			}
			if err := registry.Reserve(cmd.SKU, variant.ID()); err != nil {
				return nil, err
			}
			if err := registry.Release(variant.SKU(), variant.ID()); err != nil {
				return nil, err
			}
			if err := persistAggregate(ctx, repos, registry); err != nil {
				return nil, err
			}
		}

		if err := variant.UpdateDetails(cmd.SKU, cmd.PriceCents, cmd.Currency, cmd.Inventory, cmd.Options); err != nil {
			return nil, err
		}
		if err := persistAggregate(ctx, repos, variant); err != nil {
			return nil, err
		}
		return variant.Version(), nil
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant details updated", "variantId", cmd.ID)
	return commandResponse(cmd.ID, result.(int64)), nil
}

func (h *variantCommandHandlers) updatePrice(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(UpdateVariantPriceCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		return v.UpdatePrice(cmd.PriceCents)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant price updated", "variantId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) adjustInventory(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(AdjustVariantInventoryCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		return v.AdjustInventory(cmd.Delta)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant inventory adjusted", "variantId", cmd.ID, "delta", cmd.Delta)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) addImage(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(AddVariantImageCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		next, err := v.Images().Add(domain.Image{ImageID: cmd.ImageID, URLs: cmd.URLs, AltText: cmd.AltText})
		if err != nil {
			return err
		}
		return v.UpdateImages(next)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant image added", "variantId", cmd.ID, "imageId", cmd.ImageID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) removeImage(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(RemoveVariantImageCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		next, err := v.Images().Remove(cmd.ImageID)
		if err != nil {
			return err
		}
		return v.UpdateImages(next)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant image removed", "variantId", cmd.ID, "imageId", cmd.ImageID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) reorderImages(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(ReorderVariantImagesCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		next, err := v.Images().Reorder(cmd.OrderedImageIDs)
		if err != nil {
			return err
		}
		return v.UpdateImages(next)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant images reordered", "variantId", cmd.ID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) updateImageAltText(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(UpdateVariantImageAltTextCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		next, err := v.Images().UpdateAltText(cmd.ImageID, cmd.AltText)
		if err != nil {
			return err
		}
		return v.UpdateImages(next)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("variant image alt text updated", "variantId", cmd.ID, "imageId", cmd.ImageID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) attachDigitalAsset(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(AttachDigitalAssetCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		return v.AttachDigitalAsset(domain.DigitalAsset{AssetID: cmd.AssetID, URL: cmd.URL, Filename: cmd.Filename})
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("digital asset attached", "variantId", cmd.ID, "assetId", cmd.AssetID)
	return commandResponse(cmd.ID, version), nil
}

func (h *variantCommandHandlers) detachDigitalAsset(ctx context.Context, log domain.Logger, p Payload[Command]) (Response[struct{}], error) {
	cmd := p.Data.(DetachDigitalAssetCommand)
	version, err := h.mutate(ctx, cmd.ID, cmd.CorrelationID, cmd.UserID, cmd.ExpectedVersion, func(v *domain.Variant) error {
		return v.DetachDigitalAsset(cmd.AssetID)
	})
	if err != nil {
		return Response[struct{}]{Error: err}, err
	}
	log.Info("digital asset detached", "variantId", cmd.ID, "assetId", cmd.AssetID)
	return commandResponse(cmd.ID, version), nil
}

// mutate is the shared load/check/apply/persist sequence behind every
// variant command that isn't Create: load the snapshot at expectedVersion,
// reconstruct the aggregate, run fn against it, persist the result.
func (h *variantCommandHandlers) mutate(ctx context.Context, id, correlationID, userID string, expectedVersion int64, fn func(*domain.Variant) error) (int64, error) {
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		snapshot, err := loadSnapshotChecked(ctx, repos, id, expectedVersion)
		if err != nil {
			return nil, err
		}
		variant, err := domain.LoadVariantFromSnapshot(snapshot.Payload)
		if err != nil {
			return nil, err
		}
		variant.SetUserID(userID)
		_ = correlationID // carried on the command for audit/tracing; the aggregate's own correlation id is fixed at creation

		if err := fn(variant); err != nil {
			return nil, err
		}
		if err := persistAggregate(ctx, repos, variant); err != nil {
			return nil, err
		}
		return variant.Version(), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// loadOrCreateSkuRegistry loads the single global SkuRegistry, creating it
// on first use. Creation happens inside the same transaction as the
// caller's mutation so the very first reservation is never lost to a race
// with a concurrent first-time caller.
func loadOrCreateSkuRegistry(ctx context.Context, repos domain.Repositories, correlationID string) (*domain.SkuRegistry, error) {
	snapshot, err := repos.Snapshots().Load(ctx, domain.GlobalSkuRegistryID)
	if err != nil {
		if notFound, ok := err.(domain.NotFoundError); ok {
			_ = notFound
			registry, err := domain.NewSkuRegistry(domain.GlobalSkuRegistryID, correlationID)
			if err != nil {
				return nil, err
			}
			return registry, nil
		}
		return nil, err
	}
	return domain.LoadSkuRegistryFromSnapshot(snapshot.Payload)
}

// ProvideVariantCommandHandlers registers every variant command against the
// command bus's fx group.
func ProvideVariantCommandHandlers(h *variantCommandHandlers) []CommandHandlerEntry {
	return []CommandHandlerEntry{
		{Type: "CreateVariant", Handler: h.create},
		{Type: "PublishVariant", Handler: h.publish},
		{Type: "ArchiveVariant", Handler: h.archive},
		{Type: "UpdateVariantDetails", Handler: h.updateDetails},
		{Type: "UpdateVariantPrice", Handler: h.updatePrice},
		{Type: "AdjustVariantInventory", Handler: h.adjustInventory},
		{Type: "AddVariantImage", Handler: h.addImage},
		{Type: "RemoveVariantImage", Handler: h.removeImage},
		{Type: "ReorderVariantImages", Handler: h.reorderImages},
		{Type: "UpdateVariantImageAltText", Handler: h.updateImageAltText},
		{Type: "AttachDigitalAsset", Handler: h.attachDigitalAsset},
		{Type: "DetachDigitalAsset", Handler: h.detachDigitalAsset},
	}
}

// VariantCommandModule wires the variant command handler bundle into the fx
// "command_handlers" group, one entry per command type, alongside whatever
// other aggregates' modules are also fx.Provide-d.
var VariantCommandModule = fx.Provide(
	NewVariantCommandHandlers,
	fx.Annotate(ProvideVariantCommandHandlers, fx.ResultTags(`group:"command_handlers,flatten"`)),
)
