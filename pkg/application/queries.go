package application

import (
	"context"

	"github.com/slapcommerce/core/pkg/domain"
	"go.uber.org/fx"
)

// GetVariantQuery fetches one variant view by id.
type GetVariantQuery struct {
	ID string `validate:"required"`
}

func (q GetVariantQuery) QueryType() string { return "GetVariant" }
func (q GetVariantQuery) Validate() error   { return validateStruct(q) }

// ListVariantsQuery lists variant views, optionally filtered by status.
type ListVariantsQuery struct {
	Status string
	Limit  int
	Offset int `validate:"gte=0"`
}

func (q ListVariantsQuery) QueryType() string { return "ListVariants" }
func (q ListVariantsQuery) Validate() error   { return validateStruct(q) }

// GetProductQuery fetches one product view by id.
type GetProductQuery struct {
	ID string `validate:"required"`
}

func (q GetProductQuery) QueryType() string { return "GetProduct" }
func (q GetProductQuery) Validate() error   { return validateStruct(q) }

// ListProductsQuery lists product views, optionally filtered by status.
type ListProductsQuery struct {
	Status string
	Limit  int
	Offset int `validate:"gte=0"`
}

func (q ListProductsQuery) QueryType() string { return "ListProducts" }
func (q ListProductsQuery) Validate() error   { return validateStruct(q) }

// GetCollectionQuery fetches one collection view by id.
type GetCollectionQuery struct {
	ID string `validate:"required"`
}

func (q GetCollectionQuery) QueryType() string { return "GetCollection" }
func (q GetCollectionQuery) Validate() error   { return validateStruct(q) }

// ListCollectionsQuery lists collection views, optionally filtered by
// status.
type ListCollectionsQuery struct {
	Status string
	Limit  int
	Offset int `validate:"gte=0"`
}

func (q ListCollectionsQuery) QueryType() string { return "ListCollections" }
func (q ListCollectionsQuery) Validate() error   { return validateStruct(q) }

// GetScheduleQuery fetches one schedule view by id.
type GetScheduleQuery struct {
	ID string `validate:"required"`
}

func (q GetScheduleQuery) QueryType() string { return "GetSchedule" }
func (q GetScheduleQuery) Validate() error   { return validateStruct(q) }

// ListSchedulesQuery lists schedule views, optionally filtered by status.
type ListSchedulesQuery struct {
	Status string
	Limit  int
	Offset int `validate:"gte=0"`
}

func (q ListSchedulesQuery) QueryType() string { return "ListSchedules" }
func (q ListSchedulesQuery) Validate() error   { return validateStruct(q) }

// toReadModelFilter translates the query router's filter params (§4.7):
// offset supplied without a limit means "limit all, offset N", represented
// by the domain.NoLimit sentinel.
func toReadModelFilter(status string, limit, offset int) domain.ReadModelFilter {
	if limit == 0 && offset > 0 {
		limit = domain.NoLimit
	}
	return domain.ReadModelFilter{Status: status, Limit: limit, Offset: offset}
}

// queryHandlers bundles the Unit-of-Work every query handler reads through.
// Queries never stage writes, so WithTransaction here only ever exercises
// the read-through path of the staged repositories: no batcher submission,
// no dispatch.
type queryHandlers struct {
	uow domain.UnitOfWork
}

// NewQueryHandlers constructs the handler bundle.
func NewQueryHandlers(uow domain.UnitOfWork) *queryHandlers {
	return &queryHandlers{uow: uow}
}

func (h *queryHandlers) getVariant(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(GetVariantQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.VariantViews().Get(ctx, q.ID)
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) listVariants(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(ListVariantsQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.VariantViews().List(ctx, toReadModelFilter(q.Status, q.Limit, q.Offset))
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) getProduct(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(GetProductQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.ProductViews().Get(ctx, q.ID)
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) listProducts(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(ListProductsQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.ProductViews().List(ctx, toReadModelFilter(q.Status, q.Limit, q.Offset))
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) getCollection(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(GetCollectionQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.CollectionViews().Get(ctx, q.ID)
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) listCollections(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(ListCollectionsQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.CollectionViews().List(ctx, toReadModelFilter(q.Status, q.Limit, q.Offset))
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) getSchedule(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(GetScheduleQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.ScheduleViews().Get(ctx, q.ID)
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

func (h *queryHandlers) listSchedules(ctx context.Context, log domain.Logger, p Payload[Query]) (Response[any], error) {
	q := p.Data.(ListSchedulesQuery)
	result, err := h.uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return repos.ScheduleViews().List(ctx, toReadModelFilter(q.Status, q.Limit, q.Offset))
	})
	if err != nil {
		return Response[any]{Error: err}, err
	}
	return Response[any]{Data: result}, nil
}

// ProvideQueryHandlers registers every query against the query bus's fx
// group.
func ProvideQueryHandlers(h *queryHandlers) []QueryHandlerEntry {
	return []QueryHandlerEntry{
		{Type: "GetVariant", Handler: h.getVariant},
		{Type: "ListVariants", Handler: h.listVariants},
		{Type: "GetProduct", Handler: h.getProduct},
		{Type: "ListProducts", Handler: h.listProducts},
		{Type: "GetCollection", Handler: h.getCollection},
		{Type: "ListCollections", Handler: h.listCollections},
		{Type: "GetSchedule", Handler: h.getSchedule},
		{Type: "ListSchedules", Handler: h.listSchedules},
	}
}

// QueryModule wires the query handler bundle into the fx "query_handlers"
// group.
var QueryModule = fx.Provide(
	NewQueryHandlers,
	fx.Annotate(ProvideQueryHandlers, fx.ResultTags(`group:"query_handlers,flatten"`)),
)
