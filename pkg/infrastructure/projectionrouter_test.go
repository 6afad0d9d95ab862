package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProjectionTestRepos(t *testing.T) (*stagedRepositories, *gorm.DB) {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	variants, err := readmodel.NewVariantViewRepository(db)
	require.NoError(t, err)
	products, err := readmodel.NewProductViewRepository(db)
	require.NoError(t, err)
	collections, err := readmodel.NewCollectionViewRepository(db)
	require.NoError(t, err)
	schedules, err := readmodel.NewScheduleViewRepository(db)
	require.NoError(t, err)

	var mu sync.Mutex
	var stmts []func(tx *gorm.DB) error
	var envelopes []domain.Envelope

	return &stagedRepositories{
		variants:    variants,
		products:    products,
		collections: collections,
		schedules:   schedules,
		mu:          &mu,
		stmts:       &stmts,
		envelopes:   &envelopes,
	}, db
}

func TestExhaustiveProjectionRouter_ProjectsEveryAggregateKind(t *testing.T) {
	router := NewProjectionRouter()
	repos, db := newProjectionTestRepos(t)
	ctx := context.Background()

	variantPayload := `{"aggregate_id":"v-1","sku":"SKU-1","version":1}`
	productPayload := `{"aggregate_id":"p-1","title":"Tee","version":1}`
	collectionPayload := `{"aggregate_id":"c-1","title":"Summer","version":1}`
	schedulePayload := `{"aggregate_id":"s-1","subject_id":"v-1","version":1}`

	envelopes := []domain.Envelope{
		testEnvelope(t, "variant.created", "v-1", variantPayload),
		testEnvelope(t, "product.created", "p-1", productPayload),
		testEnvelope(t, "collection.created", "c-1", collectionPayload),
		testEnvelope(t, "schedule.created", "s-1", schedulePayload),
		testEnvelope(t, "sku_registry.reserved", "sku-registry", `{}`),
	}

	require.NoError(t, router.Project(ctx, repos, envelopes))

	for _, stmt := range *repos.stmts {
		require.NoError(t, stmt(db))
	}

	variantView, err := repos.variants.Get(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", variantView.SKU)

	productView, err := repos.products.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Tee", productView.Title)

	collectionView, err := repos.collections.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Summer", collectionView.Title)

	scheduleView, err := repos.schedules.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "v-1", scheduleView.SubjectID)
}

func TestExhaustiveProjectionRouter_UnknownEventPanics(t *testing.T) {
	router := NewProjectionRouter()
	repos, _ := newProjectionTestRepos(t)
	ctx := context.Background()

	envelopes := []domain.Envelope{testEnvelope(t, "variant.teleported", "v-1", `{}`)}

	assert.Panics(t, func() {
		_ = router.Project(ctx, repos, envelopes)
	})
}

func testEnvelope(t *testing.T, eventName, aggregateID, newState string) domain.Envelope {
	t.Helper()
	event := domain.NewDomainEvent(eventName, aggregateID, 1, "corr-1", "user-1", domain.EventPayload{
		PriorState: []byte(`{}`),
		NewState:   []byte(newState),
	})
	return &eventEnvelope{event: event, eventID: "evt-" + aggregateID, storedAt: time.Now().UTC()}
}
