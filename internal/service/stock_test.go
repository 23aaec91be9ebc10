package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/repository/memory"
	"pistachio-backend/internal/service"
)

func seedLot(t *testing.T, store repository.Store, stage domain.StockStage, qty string) *domain.StockLot {
	t.Helper()
	lot := &domain.StockLot{Stage: stage, ProductName: "Siirt pistachio", Quantity: dec(qty)}
	require.NoError(t, store.Stock().CreateLot(context.Background(), lot))
	return lot
}

func seedContractor(t *testing.T, store repository.Store) *domain.Contractor {
	t.Helper()
	c := &domain.Contractor{Name: "Mahalle Atölyesi"}
	require.NoError(t, store.Contractors().Create(context.Background(), c))
	return c
}

func TestStockService_MoveStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Partial move to neighbourhood", func(t *testing.T) {
		store := memory.NewStore()
		svc := service.NewStockService(store)
		lot := seedLot(t, store, domain.StockStageRawMaterial, "100")
		contractor := seedContractor(t, store)

		m, err := svc.MoveStock(ctx, service.MoveInput{
			SourceLotID:  lot.ID,
			TargetStage:  domain.StockStageNeighborhood,
			Quantity:     dec("40"),
			ContractorID: &contractor.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.MovementStatusApplied, m.Status)
		require.NotNil(t, m.ResultLotID)

		source, err := store.Stock().GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assertDecimal(t, "60", source.Quantity)

		dest, err := store.Stock().GetLot(ctx, *m.ResultLotID)
		require.NoError(t, err)
		assert.Equal(t, domain.StockStageNeighborhood, dest.Stage)
		assertDecimal(t, "40", dest.Quantity)
		assertDecimal(t, "40", dest.NeighborhoodOutgoingAmount)
		require.NotNil(t, dest.ContractorID)
		assert.Equal(t, contractor.ID, *dest.ContractorID)

		stored, err := svc.GetMovement(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MovementStatusApplied, stored.Status)
	})

	t.Run("Full move deletes the source lot", func(t *testing.T) {
		store := memory.NewStore()
		svc := service.NewStockService(store)
		lot := seedLot(t, store, domain.StockStageNeighborhood, "50")

		m, err := svc.MoveStock(ctx, service.MoveInput{
			SourceLotID:                lot.ID,
			TargetStage:                domain.StockStageIndustrial,
			Quantity:                   dec("50"),
			NeighborhoodIncomingAmount: dec("48.5"),
		})
		require.NoError(t, err)

		_, err = store.Stock().GetLot(ctx, lot.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		dest, err := store.Stock().GetLot(ctx, *m.ResultLotID)
		require.NoError(t, err)
		assertDecimal(t, "48.5", dest.NeighborhoodIncomingAmount)
	})

	t.Run("Validation", func(t *testing.T) {
		store := memory.NewStore()
		svc := service.NewStockService(store)
		raw := seedLot(t, store, domain.StockStageRawMaterial, "10")
		industrial := seedLot(t, store, domain.StockStageIndustrial, "10")
		contractor := seedContractor(t, store)

		cases := map[string]service.MoveInput{
			"skipping a stage":     {SourceLotID: raw.ID, TargetStage: domain.StockStageIndustrial, Quantity: dec("1")},
			"no contractor":        {SourceLotID: raw.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("1")},
			"more than the lot":    {SourceLotID: raw.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("11"), ContractorID: &contractor.ID},
			"zero quantity":        {SourceLotID: raw.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("0"), ContractorID: &contractor.ID},
			"no packaging type":    {SourceLotID: industrial.ID, TargetStage: domain.StockStagePackaging, Quantity: dec("1")},
			"negative incoming kg": {SourceLotID: raw.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("1"), ContractorID: &contractor.ID, NeighborhoodIncomingAmount: dec("-1")},
		}
		for name, in := range cases {
			_, err := svc.MoveStock(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation, name)
		}

		lot, err := store.Stock().GetLot(ctx, raw.ID)
		require.NoError(t, err)
		assertDecimal(t, "10", lot.Quantity)
	})

	t.Run("Failed apply leaves lots untouched", func(t *testing.T) {
		base := memory.NewStore()
		lot := seedLot(t, base, domain.StockStageIndustrial, "20")
		store := &brokenStockStore{Store: base, err: errors.New("disk full")}
		svc := service.NewStockService(store)

		m, err := svc.MoveStock(ctx, service.MoveInput{
			SourceLotID:   lot.ID,
			TargetStage:   domain.StockStagePackaging,
			Quantity:      dec("5"),
			PackagingType: "1kg vacuum",
		})
		require.Error(t, err)
		require.NotNil(t, m)
		assert.Equal(t, domain.MovementStatusFailed, m.Status)
		assert.Contains(t, m.Error, "disk full")

		source, err := base.Stock().GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assertDecimal(t, "20", source.Quantity)

		stored, err := base.Stock().GetMovement(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MovementStatusFailed, stored.Status)

		n, err := svc.CompensateStale(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		stored, err = base.Stock().GetMovement(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MovementStatusCompensated, stored.Status)
	})
}

func TestStockService_CompensateStale(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := service.NewStockService(store)
	lot := seedLot(t, store, domain.StockStageRawMaterial, "10")

	pending := &domain.StockMovement{SourceLotID: lot.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("1"), Status: domain.MovementStatusPending}
	applied := &domain.StockMovement{SourceLotID: lot.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("1"), Status: domain.MovementStatusApplied}
	require.NoError(t, store.Stock().CreateMovement(ctx, pending))
	require.NoError(t, store.Stock().CreateMovement(ctx, applied))

	n, err := svc.CompensateStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.CompensateStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Stock().GetMovement(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MovementStatusCompensated, got.Status)
	got, err = store.Stock().GetMovement(ctx, applied.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MovementStatusApplied, got.Status)
}

func TestStockService_CompensateSkipsMovementSettledAfterListing(t *testing.T) {
	ctx := context.Background()
	base := memory.NewStore()
	lot := seedLot(t, base, domain.StockStageRawMaterial, "10")
	m := &domain.StockMovement{SourceLotID: lot.ID, TargetStage: domain.StockStageNeighborhood, Quantity: dec("1"), Status: domain.MovementStatusPending}
	require.NoError(t, base.Stock().CreateMovement(ctx, m))

	svc := service.NewStockService(&settlingStockStore{Store: base})
	n, err := svc.CompensateStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := base.Stock().GetMovement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MovementStatusApplied, got.Status)
}

// settlingStockStore applies every listed movement right after listing it,
// as a concurrent mover would.
type settlingStockStore struct {
	*memory.Store
}

func (s *settlingStockStore) Stock() repository.StockRepository {
	return settlingStock{StockRepository: s.Store.Stock()}
}

type settlingStock struct {
	repository.StockRepository
}

func (s settlingStock) ListUnsettledMovements(ctx context.Context, before time.Time) ([]domain.StockMovement, error) {
	movements, err := s.StockRepository.ListUnsettledMovements(ctx, before)
	if err != nil {
		return nil, err
	}
	for _, m := range movements {
		m.Status = domain.MovementStatusApplied
		if err := s.UpdateMovement(ctx, &m); err != nil {
			return nil, err
		}
	}
	return movements, nil
}

// brokenStockStore fails every lot creation.
type brokenStockStore struct {
	*memory.Store
	err error
}

func (s *brokenStockStore) Stock() repository.StockRepository {
	return brokenStock{StockRepository: s.Store.Stock(), err: s.err}
}

type brokenStock struct {
	repository.StockRepository
	err error
}

func (b brokenStock) CreateLot(context.Context, *domain.StockLot) error {
	return b.err
}
