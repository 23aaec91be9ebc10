package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

type stockService struct {
	store repository.Store
}

func NewStockService(store repository.Store) StockService {
	return &stockService{store: store}
}

func (s *stockService) CreateLot(ctx context.Context, lot *domain.StockLot) error {
	if err := lot.Validate(); err != nil {
		return err
	}
	if lot.ContractorID != nil {
		if _, err := s.store.Contractors().GetByID(ctx, *lot.ContractorID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("contractorId", "contractor not found")
			}
			return err
		}
	}
	return s.store.Stock().CreateLot(ctx, lot)
}

func (s *stockService) ListLots(ctx context.Context, stage domain.StockStage) ([]domain.StockLot, error) {
	if stage != "" && !stage.Valid() {
		return nil, domain.NewValidationError("stage", "unknown stock stage")
	}
	return s.store.Stock().ListLots(ctx, stage)
}

func (s *stockService) GetMovement(ctx context.Context, id int64) (*domain.StockMovement, error) {
	return s.store.Stock().GetMovement(ctx, id)
}

// MoveStock moves quantity of a lot to the next stage. The movement record is
// written PENDING first; the source decrement, destination lot and APPLIED
// mark then commit together. A failed apply leaves the record FAILED and the
// lots untouched.
func (s *stockService) MoveStock(ctx context.Context, in MoveInput) (*domain.StockMovement, error) {
	logger.EnterMethod("stockService.MoveStock", "sourceLotID", in.SourceLotID, "targetStage", in.TargetStage, "quantity", in.Quantity)

	source, err := s.validateMove(ctx, in)
	if err != nil {
		logger.ExitMethodWithError("stockService.MoveStock", err, "sourceLotID", in.SourceLotID)
		return nil, err
	}

	movement := &domain.StockMovement{
		SourceLotID:                in.SourceLotID,
		TargetStage:                in.TargetStage,
		Quantity:                   in.Quantity,
		ContractorID:               in.ContractorID,
		PackagingType:              in.PackagingType,
		NeighborhoodIncomingAmount: in.NeighborhoodIncomingAmount,
		Status:                     domain.MovementStatusPending,
	}
	if err := s.store.Stock().CreateMovement(ctx, movement); err != nil {
		logger.ExitMethodWithError("stockService.MoveStock", err, "sourceLotID", in.SourceLotID)
		return nil, err
	}

	applyErr := s.store.WithinTx(ctx, func(ctx context.Context) error {
		lot, err := s.store.Stock().GetLotForUpdate(ctx, in.SourceLotID)
		if err != nil {
			return err
		}
		if in.Quantity.GreaterThan(lot.Quantity) {
			return domain.NewValidationError("quantity", "quantity exceeds lot quantity")
		}

		left := lot.Quantity.Sub(in.Quantity)
		if left.IsZero() {
			err = s.store.Stock().DeleteLot(ctx, lot.ID)
		} else {
			err = s.store.Stock().UpdateLotQuantity(ctx, lot.ID, left)
		}
		if err != nil {
			return err
		}

		dest := destinationLot(source, in)
		if err := s.store.Stock().CreateLot(ctx, dest); err != nil {
			return err
		}

		applied := *movement
		applied.Status = domain.MovementStatusApplied
		applied.ResultLotID = &dest.ID
		if err := s.store.Stock().UpdateMovement(ctx, &applied); err != nil {
			return err
		}
		*movement = applied
		return nil
	})
	if applyErr != nil {
		movement.Status = domain.MovementStatusFailed
		movement.Error = applyErr.Error()
		if err := s.store.Stock().UpdateMovement(ctx, movement); err != nil {
			logger.Error("Failed to record stock movement failure", "movementID", movement.ID, "error", err)
		}
		logger.ExitMethodWithError("stockService.MoveStock", applyErr, "movementID", movement.ID)
		return movement, applyErr
	}

	logger.ExitMethod("stockService.MoveStock", "movementID", movement.ID, "resultLotID", *movement.ResultLotID)
	return movement, nil
}

func (s *stockService) validateMove(ctx context.Context, in MoveInput) (*domain.StockLot, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.NewValidationError("quantity", "quantity must be greater than zero")
	}
	if in.NeighborhoodIncomingAmount.IsNegative() {
		return nil, domain.NewValidationError("neighborhoodIncomingAmount", "amount cannot be negative")
	}

	source, err := s.store.Stock().GetLot(ctx, in.SourceLotID)
	if err != nil {
		return nil, err
	}
	next, ok := source.Stage.Next()
	if !ok || next != in.TargetStage {
		return nil, domain.NewValidationError("targetStage", fmt.Sprintf("stock in %s can only move to the next stage", source.Stage))
	}
	if in.Quantity.GreaterThan(source.Quantity) {
		return nil, domain.NewValidationError("quantity", "quantity exceeds lot quantity")
	}

	switch in.TargetStage {
	case domain.StockStageNeighborhood:
		if in.ContractorID == nil {
			return nil, domain.NewValidationError("contractorId", "contractor is required for neighborhood processing")
		}
		if _, err := s.store.Contractors().GetByID(ctx, *in.ContractorID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("contractorId", "contractor not found")
			}
			return nil, err
		}
	case domain.StockStagePackaging, domain.StockStageSaleReady:
		if in.PackagingType == "" && source.PackagingType == "" {
			return nil, domain.NewValidationError("packagingType", "packaging type is required")
		}
	}
	return source, nil
}

// destinationLot builds the lot created by a move. Neighbourhood lots record
// what went out to the contractor; the industrial lot records what came back.
func destinationLot(source *domain.StockLot, in MoveInput) *domain.StockLot {
	dest := &domain.StockLot{
		Stage:         in.TargetStage,
		ProductName:   source.ProductName,
		Quantity:      in.Quantity,
		ContractorID:  source.ContractorID,
		PackagingType: source.PackagingType,
	}
	if in.ContractorID != nil {
		dest.ContractorID = in.ContractorID
	}
	if in.PackagingType != "" {
		dest.PackagingType = in.PackagingType
	}

	switch in.TargetStage {
	case domain.StockStageNeighborhood:
		dest.NeighborhoodOutgoingAmount = in.Quantity
	case domain.StockStageIndustrial:
		dest.NeighborhoodOutgoingAmount = source.NeighborhoodOutgoingAmount
		dest.NeighborhoodIncomingAmount = in.NeighborhoodIncomingAmount
		if in.NeighborhoodIncomingAmount.IsZero() {
			dest.NeighborhoodIncomingAmount = in.Quantity
		}
	default:
		dest.NeighborhoodOutgoingAmount = source.NeighborhoodOutgoingAmount
		dest.NeighborhoodIncomingAmount = source.NeighborhoodIncomingAmount
	}
	return dest
}

// CompensateStale closes movements left PENDING or FAILED since before. The
// apply step is atomic, so no lot needs reverting. A movement that settles
// between listing and compensation keeps its status.
func (s *stockService) CompensateStale(ctx context.Context, before time.Time) (int, error) {
	logger.EnterMethod("stockService.CompensateStale", "before", before)

	movements, err := s.store.Stock().ListUnsettledMovements(ctx, before)
	if err != nil {
		logger.ExitMethodWithError("stockService.CompensateStale", err)
		return 0, err
	}

	count := 0
	for i := range movements {
		m := movements[i]
		if !m.CanTransition(domain.MovementStatusCompensated) {
			continue
		}
		reason := m.Error
		if reason == "" {
			reason = "movement did not complete"
		}
		done, err := s.store.Stock().CompensateMovement(ctx, m.ID, reason)
		if err != nil {
			logger.ExitMethodWithError("stockService.CompensateStale", err, "movementID", m.ID)
			return count, err
		}
		if !done {
			// Settled after it was listed.
			continue
		}
		count++
	}

	logger.ExitMethod("stockService.CompensateStale", "count", count)
	return count, nil
}
