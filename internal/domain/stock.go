package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStage string

const (
	StockStageRawMaterial  StockStage = "RAW_MATERIAL"
	StockStageNeighborhood StockStage = "NEIGHBORHOOD"
	StockStageIndustrial   StockStage = "INDUSTRIAL"
	StockStagePackaging    StockStage = "PACKAGING"
	StockStageSaleReady    StockStage = "SALE_READY"
)

var stageOrder = []StockStage{
	StockStageRawMaterial,
	StockStageNeighborhood,
	StockStageIndustrial,
	StockStagePackaging,
	StockStageSaleReady,
}

func (s StockStage) Valid() bool {
	for _, st := range stageOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Next returns the stage stock moves to from s. The last stage has none.
func (s StockStage) Next() (StockStage, bool) {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

type StockLot struct {
	ID                         int64           `json:"id"`
	Stage                      StockStage      `json:"stage"`
	ProductName                string          `json:"productName"`
	Quantity                   decimal.Decimal `json:"quantity"`
	ContractorID               *int64          `json:"contractorId,omitempty"`
	PackagingType              string          `json:"packagingType,omitempty"`
	NeighborhoodIncomingAmount decimal.Decimal `json:"neighborhoodIncomingAmount"`
	NeighborhoodOutgoingAmount decimal.Decimal `json:"neighborhoodOutgoingAmount"`
	CreatedAt                  time.Time       `json:"createdAt"`
}

func (l *StockLot) Validate() error {
	if !l.Stage.Valid() {
		return NewValidationError("stage", "unknown stock stage")
	}
	if l.ProductName == "" {
		return NewValidationError("productName", "product name is required")
	}
	if !l.Quantity.IsPositive() {
		return NewValidationError("quantity", "quantity must be greater than zero")
	}
	return nil
}

type MovementStatus string

const (
	MovementStatusPending     MovementStatus = "PENDING"
	MovementStatusApplied     MovementStatus = "APPLIED"
	MovementStatusFailed      MovementStatus = "FAILED"
	MovementStatusCompensated MovementStatus = "COMPENSATED"
)

// StockMovement records one move of stock between stages. The record is
// written before the move and carries its outcome.
type StockMovement struct {
	ID                         int64           `json:"id"`
	SourceLotID                int64           `json:"sourceLotId"`
	TargetStage                StockStage      `json:"targetStage"`
	Quantity                   decimal.Decimal `json:"quantity"`
	ContractorID               *int64          `json:"contractorId,omitempty"`
	PackagingType              string          `json:"packagingType,omitempty"`
	NeighborhoodIncomingAmount decimal.Decimal `json:"neighborhoodIncomingAmount"`
	Status                     MovementStatus  `json:"status"`
	ResultLotID                *int64          `json:"resultLotId,omitempty"`
	Error                      string          `json:"error,omitempty"`
	CreatedAt                  time.Time       `json:"createdAt"`
	UpdatedAt                  time.Time       `json:"updatedAt"`
}

// CanTransition reports whether status may move to next.
func (m *StockMovement) CanTransition(next MovementStatus) bool {
	switch m.Status {
	case MovementStatusPending:
		return next == MovementStatusApplied || next == MovementStatusFailed || next == MovementStatusCompensated
	case MovementStatusFailed:
		return next == MovementStatusCompensated
	}
	return false
}
