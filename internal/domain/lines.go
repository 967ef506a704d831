package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const SaleLinesVersion = 1

// SaleLine строка продажи. Цена, себестоимость и название фиксируются в момент продажи,
// чтобы последующие изменения каталога не меняли историю.
type SaleLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func NewSaleLine(product Product, quantity int64) (SaleLine, error) {
	if quantity <= 0 {
		return SaleLine{}, NewValidationError(ReasonInvalidQuantity, "quantity of product %d must be positive", product.ID)
	}
	if product.ID <= 0 {
		return SaleLine{}, NewValidationError(ReasonMalformed, "product id is required")
	}
	return SaleLine{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: product.Price,
		UnitCost:  product.UnitCost,
		LineTotal: product.Price.Mul(decimal.NewFromInt(quantity)),
	}, nil
}

// Profit прибыль по строке: (цена - себестоимость) * количество.
func (l SaleLine) Profit() decimal.Decimal {
	return l.UnitPrice.Sub(l.UnitCost).Mul(decimal.NewFromInt(l.Quantity))
}

type SaleLines struct {
	Records []SaleLine
}

type saleLinesDocument struct {
	Version int        `json:"version"`
	Records []SaleLine `json:"records"`
}

func (s SaleLines) MarshalJSON() ([]byte, error) {
	records := s.Records
	if records == nil {
		records = []SaleLine{}
	}
	return json.Marshal(saleLinesDocument{Version: SaleLinesVersion, Records: records}) //nolint:wrapcheck
}

func (s *SaleLines) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		s.Records = nil
		return nil
	}
	var doc saleLinesDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return fmt.Errorf("decode sale lines: %w", err)
	}
	if doc.Version != SaleLinesVersion {
		return fmt.Errorf("decode sale lines: unsupported version %d", doc.Version)
	}
	s.Records = doc.Records
	return nil
}
