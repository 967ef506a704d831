package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentLedgerVersion текущая версия формата документа платежей.
const PaymentLedgerVersion = 1

type PaymentRecord struct {
	PaidAt time.Time         `json:"paid_at"`
	Method PaymentMethodType `json:"method"`
	Amount decimal.Decimal   `json:"amount"`
}

func NewPaymentRecord(paidAt time.Time, method PaymentMethodType, amount decimal.Decimal) (PaymentRecord, error) {
	if _, ok := ParsePaymentMethod(string(method)); !ok {
		return PaymentRecord{}, NewValidationError(ReasonInvalidMethod, "unknown payment method `%s`", method)
	}
	if amount.IsNegative() {
		return PaymentRecord{}, NewValidationError(ReasonInvalidAmount, "amount %s must not be negative", amount)
	}
	if paidAt.IsZero() {
		return PaymentRecord{}, NewValidationError(ReasonMalformed, "payment timestamp is required")
	}
	return PaymentRecord{PaidAt: paidAt.UTC(), Method: method, Amount: amount}, nil
}

// PaymentLedger список платежей продажи. Порядок по времени платежа значим: по нему
// адресуются записи при удалении.
type PaymentLedger struct {
	Records []PaymentRecord
}

// Sorted возвращает копию записей, отсортированную по времени платежа (стабильно).
func (l PaymentLedger) Sorted() []PaymentRecord {
	records := slices.Clone(l.Records)
	slices.SortStableFunc(records, func(a, b PaymentRecord) int {
		return a.PaidAt.Compare(b.PaidAt)
	})
	return records
}

func (l PaymentLedger) Append(record PaymentRecord) PaymentLedger {
	records := make([]PaymentRecord, 0, len(l.Records)+1)
	records = append(records, l.Records...)
	return PaymentLedger{Records: append(records, record)}
}

// RemoveAt удаляет запись по индексу в отсортированном по времени списке.
// Исходный документ не изменяется.
func (l PaymentLedger) RemoveAt(index int) (PaymentLedger, PaymentRecord, error) {
	sorted := l.Sorted()
	if index < 0 || index >= len(sorted) {
		return l, PaymentRecord{}, NewValidationError(
			ReasonInvalidIndex,
			"payment index %d out of range [0, %d)",
			index,
			len(sorted),
		)
	}
	removed := sorted[index]
	return PaymentLedger{Records: slices.Delete(sorted, index, index+1)}, removed, nil
}

// Paid сумма всех записей, включая оплату баллами.
func (l PaymentLedger) Paid() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range l.Records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

func (l PaymentLedger) Len() int {
	return len(l.Records)
}

type paymentLedgerDocument struct {
	Version int             `json:"version"`
	Records []PaymentRecord `json:"records"`
}

func (l PaymentLedger) MarshalJSON() ([]byte, error) {
	records := l.Records
	if records == nil {
		records = []PaymentRecord{}
	}
	return json.Marshal(paymentLedgerDocument{Version: PaymentLedgerVersion, Records: records}) //nolint:wrapcheck
}

// UnmarshalJSON понимает текущий версионированный документ и старый формат "голым" массивом.
func (l *PaymentLedger) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		l.Records = nil
		return nil
	}
	if trimmed[0] == '[' {
		var records []PaymentRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return fmt.Errorf("decode legacy payment ledger: %w", err)
		}
		l.Records = records
		return nil
	}

	var doc paymentLedgerDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return fmt.Errorf("decode payment ledger: %w", err)
	}
	if doc.Version != PaymentLedgerVersion {
		return fmt.Errorf("decode payment ledger: unsupported version %d", doc.Version)
	}
	l.Records = doc.Records
	return nil
}
