package service

import (
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentReconciler ведет список платежей продажи и выводит из него статус.
// Статус всегда пересчитывается по записям, флагу "оплачено" от клиента не доверяем.
type PaymentReconciler struct {
	now func() time.Time
}

func NewPaymentReconciler() *PaymentReconciler {
	return &PaymentReconciler{now: time.Now}
}

// InitialLedger формирует платежи при создании продажи: одна денежная запись (если amountPaid > 0)
// и запись баллами (если pointsUsed > 0).
func (r *PaymentReconciler) InitialLedger(
	method domain.PaymentMethodType,
	amountPaid decimal.Decimal,
	pointsUsed decimal.Decimal,
) (domain.PaymentLedger, error) {
	if amountPaid.IsNegative() {
		return domain.PaymentLedger{}, domain.NewValidationError(domain.ReasonInvalidAmount, "amount paid must not be negative")
	}
	if pointsUsed.IsNegative() {
		return domain.PaymentLedger{}, domain.NewValidationError(domain.ReasonInvalidAmount, "points used must not be negative")
	}

	var ledger domain.PaymentLedger
	now := r.now()

	if amountPaid.IsPositive() {
		if !method.IsMoney() {
			return domain.PaymentLedger{}, domain.NewValidationError(
				domain.ReasonInvalidMethod,
				"`%s` is not a money payment method",
				method,
			)
		}
		record, err := domain.NewPaymentRecord(now, method, amountPaid)
		if err != nil {
			return domain.PaymentLedger{}, err
		}
		ledger = ledger.Append(record)
	}

	if pointsUsed.IsPositive() {
		record, err := domain.NewPaymentRecord(now, domain.PaymentMethodPoints, pointsUsed)
		if err != nil {
			return domain.PaymentLedger{}, err
		}
		ledger = ledger.Append(record)
	}
	return ledger, nil
}

// InitialStatus статус новой продажи. Продажа сразу завершена, если платить нечего,
// или если метод подтверждается на кассе и внесенная сумма вместе с баллами покрывает итог после баллов.
func (r *PaymentReconciler) InitialStatus(
	method domain.PaymentMethodType,
	amountPaid decimal.Decimal,
	pointsUsed decimal.Decimal,
	netTotal decimal.Decimal,
) domain.SaleStatusType {
	if !netTotal.IsPositive() {
		return domain.SaleStatusCompleted
	}
	if method.SettlesAtCounter() && amountPaid.Add(pointsUsed).GreaterThanOrEqual(netTotal) {
		return domain.SaleStatusCompleted
	}
	return domain.SaleStatusPending
}

// Settle статус по фактическим записям: сумма всех записей, включая баллы, против итога после баллов.
func (r *PaymentReconciler) Settle(sale *domain.Sale, ledger domain.PaymentLedger) domain.SaleStatusType {
	if ledger.Paid().GreaterThanOrEqual(sale.Total) {
		return domain.SaleStatusCompleted
	}
	return domain.SaleStatusPending
}

// Accrue добавляет частичный платеж к продаже в ожидании.
func (r *PaymentReconciler) Accrue(
	sale *domain.Sale,
	method domain.PaymentMethodType,
	amount decimal.Decimal,
) (domain.PaymentLedger, domain.SaleStatusType, error) {
	if sale.Status != domain.SaleStatusPending {
		return sale.Payments, sale.Status, domain.NewConflictError(
			domain.EntitySale,
			"cannot accrue payment to %s sale",
			sale.Status,
		)
	}
	if !method.IsMoney() {
		return sale.Payments, sale.Status, domain.NewValidationError(
			domain.ReasonInvalidMethod,
			"`%s` cannot be used for a partial payment",
			method,
		)
	}
	if !amount.IsPositive() {
		return sale.Payments, sale.Status, domain.NewValidationError(
			domain.ReasonInvalidAmount,
			"amount %s must be positive",
			amount,
		)
	}

	record, err := domain.NewPaymentRecord(r.now(), method, amount)
	if err != nil {
		return sale.Payments, sale.Status, err
	}
	ledger := sale.Payments.Append(record)
	return ledger, r.Settle(sale, ledger), nil
}

// Remove удаляет платеж по индексу в отсортированном по времени списке.
func (r *PaymentReconciler) Remove(sale *domain.Sale, index int) (domain.PaymentLedger, domain.SaleStatusType, error) {
	if sale.Status != domain.SaleStatusPending {
		return sale.Payments, sale.Status, domain.NewConflictError(
			domain.EntitySale,
			"cannot remove payment from %s sale",
			sale.Status,
		)
	}
	ledger, removed, err := sale.Payments.RemoveAt(index)
	if err != nil {
		return sale.Payments, sale.Status, err
	}
	// баллы уже списаны с клиента, запись о них удалять нельзя.
	if removed.Method == domain.PaymentMethodPoints {
		return sale.Payments, sale.Status, domain.NewConflictError(
			domain.EntitySale,
			"points redemption record %d cannot be removed",
			index,
		)
	}
	return ledger, r.Settle(sale, ledger), nil
}
