package domain

import "strings"

type OrderStatusType string

const (
	OrderStatusPending        OrderStatusType = "PENDING"
	OrderStatusProcessing     OrderStatusType = "PROCESSING"
	OrderStatusReadyForPickup OrderStatusType = "READY_FOR_PICKUP"
	OrderStatusCancelled      OrderStatusType = "CANCELLED"
	OrderStatusConverted      OrderStatusType = "CONVERTED"
)

// orderTransitions допустимые переходы заказа. Отсутствие ключа означает терминальный статус.
var orderTransitions = map[OrderStatusType][]OrderStatusType{
	OrderStatusPending:        {OrderStatusProcessing, OrderStatusCancelled, OrderStatusConverted},
	OrderStatusProcessing:     {OrderStatusReadyForPickup, OrderStatusCancelled, OrderStatusConverted},
	OrderStatusReadyForPickup: {OrderStatusCancelled, OrderStatusConverted},
}

// ParseOrderStatus приводит строку к статусу заказа. Регистр не важен.
func ParseOrderStatus(s string) (OrderStatusType, bool) {
	status := OrderStatusType(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusReadyForPickup,
		OrderStatusCancelled, OrderStatusConverted:
		return status, true
	default:
		return "", false
	}
}

func (s OrderStatusType) IsTerminal() bool {
	_, ok := orderTransitions[s]
	return !ok
}

func (s OrderStatusType) CanTransitionTo(target OrderStatusType) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

type SaleStatusType string

const (
	SaleStatusPending   SaleStatusType = "PENDING"
	SaleStatusCompleted SaleStatusType = "COMPLETED"
	SaleStatusCancelled SaleStatusType = "CANCELLED"
)

func (s SaleStatusType) IsTerminal() bool {
	return s == SaleStatusCompleted || s == SaleStatusCancelled
}

// Label человекочитаемое название статуса для чека.
func (s SaleStatusType) Label() string {
	switch s {
	case SaleStatusPending:
		return "Pending"
	case SaleStatusCompleted:
		return "Completed"
	case SaleStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

type PaymentMethodType string

const (
	PaymentMethodCash     PaymentMethodType = "cash"
	PaymentMethodCard     PaymentMethodType = "card"
	PaymentMethodTransfer PaymentMethodType = "transfer"
	PaymentMethodPoints   PaymentMethodType = "points"
)

func ParsePaymentMethod(s string) (PaymentMethodType, bool) {
	m := PaymentMethodType(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodPoints:
		return m, true
	default:
		return "", false
	}
}

// IsMoney true для методов, которыми покупатель платит деньгами (не баллами).
func (m PaymentMethodType) IsMoney() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard || m == PaymentMethodTransfer
}

// SettlesAtCounter true для методов, оплата которыми подтверждается сразу на кассе.
// Перевод требует подтверждения, поэтому продажа остается в ожидании.
func (m PaymentMethodType) SettlesAtCounter() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard
}

type DeliveryType string

const (
	DeliveryPickup DeliveryType = "pickup"
)

// WalkInCustomerRef ссылка на покупателя "с улицы", когда клиент не указан.
const WalkInCustomerRef = "publico-general"
