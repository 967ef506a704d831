package service

import "github.com/fsdevblog/groph-pos/internal/domain"

type nopMetrics struct{}

func (nopMetrics) OrderCreated()                           {}
func (nopMetrics) SaleCreated(domain.SaleStatusType)       {}
func (nopMetrics) SaleCancelled()                          {}
func (nopMetrics) PaymentAccrued(domain.PaymentMethodType) {}
func (nopMetrics) StockRejected(int64)                     {}
