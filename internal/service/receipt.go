package service

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
)

const (
	receiptItemWidth  = 40
	receiptDateLayout = "2006-01-02 15:04"
	receiptFontLarge  = "large"
)

type receiptParty struct {
	Customer string
	Employee string
}

// buildReceipt раскладка чека для сервиса печати. Названия товаров обрезаются и дополняются
// пробелами до ширины колонки.
func buildReceipt(storeName string, sale *domain.Sale, party receiptParty) domain.Receipt {
	lines := []domain.ReceiptLine{
		{Kind: domain.ReceiptHeading, Align: domain.AlignCenter, Text: storeName, Bold: true, Size: receiptFontLarge},
		{Kind: domain.ReceiptBlank, Lines: 1},
		{Kind: domain.ReceiptKeyValue, Key: "Folio", Value: sale.Folio},
		{Kind: domain.ReceiptKeyValue, Key: "Date", Value: sale.CreatedAt.In(time.Local).Format(receiptDateLayout)},
		{Kind: domain.ReceiptKeyValue, Key: "Customer", Value: party.Customer},
		{Kind: domain.ReceiptKeyValue, Key: "Employee", Value: party.Employee},
		{Kind: domain.ReceiptSeparator},
	}

	for _, line := range sale.Lines.Records {
		lines = append(lines, domain.ReceiptLine{
			Kind:  domain.ReceiptItem,
			Align: domain.AlignLeft,
			Text:  fmt.Sprintf("%d x %s", line.Quantity, fitColumn(line.Name, receiptItemWidth)),
			Value: line.LineTotal.StringFixed(2), //nolint:mnd
		})
	}

	lines = append(lines,
		domain.ReceiptLine{Kind: domain.ReceiptSeparator},
		domain.ReceiptLine{
			Kind:  domain.ReceiptTotal,
			Align: domain.AlignRight,
			Key:   "Total",
			Value: sale.Total.StringFixed(2), //nolint:mnd
			Bold:  true,
		},
		domain.ReceiptLine{Kind: domain.ReceiptStatus, Align: domain.AlignCenter, Text: sale.Status.Label()},
	)
	return domain.Receipt{Lines: lines}
}

// fitColumn обрезает строку до width рун или дополняет ее пробелами справа.
func fitColumn(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return fmt.Sprintf("%-*s", width, s)
}
