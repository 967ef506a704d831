package domain

// ReceiptLineKind тип строки чека. Отрисовкой занимается внешний сервис печати.
type ReceiptLineKind string

const (
	ReceiptHeading   ReceiptLineKind = "heading"
	ReceiptBlank     ReceiptLineKind = "blank"
	ReceiptSeparator ReceiptLineKind = "separator"
	ReceiptKeyValue  ReceiptLineKind = "key_value"
	ReceiptItem      ReceiptLineKind = "item"
	ReceiptTotal     ReceiptLineKind = "total"
	ReceiptStatus    ReceiptLineKind = "status"
)

type ReceiptAlign string

const (
	AlignLeft   ReceiptAlign = "left"
	AlignCenter ReceiptAlign = "center"
	AlignRight  ReceiptAlign = "right"
)

type ReceiptLine struct {
	Kind  ReceiptLineKind `json:"kind"`
	Align ReceiptAlign    `json:"alignment,omitempty"`
	Text  string          `json:"text,omitempty"`
	Key   string          `json:"key,omitempty"`
	Value string          `json:"value,omitempty"`
	Bold  bool            `json:"bold,omitempty"`
	Size  string          `json:"fontsize,omitempty"`
	Lines int             `json:"lines,omitempty"`
}

type Receipt struct {
	Lines []ReceiptLine `json:"data"`
}
