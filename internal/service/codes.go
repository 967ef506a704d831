package service

import (
	"fmt"
	"sync/atomic"
	"time"
)

const codeSequenceModulo = 10000

// codeGenerator выдает человекочитаемые номера вида PREFIX-<unix ms>-<seq>.
// Счетчик процесса различает номера, выданные в одну миллисекунду.
type codeGenerator struct {
	prefix string
	seq    atomic.Uint32
	now    func() time.Time
}

func newCodeGenerator(prefix string) *codeGenerator {
	return &codeGenerator{prefix: prefix, now: time.Now}
}

func (g *codeGenerator) Next() string {
	n := g.seq.Add(1) % codeSequenceModulo
	return fmt.Sprintf("%s-%d-%04d", g.prefix, g.now().UnixMilli(), n)
}
