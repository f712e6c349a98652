// Package refs generates the human-facing reference numbers printed on
// orders, payments and invoices, plus the mock gateway's transaction ids.
package refs

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.jetify.com/typeid/v2"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns a generator seeded from the runtime.
func New() *Generator {
	return NewWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()), time.Now)
}

// NewWithSource is used by tests that need reproducible references.
func NewWithSource(src rand.Source, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rand.New(src), now: now}
}

// OrderNumber renders WJ<unix-ms><4 digits>.
func (g *Generator) OrderNumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("WJ%d%04d", g.now().UnixMilli(), g.rng.IntN(10000))
}

// PaymentRef renders PAY<unix-ms><6 alphanumerics>.
func (g *Generator) PaymentRef() string {
	return "PAY" + g.stamped(6)
}

// InvoiceNumber renders INV<unix-ms><4 alphanumerics>.
func (g *Generator) InvoiceNumber() string {
	return "INV" + g.stamped(4)
}

// MonthlyInvoiceNumber renders MINV<unix-ms><4 alphanumerics>.
func (g *Generator) MonthlyInvoiceNumber() string {
	return "MINV" + g.stamped(4)
}

func (g *Generator) stamped(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "%d", g.now().UnixMilli())
	for i := 0; i < n; i++ {
		b.WriteByte(alphanumeric[g.rng.IntN(len(alphanumeric))])
	}
	return b.String()
}

// TransactionID returns a type-prefixed, sortable id such as txn_01h...
func TransactionID() (string, error) {
	return prefixed("txn")
}

// GatewayOrderID returns a type-prefixed id for the gateway-side order.
func GatewayOrderID() (string, error) {
	return prefixed("gwo")
}

// RequestID returns a req_-prefixed id for correlating one HTTP request.
func RequestID() (string, error) {
	return prefixed("req")
}

func prefixed(prefix string) (string, error) {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return tid.String(), nil
}

// HasPrefix reports whether value is a well-formed typeid carrying prefix.
func HasPrefix(value, prefix string) bool {
	tid, err := typeid.Parse(value)
	if err != nil {
		return false
	}
	return tid.Prefix() == prefix
}
