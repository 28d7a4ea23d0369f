package models

import (
	"fmt"
	"math"
	"time"
)

// ProductKey identifies a catalog entry. Category and name are
// case-sensitive and stable for the lifetime of the product.
type ProductKey struct {
	Category string `json:"categoria"`
	Name     string `json:"producto"`
}

func (k ProductKey) String() string {
	return k.Category + "/" + k.Name
}

// Path returns the remote path of the full product record.
func (k ProductKey) Path() string {
	return fmt.Sprintf("/inventory/%s/%s", k.Category, k.Name)
}

// Product is a catalog entry. Wire names match the original database
// fields so existing remote data stays readable.
type Product struct {
	Price float64 `json:"precio"`
	Cost  float64 `json:"costo"`
	Stock int     `json:"stock"`
}

// Inventory is the full catalog tree: category -> product name -> Product.
type Inventory map[string]map[string]Product

// Clone returns a deep copy so cache readers never alias cache state.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for cat, products := range inv {
		cp := make(map[string]Product, len(products))
		for name, p := range products {
			cp[name] = p
		}
		out[cat] = cp
	}
	return out
}

// CartLine is one reserved line in a cart. UnitPrice and UnitCost are
// snapshotted when the line is created and never re-read from the
// catalog, so an in-flight sale is immune to concurrent price edits.
type CartLine struct {
	Key       ProductKey `json:"key"`
	Quantity  int        `json:"cantidad"`
	UnitPrice float64    `json:"precio"`
	UnitCost  float64    `json:"costo"`
}

// Subtotal is quantity times the snapshotted unit price.
func (l CartLine) Subtotal() float64 {
	return Round2(float64(l.Quantity) * l.UnitPrice)
}

// Sale is a committed transaction. Immutable once appended.
type Sale struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"fecha"`
	Lines         []CartLine `json:"productos"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"metodo_pago"`
}

// Payment methods accepted at the register.
const (
	PaymentCash         = "Efectivo"
	PaymentDebitCard    = "Tarjeta Débito"
	PaymentCreditCard   = "Tarjeta Crédito"
	PaymentBankTransfer = "Transferencia"
)

// PaymentMethods is the fixed set of accepted payment methods.
var PaymentMethods = []string{
	PaymentCash,
	PaymentDebitCard,
	PaymentCreditCard,
	PaymentBankTransfer,
}

// ValidPaymentMethod reports whether m is in the accepted set.
func ValidPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// Round2 rounds a monetary amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
