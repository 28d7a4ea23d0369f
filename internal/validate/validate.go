// Package validate holds the pure structural checks for catalog and
// sale records. No I/O, no retries, deterministic given input.
package validate

import (
	"pos-service/internal/models"
)

// Product checks a catalog entry before it is written or priced.
func Product(p models.Product) error {
	if p.Price < 0 {
		return &models.ValidationError{Field: "precio", Reason: "must be non-negative"}
	}
	if p.Cost < 0 {
		return &models.ValidationError{Field: "costo", Reason: "must be non-negative"}
	}
	if p.Stock < 0 {
		return &models.ValidationError{Field: "stock", Reason: "must be non-negative"}
	}
	return nil
}

// Sale checks a candidate sale before it is appended to the ledger.
func Sale(s models.Sale) error {
	if s.Timestamp.IsZero() {
		return &models.ValidationError{Field: "fecha", Reason: "timestamp missing"}
	}
	if !models.ValidPaymentMethod(s.PaymentMethod) {
		return &models.ValidationError{Field: "metodo_pago", Reason: "unknown payment method"}
	}
	if s.Total < 0 {
		return &models.ValidationError{Field: "total", Reason: "must be non-negative"}
	}
	if len(s.Lines) == 0 {
		return &models.ValidationError{Field: "productos", Reason: "sale has no lines"}
	}

	var sum float64
	for _, line := range s.Lines {
		if line.Quantity <= 0 {
			return &models.ValidationError{Field: "cantidad", Reason: "line quantity must be positive"}
		}
		if line.UnitPrice < 0 {
			return &models.ValidationError{Field: "precio", Reason: "line price must be non-negative"}
		}
		if line.Key.Category == "" || line.Key.Name == "" {
			return &models.ValidationError{Field: "categoria", Reason: "line has no resolvable product"}
		}
		sum += float64(line.Quantity) * line.UnitPrice
	}

	if models.Round2(sum) != models.Round2(s.Total) {
		return &models.ValidationError{Field: "total", Reason: "total does not match sum of lines"}
	}
	return nil
}
