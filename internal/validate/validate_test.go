package validate

import (
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct(t *testing.T) {
	tests := []struct {
		name    string
		product models.Product
		wantErr bool
	}{
		{"valid", models.Product{Price: 2.60, Cost: 1.30, Stock: 200}, false},
		{"zero values", models.Product{}, false},
		{"negative price", models.Product{Price: -0.01, Cost: 1, Stock: 1}, true},
		{"negative cost", models.Product{Price: 1, Cost: -1, Stock: 1}, true},
		{"negative stock", models.Product{Price: 1, Cost: 1, Stock: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Product(tt.product)
			if tt.wantErr {
				var val *models.ValidationError
				assert.ErrorAs(t, err, &val)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func validSale() models.Sale {
	return models.Sale{
		ID:        "s1",
		Timestamp: time.Now(),
		Lines: []models.CartLine{
			{
				Key:       models.ProductKey{Category: "Bebidas", Name: "Café Grande"},
				Quantity:  5,
				UnitPrice: 2.60,
				UnitCost:  1.30,
			},
		},
		Total:         13.00,
		PaymentMethod: models.PaymentCash,
	}
}

func TestSaleValid(t *testing.T) {
	require.NoError(t, Sale(validSale()))
}

func TestSaleRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Sale)
	}{
		{"missing timestamp", func(s *models.Sale) { s.Timestamp = time.Time{} }},
		{"unknown payment method", func(s *models.Sale) { s.PaymentMethod = "Trueque" }},
		{"negative total", func(s *models.Sale) { s.Total = -1 }},
		{"no lines", func(s *models.Sale) { s.Lines = nil }},
		{"zero quantity line", func(s *models.Sale) { s.Lines[0].Quantity = 0 }},
		{"negative unit price", func(s *models.Sale) { s.Lines[0].UnitPrice = -2.60 }},
		{"unresolvable category", func(s *models.Sale) { s.Lines[0].Key.Category = "" }},
		{"total mismatch", func(s *models.Sale) { s.Total = 12.00 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSale()
			tt.mutate(&s)

			var val *models.ValidationError
			assert.ErrorAs(t, Sale(s), &val)
		})
	}
}

func TestSaleDeterministic(t *testing.T) {
	s := validSale()
	first := Sale(s)
	second := Sale(s)
	assert.Equal(t, first, second)
}
