package models

// SeedInventory returns the deterministic fallback catalog used when
// the remote store is unreachable and no snapshot has ever been
// fetched, so the register stays usable offline on first run.
func SeedInventory() Inventory {
	return Inventory{
		"Pastelería": {
			"Dulce Tres Leche (porción)":    {Price: 4.30, Cost: 2.15, Stock: 0},
			"Milhojas Arequipe (porción)":   {Price: 4.30, Cost: 2.15, Stock: 0},
			"Mousse de Chocolate (porción)": {Price: 4.80, Cost: 2.40, Stock: 0},
			"Mousse de Parchita (porción)":  {Price: 3.70, Cost: 1.85, Stock: 1},
			"Ópera (porción)":               {Price: 3.70, Cost: 1.85, Stock: 2},
			"Petit Fours (Mini Dulce)":      {Price: 0.80, Cost: 0.40, Stock: 10},
			"Cheesecake Fresa (porción)":    {Price: 5.40, Cost: 2.70, Stock: 2},
			"Selva Negra (porción)":         {Price: 4.30, Cost: 2.65, Stock: 2},
			"Tartaleta Parchita (porción)":  {Price: 4.30, Cost: 2.65, Stock: 2},
		},
		"Hojaldre": {
			"Hojaldre de Pollo": {Price: 3.50, Cost: 1.75, Stock: 2},
			"Hojaldre de Carne": {Price: 3.00, Cost: 1.50, Stock: 2},
			"Hojaldre de Queso": {Price: 3.00, Cost: 1.50, Stock: 1},
			"Cachito de Queso":  {Price: 3.00, Cost: 1.50, Stock: 2},
			"Cachito de Jamón":  {Price: 3.00, Cost: 1.50, Stock: 2},
			"Croissant":         {Price: 2.60, Cost: 1.30, Stock: 2},
		},
		"Bebidas": {
			"Café Pequeño":       {Price: 1.30, Cost: 0.65, Stock: 200},
			"Café Grande":        {Price: 2.60, Cost: 1.30, Stock: 200},
			"Mocchaccino":        {Price: 3.00, Cost: 1.50, Stock: 200},
			"Cappuccino":         {Price: 3.00, Cost: 1.50, Stock: 200},
			"Jugo Naranja":       {Price: 2.50, Cost: 1.25, Stock: 200},
			"Agua Mineral":       {Price: 2.00, Cost: 1.00, Stock: 8},
			"Té caliente":        {Price: 2.00, Cost: 1.00, Stock: 200},
			"Malta Retornable":   {Price: 1.00, Cost: 0.50, Stock: 11},
			"Papelón con Limón":  {Price: 2.50, Cost: 1.25, Stock: 200},
		},
		"Dulces Secos": {
			"Mini Dulce Manzana":      {Price: 1.25, Cost: 0.625, Stock: 8},
			"Mini Croissant Chocolate": {Price: 0.80, Cost: 0.40, Stock: 2},
			"Palmeras":                {Price: 3.20, Cost: 1.60, Stock: 2},
			"Hojaldre de Manzana":     {Price: 4.00, Cost: 2.00, Stock: 2},
		},
	}
}
