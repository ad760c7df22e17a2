package stock

import "github.com/shopspring/decimal"

// UnitCost reparte un costo total entre qty unidades; cero si qty no es positiva.
func UnitCost(total, qty decimal.Decimal) decimal.Decimal {
	if !qty.IsPositive() {
		return decimal.Zero
	}
	return total.Div(qty)
}

// DeriveTaxRate obtiene la tasa a partir de los costos con y sin impuesto (incl/excl - 1).
func DeriveTaxRate(inclTax, exclTax decimal.Decimal) decimal.Decimal {
	if !exclTax.IsPositive() {
		return decimal.Zero
	}
	return inclTax.Div(exclTax).Sub(decimal.NewFromInt(1)).Round(6)
}
