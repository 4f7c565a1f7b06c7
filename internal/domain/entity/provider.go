package entity

// Provider proveedor al que se emiten órdenes de compra.
type Provider struct {
	ID                string
	Name              string
	TaxID             string
	PreferredCurrency string // vacío = sin preferencia
	Active            bool
}
