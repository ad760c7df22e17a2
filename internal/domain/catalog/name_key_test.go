package catalog_test

import (
	"testing"

	"github.com/jhoicas/stockledger/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Café Molido", "cafe molido"},
		{"  CAFÉ   molido ", "cafe molido"},
		{"Azúcar Morena", "azucar morena"},
		{"Piña", "pina"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.NameKey(tt.in))
		})
	}
}

func TestNameKey_MismaClaveParaVariantes(t *testing.T) {
	assert.Equal(t, catalog.NameKey("Jamón Serrano"), catalog.NameKey("jamon  SERRANO"))
}
