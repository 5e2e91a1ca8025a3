package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-recon/internal/reconcile/model"
)

func intp(v int) *int { return &v }

func TestExtractCapacity(t *testing.T) {
	cases := []struct {
		title string
		want  *int
	}{
		{"AA SAMSUNG INV 12K", intp(12000)},
		{"Split Samsung 12000 BTU Inverter", intp(12000)},
		{"Split Midea 12 k", intp(12000)},
		{"Aire Acondicionado 18.000 BTU", intp(18000)},
		{"Split 9000btu frio/calor", intp(9000)},
		{"Split LG 24 BTU", intp(24000)},  // small value means thousands
		{"Split Tokyo 61 BTU", intp(61)},  // above the ceiling taken verbatim
		{"Split Carrier 9.000", intp(9000)}, // standard value, no marker
		{"Piso techo 36000 frio", intp(36000)},
		{"Split 36000 BTU/h", intp(36000)},
		{"Ventilador de pie 3 velocidades", nil},
		{"Cortina de aire 90 cm", nil},
		{"", nil},
	}
	for _, c := range cases {
		got := ExtractCapacity(c.title)
		if c.want == nil {
			assert.Nil(t, got, c.title)
			continue
		}
		require.NotNil(t, got, c.title)
		assert.Equal(t, *c.want, *got, c.title)
	}
}

func TestExtractCapacity_MarkerAndWordAgree(t *testing.T) {
	k := ExtractCapacity("Split 12k")
	btu := ExtractCapacity("Split 12000 BTU")
	require.NotNil(t, k)
	require.NotNil(t, btu)
	assert.Equal(t, *k, *btu)
}

func TestIsInverter(t *testing.T) {
	assert.True(t, IsInverter("AA SAMSUNG INV 12K"))
	assert.True(t, IsInverter("Split Samsung 12000 BTU Inverter"))
	assert.True(t, IsInverter("SPLIT LG DUAL INVERTER"))
	assert.True(t, IsInverter("split inv. 18k"))
	assert.False(t, IsInverter("Split JAM 12000 BTU on/off"))
	assert.False(t, IsInverter("Aire de invierno"))
	assert.False(t, IsInverter(""))
}

func TestPrepare(t *testing.T) {
	items := []model.Item{
		{Name: "AA SAMSUNG INV 12K", Price: 100},
		{Name: "Ventilador", Price: 50},
	}
	Prepare(items)
	require.NotNil(t, items[0].Capacity)
	assert.Equal(t, 12000, *items[0].Capacity)
	assert.True(t, items[0].Inverter)
	assert.Nil(t, items[1].Capacity)
	assert.False(t, items[1].Inverter)
}
