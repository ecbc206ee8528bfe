package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryPathExtend(t *testing.T) {
	root := CategoryPath{"Consoles"}
	retro := root.Extend("Retro")
	modern := root.Extend("Modern")

	assert.Equal(t, CategoryPath{"Consoles"}, root)
	assert.Equal(t, CategoryPath{"Consoles", "Retro"}, retro)
	assert.Equal(t, CategoryPath{"Consoles", "Modern"}, modern)

	// Extending a sibling must not clobber the other sibling's segments.
	_ = retro.Extend("Sega")
	assert.Equal(t, CategoryPath{"Consoles", "Modern"}, modern)
}

func TestBatchGroupPreservesDiscoveryOrder(t *testing.T) {
	batch := Batch{Units: []Unit{
		{Barserial: "B", UnitCost: 4.00},
		{Barserial: "A", UnitCost: 1.50},
		{Barserial: "B", UnitCost: 4.00},
		{Barserial: "A", UnitCost: 1.50},
		{Barserial: "A", UnitCost: 1.50},
	}}

	groups := batch.Group()
	require.Len(t, groups, 2)

	assert.Equal(t, "B", groups[0].Barserial)
	assert.Equal(t, 2, groups[0].Quantity())
	assert.InDelta(t, 4.00, groups[0].CostPerUnit(), 1e-9)

	assert.Equal(t, "A", groups[1].Barserial)
	assert.Equal(t, 3, groups[1].Quantity())
	assert.InDelta(t, 1.50, groups[1].CostPerUnit(), 1e-9)
}

func TestGroupFirstCostStaysCanonical(t *testing.T) {
	batch := Batch{Units: []Unit{
		{Barserial: "A", UnitCost: 1.50},
		{Barserial: "A", UnitCost: 9.99},
	}}

	groups := batch.Group()
	require.Len(t, groups, 1)
	assert.InDelta(t, 1.50, groups[0].CostPerUnit(), 1e-9)
	assert.InDelta(t, 3.00, batch.Total(), 1e-9)
}

func TestBatchTotal(t *testing.T) {
	batch := Batch{Units: []Unit{
		{Barserial: "A", UnitCost: 1.50},
		{Barserial: "A", UnitCost: 1.50},
		{Barserial: "A", UnitCost: 1.50},
		{Barserial: "B", UnitCost: 4.00},
		{Barserial: "B", UnitCost: 4.00},
	}}
	assert.InDelta(t, 12.50, batch.Total(), 1e-9)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "17.50", want: 17.50},
		{in: "£17.50", want: 17.50},
		{in: "£1,204.50", want: 1204.50},
		{in: " 45.00 ", want: 45.00},
		{in: "-3.25", want: -3.25},
		{in: "free", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}
