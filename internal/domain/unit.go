package domain

// Unit is one physical item to be entered into the cart individually. All
// units expanded from one input row share the same derived unit cost.
type Unit struct {
	Barserial string  `json:"barserial"`
	UnitCost  float64 `json:"unit_cost"`
}

// Batch is a consecutive, size-bounded slice of the unit sequence. Each batch
// owns one remote cart for the duration of its processing; cart identifiers
// are assigned by the remote application and never reused across batches.
type Batch struct {
	Units []Unit `json:"units"`
}

// GroupedItem collects every unit of one barserial within a batch.
type GroupedItem struct {
	Barserial string    `json:"barserial"`
	UnitCosts []float64 `json:"unit_costs"`
}

func (g GroupedItem) Quantity() int {
	return len(g.UnitCosts)
}

// CostPerUnit is the first unit's cost. Units of one barserial are expected
// to carry identical costs; when input rows disagree, the first occurrence
// stays canonical.
func (g GroupedItem) CostPerUnit() float64 {
	if len(g.UnitCosts) == 0 {
		return 0
	}
	return g.UnitCosts[0]
}

// Group partitions the batch by barserial, preserving discovery order. The
// pricing form is indexed by this order, zero-based.
func (b Batch) Group() []GroupedItem {
	index := make(map[string]int)
	groups := make([]GroupedItem, 0, len(b.Units))
	for _, u := range b.Units {
		i, ok := index[u.Barserial]
		if !ok {
			i = len(groups)
			index[u.Barserial] = i
			groups = append(groups, GroupedItem{Barserial: u.Barserial})
		}
		groups[i].UnitCosts = append(groups[i].UnitCosts, u.UnitCost)
	}
	return groups
}

// Total is the amount the checkout driver pays for this batch: quantity times
// canonical unit cost per distinct barserial, computed from our own data and
// never read off the page.
func (b Batch) Total() float64 {
	total := 0.0
	for _, g := range b.Group() {
		total += float64(g.Quantity()) * g.CostPerUnit()
	}
	return total
}

func (b Batch) Barserials() []string {
	out := make([]string, 0, len(b.Units))
	seen := make(map[string]bool)
	for _, u := range b.Units {
		if !seen[u.Barserial] {
			seen[u.Barserial] = true
			out = append(out, u.Barserial)
		}
	}
	return out
}
