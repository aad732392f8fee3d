package quest

import "github.com/shopspring/decimal"

// Strategy is a static catalog entry describing one mitigation the user may
// opt into.
type Strategy struct {
	ID             string          `json:"id"`
	Label          string          `json:"label"`
	MonthlyImpact  decimal.Decimal `json:"monthlyImpact"`
	Protection     bool            `json:"protection"`
	RequiresAction bool            `json:"requiresAction"`
}

// Catalog indexes strategies by id.
type Catalog map[string]Strategy

// NewCatalog builds a catalog from a list of strategies.
func NewCatalog(strategies ...Strategy) Catalog {
	c := make(Catalog, len(strategies))
	for _, s := range strategies {
		c[s.ID] = s
	}
	return c
}

// Lookup returns the strategy with the given id.
func (c Catalog) Lookup(id string) (Strategy, bool) {
	s, ok := c[id]
	return s, ok
}

// RequiresAction reports whether any selected strategy needs an external
// action before the quest can be completed.
func (c Catalog) RequiresAction(d Data) bool {
	for id := range d.SelectedStrategies {
		if s, ok := c[id]; ok && s.RequiresAction {
			return true
		}
	}
	return false
}
