package sensor

import (
	"time"
)

// Reading is a timestamped, display-ready sample: the shape the
// datastream handlers and the webservice publish.
type Reading struct {
	Name    string    `json:"Name"`
	Kind    string    `json:"Kind"`
	Value   float64   `json:"Value"`
	Display string    `json:"Display"`
	Symbol  string    `json:"Symbol"`
	At      time.Time `json:"At"`
}

// NewReading flattens a decoded value for publication. The numeric Value
// field carries the physical quantity, the integer, or the enumeration
// index; raw-register samples publish zero and keep their words in
// Display.
func NewReading(meta Meta, v Value, at time.Time) (Reading, error) {
	display, err := v.Format(meta.RegisterCount)
	if err != nil {
		return Reading{}, err
	}

	r := Reading{
		Name:    meta.Name,
		Kind:    v.Kind.String(),
		Display: display,
		At:      at,
	}

	switch v.Kind {
	case Integer:
		r.Value = float64(v.Integer)
	case Physical:
		r.Value = v.Physical
		if unit, ok := UnitByID(v.Unit); ok {
			r.Symbol = unit.Symbol
		}
	case Enumeration:
		r.Value = float64(v.EnumIndex)
	}
	return r, nil
}
