package attr

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the defined values of one column.
type Summary struct {
	Column    string  `json:"column"`
	Defined   int     `json:"defined"`
	Undefined int     `json:"undefined"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
}

// Summarize computes statistics over the defined cells of column h.
// Min, Max, Mean and StdDev are zero when no cell is defined.
func (s *Store) Summarize(h ColumnHandle) (Summary, error) {
	name, err := s.Name(h)
	if err != nil {
		return Summary{}, err
	}
	vals, err := s.Values(h)
	if err != nil {
		return Summary{}, err
	}
	return summarize(name, vals), nil
}

func summarize(name string, vals []float64) Summary {
	defined := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !IsUndefined(v) {
			defined = append(defined, v)
		}
	}
	sum := Summary{Column: name, Defined: len(defined), Undefined: len(vals) - len(defined)}
	if len(defined) == 0 {
		return sum
	}
	sum.Min = floats.Min(defined)
	sum.Max = floats.Max(defined)
	sum.Mean, sum.StdDev = stat.MeanStdDev(defined, nil)
	if len(defined) == 1 {
		sum.StdDev = 0
	}
	return sum
}
