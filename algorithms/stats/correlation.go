package stats

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationBank holds a fixed set of template vectors in z-scored form so
// Pearson correlations against a query reduce to one matrix-vector product.
//
// For z-scored x and y of length n, corr(x, y) = x·y / n.
type CorrelationBank struct {
	rows   *mat.Dense
	n      int
	count  int
	degens []bool
}

// NewCorrelationBank z-scores every template. Constant templates correlate to 0.
func NewCorrelationBank(templates [][]float64) (*CorrelationBank, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("no templates provided")
	}
	n := len(templates[0])
	if n < 2 {
		return nil, fmt.Errorf("templates must have at least 2 components, got %d", n)
	}

	data := make([]float64, 0, len(templates)*n)
	degens := make([]bool, len(templates))
	for i, t := range templates {
		if len(t) != n {
			return nil, fmt.Errorf("template %d has length %d, expected %d", i, len(t), n)
		}
		z := zscore(t)
		degens[i] = z == nil
		if z == nil {
			z = make([]float64, n)
		}
		data = append(data, z...)
	}

	return &CorrelationBank{
		rows:   mat.NewDense(len(templates), n, data),
		n:      n,
		count:  len(templates),
		degens: degens,
	}, nil
}

// Len returns the number of templates
func (cb *CorrelationBank) Len() int {
	return cb.count
}

// Correlate returns the Pearson correlation of query with every template.
// A constant query yields all zeros.
func (cb *CorrelationBank) Correlate(query []float64) ([]float64, error) {
	if len(query) != cb.n {
		return nil, fmt.Errorf("query has length %d, expected %d", len(query), cb.n)
	}
	out := make([]float64, cb.count)
	z := zscore(query)
	if z == nil {
		return out, nil
	}

	var product mat.VecDense
	product.MulVec(cb.rows, mat.NewVecDense(cb.n, z))
	for i := range out {
		if cb.degens[i] {
			continue
		}
		out[i] = clampCorrelation(product.AtVec(i) / float64(cb.n))
	}
	return out, nil
}

// CorrelationMatrix returns the pairwise Pearson correlations between rows
func CorrelationMatrix(rows [][]float64) (*mat.Dense, error) {
	bank, err := NewCorrelationBank(rows)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(rows), len(rows), nil)
	for i, r := range rows {
		corr, err := bank.Correlate(r)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, corr)
	}
	return out, nil
}

// zscore returns nil for constant input
func zscore(values []float64) []float64 {
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}
