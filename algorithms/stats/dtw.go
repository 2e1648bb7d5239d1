package stats

import (
	"fmt"
	"math"
)

// DTWAlignment aligns two feature sequences of possibly different lengths.
// Used to compare note sequences (onset, pitch) after a render/decode round trip.
type DTWAlignment struct {
	constraintBand int    // Sakoe-Chiba band constraint, <= 0 disables it
	stepPattern    string // "symmetric2" or "asymmetric"
	distanceMetric DistanceMetric
}

// DTWResult contains DTW alignment results
type DTWResult struct {
	Distance    float64      `json:"distance"`     // Total cost divided by path length
	Total       float64      `json:"total"`        // Accumulated cost
	Path        []AlignPoint `json:"path"`         // Optimal alignment path
	QueryLength int          `json:"query_length"` // Length of query sequence
	RefLength   int          `json:"ref_length"`   // Length of reference sequence
	StepPattern string       `json:"step_pattern"` // Step pattern used
	Constraint  int          `json:"constraint"`   // Band constraint used
}

// AlignPoint represents a point in the alignment path
type AlignPoint struct {
	QueryIndex int     `json:"query_index"` // Index in query sequence
	RefIndex   int     `json:"ref_index"`   // Index in reference sequence
	Cost       float64 `json:"cost"`        // Local cost at this point
}

// NewDTWAlignment creates a new DTW alignment instance
func NewDTWAlignment() *DTWAlignment {
	return &DTWAlignment{
		constraintBand: -1,
		stepPattern:    "symmetric2",
		distanceMetric: EuclideanDistance,
	}
}

// NewDTWAlignmentWithParams creates DTW with custom parameters
func NewDTWAlignmentWithParams(constraintBand int, stepPattern string, metric DistanceMetric) *DTWAlignment {
	return &DTWAlignment{
		constraintBand: constraintBand,
		stepPattern:    stepPattern,
		distanceMetric: metric,
	}
}

// Align performs DTW alignment between two sequences
func (dtw *DTWAlignment) Align(query, reference [][]float64) (*DTWResult, error) {
	if len(query) == 0 || len(reference) == 0 {
		return nil, fmt.Errorf("empty sequences provided")
	}

	queryLen := len(query)
	refLen := len(reference)

	costMatrix := make([][]float64, queryLen+1)
	for i := range costMatrix {
		costMatrix[i] = make([]float64, refLen+1)
		for j := range costMatrix[i] {
			costMatrix[i][j] = math.Inf(1)
		}
	}
	costMatrix[0][0] = 0

	local, err := dtw.fillCostMatrix(costMatrix, query, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to fill cost matrix: %w", err)
	}

	total := costMatrix[queryLen][refLen]
	if math.IsInf(total, 1) {
		return nil, fmt.Errorf("no alignment path within band %d", dtw.constraintBand)
	}

	path := dtw.backtrack(costMatrix, local, queryLen, refLen)

	return &DTWResult{
		Distance:    total / float64(len(path)),
		Total:       total,
		Path:        path,
		QueryLength: queryLen,
		RefLength:   refLen,
		StepPattern: dtw.stepPattern,
		Constraint:  dtw.constraintBand,
	}, nil
}

// fillCostMatrix fills the accumulated cost matrix and returns local costs
func (dtw *DTWAlignment) fillCostMatrix(costMatrix [][]float64, query, reference [][]float64) ([][]float64, error) {
	queryLen := len(query)
	refLen := len(reference)

	distanceFunc := GetDistanceFunction(dtw.distanceMetric)
	local := make([][]float64, queryLen)

	for i := 1; i <= queryLen; i++ {
		local[i-1] = make([]float64, refLen)
		for j := 1; j <= refLen; j++ {
			if dtw.constraintBand > 0 && abs(i-j) > dtw.constraintBand {
				continue
			}
			if len(query[i-1]) != len(reference[j-1]) {
				return nil, fmt.Errorf("dimension mismatch at (%d, %d)", i-1, j-1)
			}

			localDist := distanceFunc(query[i-1], reference[j-1])
			local[i-1][j-1] = localDist

			minCost, err := dtw.applyStepPattern(costMatrix, i, j)
			if err != nil {
				return nil, err
			}
			costMatrix[i][j] = localDist + minCost
		}
	}

	return local, nil
}

// applyStepPattern applies the specified step pattern
func (dtw *DTWAlignment) applyStepPattern(costMatrix [][]float64, i, j int) (float64, error) {
	switch dtw.stepPattern {
	case "symmetric2":
		return math.Min(math.Min(costMatrix[i-1][j], costMatrix[i][j-1]), costMatrix[i-1][j-1]), nil
	case "asymmetric":
		return math.Min(costMatrix[i-1][j], costMatrix[i-1][j-1]), nil
	default:
		return 0, fmt.Errorf("unknown step pattern: %s", dtw.stepPattern)
	}
}

// backtrack walks from the end cell to the origin, preferring the diagonal on ties
func (dtw *DTWAlignment) backtrack(costMatrix, local [][]float64, queryLen, refLen int) []AlignPoint {
	var path []AlignPoint
	i, j := queryLen, refLen

	for i > 0 && j > 0 {
		path = append(path, AlignPoint{QueryIndex: i - 1, RefIndex: j - 1, Cost: local[i-1][j-1]})

		diag := costMatrix[i-1][j-1]
		up := costMatrix[i-1][j]
		left := math.Inf(1)
		if dtw.stepPattern == "symmetric2" {
			left = costMatrix[i][j-1]
		}
		switch {
		case diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}

	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
