package types

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// CalculateSubmissionMedian combines submissions slot by slot. Each output slot
// is the median of that slot across all submissions. For an even number of
// submissions the two central values are averaged with floor division, so
// [10,20,30,40] yields 25 and [1,2] yields 1.
func CalculateSubmissionMedian(submissions []Submission) (Submission, error) {
	if len(submissions) == 0 {
		return Submission{}, ErrEmptyInput
	}

	width := len(submissions[0].Values)
	for i, s := range submissions {
		if len(s.Values) != width {
			return Submission{}, errorsmod.Wrapf(ErrWrongValuesCount, "submission %d has %d values, expected %d", i, len(s.Values), width)
		}
	}

	result := Submission{Values: make([]math.Uint, width)}
	column := make([]math.Uint, len(submissions))
	for slot := 0; slot < width; slot++ {
		for i, s := range submissions {
			column[i] = s.Values[slot]
		}
		result.Values[slot] = calculateMedian(column)
	}
	return result, nil
}

// calculateMedian sorts a copy of values and returns its median.
func calculateMedian(values []math.Uint) math.Uint {
	sorted := make([]math.Uint, len(values))
	copy(sorted, values)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LT(sorted[j])
	})

	n := len(sorted)
	if n%2 == 0 {
		return floorMean(sorted[n/2-1], sorted[n/2])
	}
	return sorted[n/2]
}

// floorMean is floor((a+b)/2) without forming a+b, which can exceed 256 bits.
func floorMean(a, b math.Uint) math.Uint {
	two := math.NewUint(2)
	carry := a.Mod(two).Add(b.Mod(two)).QuoUint64(2)
	return a.QuoUint64(2).Add(b.QuoUint64(2)).Add(carry)
}
