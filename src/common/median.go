package common

import (
	"sort"
	"time"
)

// Median gets the median number in a slice of numbers
func Median(input []int64) (median int64) {
	s := make([]int64, len(input))
	copy(s, input)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })

	l := len(s)
	if l == 0 {
		return 0
	} else if l%2 == 0 {
		mid := l/2 - 1
		median = (s[mid] + s[mid+1]) / 2
	} else {
		median = s[l/2]
	}

	return median
}

// MedianTimestamp returns the median of a slice of timestamps. With an even
// number of inputs the later of the two middle timestamps is used, which keeps
// the result equal to one of the inputs; averaging would not.
func MedianTimestamp(input []time.Time) time.Time {
	if len(input) == 0 {
		return time.Time{}
	}

	s := make([]time.Time, len(input))
	copy(s, input)
	sort.Slice(s, func(i, j int) bool { return s[i].Before(s[j]) })

	return s[len(s)/2]
}
