// Package lactation computes 305-day milk yields from test-day records.
package lactation

import (
	"sort"
)

const (
	// StandardLength is the lactation length the totals are normalized to
	StandardLength = 305
	minTestDays    = 2
)

// TestDayRecord is one recorded milking test
type TestDayRecord struct {
	TestID     int64
	DaysInMilk float64
	DailyYield float64
	Parity     int
	HasParity  bool
}

// LactationYield is the computed total for one lactation
type LactationYield struct {
	TestID   int64   `json:"test_id"`
	Total305 float64 `json:"total_305"`
	TestDays int     `json:"test_days"`
}

// TestInterval applies the test interval method to every lactation in records.
// Tests after day 305 are ignored. The first test's yield is assumed from
// calving, consecutive tests are joined by trapezoids and the last test's
// yield is carried to day 306. Lactations with fewer than two tests are
// skipped. Results are ordered by TestID.
func TestInterval(records []TestDayRecord) []LactationYield {
	byLactation := make(map[int64][]TestDayRecord)
	for _, rec := range records {
		if rec.DaysInMilk > StandardLength {
			continue
		}
		byLactation[rec.TestID] = append(byLactation[rec.TestID], rec)
	}

	ids := make([]int64, 0, len(byLactation))
	for id := range byLactation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]LactationYield, 0, len(ids))
	for _, id := range ids {
		tests := byLactation[id]
		if len(tests) < minTestDays {
			continue
		}
		sort.SliceStable(tests, func(i, j int) bool { return tests[i].DaysInMilk < tests[j].DaysInMilk })
		results = append(results, LactationYield{
			TestID:   id,
			Total305: intervalTotal(tests),
			TestDays: len(tests),
		})
	}
	return results
}

func intervalTotal(tests []TestDayRecord) float64 {
	first, last := tests[0], tests[len(tests)-1]

	total := first.DaysInMilk * first.DailyYield
	for i := 0; i+1 < len(tests); i++ {
		width := tests[i+1].DaysInMilk - tests[i].DaysInMilk
		total += width * (tests[i].DailyYield + tests[i+1].DailyYield) / 2
	}
	total += (StandardLength + 1 - last.DaysInMilk) * last.DailyYield
	return total
}

// FirstParity returns, per lactation, the parity of its first record (in
// input order) that has one. Lactations with no parity at all are omitted.
func FirstParity(records []TestDayRecord) map[int64]int {
	out := make(map[int64]int)
	for _, rec := range records {
		if !rec.HasParity {
			continue
		}
		if _, ok := out[rec.TestID]; !ok {
			out[rec.TestID] = rec.Parity
		}
	}
	return out
}
