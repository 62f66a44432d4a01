package leave

import "github.com/shopspring/decimal"

// =============================================================================
// STATS - Aggregate figures over a set of leaves
// =============================================================================

// Stats summarizes leave requests. Days are inclusive calendar days.
type Stats struct {
	Total       int
	ByStatus    map[Status]int
	TotalDays   int
	AverageDays decimal.Decimal // rounded to 2 places
}

func ComputeStats(leaves []LeaveRequest) Stats {
	st := Stats{
		ByStatus: map[Status]int{
			StatusPending:  0,
			StatusApproved: 0,
			StatusRejected: 0,
		},
		AverageDays: decimal.Zero,
	}

	for _, l := range leaves {
		st.Total++
		st.ByStatus[l.Status]++
		st.TotalDays += l.Days()
	}

	if st.Total > 0 {
		st.AverageDays = decimal.NewFromInt(int64(st.TotalDays)).
			Div(decimal.NewFromInt(int64(st.Total))).
			Round(2)
	}
	return st
}
