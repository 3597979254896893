package report

import (
	"academy/internal/attendance"
	"academy/internal/roster"
)

// BatchStats aggregates a batch over a filtered slice of the log.
type BatchStats struct {
	Batch      string    `json:"batch"`
	Students   []Summary `json:"students"`
	NoData     []int     `json:"no_data"`
	Total      int       `json:"total_rows"`
	Present    int       `json:"present"`
	Percentage float64   `json:"percentage"`
}

// Batch summarizes every roster member of batch (roster order) over the
// rows that pass f. Students without rows are listed in NoData.
func Batch(records []attendance.Record, students []roster.Student, batch string, f Filter) BatchStats {
	f.Batch = batch
	f.StudentID = 0
	rows := Filtered(records, students, f).Rows

	stats := BatchStats{Batch: batch, Students: []Summary{}, NoData: []int{}}
	for _, st := range students {
		if batch != roster.AllBatches && st.Batch != batch {
			continue
		}
		sum, err := Summarize(rows, st)
		if err != nil {
			stats.NoData = append(stats.NoData, st.ID)
			continue
		}
		stats.Students = append(stats.Students, sum)
		stats.Total += sum.Total
		stats.Present += sum.Present
	}
	if stats.Total > 0 {
		stats.Percentage = Percentage(stats.Present, stats.Total)
	}
	return stats
}
