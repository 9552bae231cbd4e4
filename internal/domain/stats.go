package domain

// StatsPeriod selects the bucket width for ticket statistics.
type StatsPeriod string

const (
	StatsPeriodDay   StatsPeriod = "day"
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
)

// Valid reports whether p is a supported period.
func (p StatsPeriod) Valid() bool {
	return p == StatsPeriodDay || p == StatsPeriodWeek || p == StatsPeriodMonth
}

// TicketStats holds parallel arrays of bucket labels and ticket counts.
type TicketStats struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}
