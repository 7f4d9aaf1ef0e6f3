package models

// MonthCount is one month bucket of an analytics series.
type MonthCount struct {
	Year  int    `json:"year"`
	Month int    `json:"month"` // 1-12
	Label string `json:"label"` // e.g. "Jan 2026"
	Count int64  `json:"count"`
}

// Series is a 12-month window plus its year-over-year trend.
type Series struct {
	Name          string       `json:"name"`
	Months        []MonthCount `json:"months"`
	Total         int64        `json:"total"`
	PreviousTotal int64        `json:"previousTotal"`
	Trend         string       `json:"trend"`
}

// Dashboard is the analytics response.
type Dashboard struct {
	Volunteers    Series `json:"volunteers"`
	Organizers    Series `json:"organizers"`
	Events        Series `json:"events"`
	Registrations Series `json:"registrations"`
}
