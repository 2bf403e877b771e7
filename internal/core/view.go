package core

// DayTotal is the signed total of one calendar day.
type DayTotal struct {
	Date Date  `json:"date"`
	Net  Money `json:"net"`
}

// View is the derived, read-only picture of the ledger for a visible window
// and kind filter. It feeds the calendar, the chart and the history list.
type View struct {
	InRange      []Transaction `json:"in_range"`
	Filtered     []Transaction `json:"filtered"`
	NetTotal     Money         `json:"net_total"`
	IncomeTotal  Money         `json:"income_total"`
	ExpenseTotal Money         `json:"expense_total"`
	PerDay       []DayTotal    `json:"per_day"`
}

// CalendarEvent is one entry of the agenda/month calendar.
type CalendarEvent struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	Date  Date   `json:"date"`
	Kind  Kind   `json:"type"`
}
