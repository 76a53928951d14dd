package enum

// UsageStatus describes how much of a paid booking has been used at the gate.
type UsageStatus string

const (
	UsageStatusActive        UsageStatus = "Active"
	UsageStatusPartiallyUsed UsageStatus = "Partially Used"
	UsageStatusUsed          UsageStatus = "Used"
	UsageStatusExpired       UsageStatus = "Expired"
)
