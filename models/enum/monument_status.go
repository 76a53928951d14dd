package enum

// MonumentStatus controls whether a monument can be booked.
type MonumentStatus string

const (
	MonumentStatusActive   MonumentStatus = "active"
	MonumentStatusInactive MonumentStatus = "inactive"
)
