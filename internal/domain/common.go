package domain

// PositionStatus represents the lifecycle state of a position.
type PositionStatus string

const (
	StatusActive PositionStatus = "active"
	StatusClosed PositionStatus = "closed"
)

// ReduceReason indicates why a position's quantity was reduced.
type ReduceReason string

const (
	ReasonAutoScaleOut ReduceReason = "auto-scale-out"
	ReasonManual       ReduceReason = "manual"
	ReasonManualClose  ReduceReason = "manual-close"
)

// IsAutomatic reports whether the reduction was triggered by the scale-out
// policy rather than a user command.
func (r ReduceReason) IsAutomatic() bool {
	return r == ReasonAutoScaleOut
}
