package enums

import "fmt"

// BatchStatus tracks a pickup batch. active→ready on the buyer's
// checkout-complete signal, ready→completed on pickup confirmation, and
// either non-terminal state →canceled once every attached order is
// refunded.
type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "active"
	BatchStatusReady     BatchStatus = "ready"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusCanceled  BatchStatus = "canceled"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusActive,
	BatchStatusReady,
	BatchStatusCompleted,
	BatchStatusCanceled,
}

var batchStatusTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusActive: {BatchStatusReady, BatchStatusCanceled},
	BatchStatusReady:  {BatchStatusCompleted, BatchStatusCanceled},
}

// String implements fmt.Stringer.
func (b BatchStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BatchStatus.
func (b BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves this status.
func (b BatchStatus) IsTerminal() bool {
	return len(batchStatusTransitions[b]) == 0 && b.IsValid()
}

// CanTransitionTo reports whether the edge b→next is in the lifecycle graph.
func (b BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, candidate := range batchStatusTransitions[b] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
