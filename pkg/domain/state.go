package domain

// ProduceStatus is the lifecycle position of a produce batch.
type ProduceStatus string

const (
	StatusHarvested       ProduceStatus = "harvested"        // Logged by the farmer
	StatusPickedUp        ProduceStatus = "picked_up"        // Collected by a transporter
	StatusInTransit       ProduceStatus = "in_transit"       // Pickup acknowledged by the farmer
	StatusDelivered       ProduceStatus = "delivered"        // Arrived at destination
	StatusQualityVerified ProduceStatus = "quality_verified" // Passed quality inspection
	StatusDisputed        ProduceStatus = "disputed"         // Side branch, reachable after pickup
)

// rank orders the main path. Disputed sits outside it.
var rank = map[ProduceStatus]int{
	StatusHarvested:       1,
	StatusPickedUp:        2,
	StatusInTransit:       3,
	StatusDelivered:       4,
	StatusQualityVerified: 5,
}

// Valid reports whether s is a declared status.
func (s ProduceStatus) Valid() bool {
	_, ok := rank[s]
	return ok || s == StatusDisputed
}

// Disputable reports whether a dispute may branch off from s.
func (s ProduceStatus) Disputable() bool {
	return rank[s] >= rank[StatusPickedUp]
}

// In reports whether s is one of the given statuses.
func (s ProduceStatus) In(statuses ...ProduceStatus) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}
