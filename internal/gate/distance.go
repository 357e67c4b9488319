package gate

// HC-SR04 readings inside this band mean a vehicle body sits over the
// slot sensor. Closer readings are sensor noise, farther ones an empty
// slot.
const (
	minInSlotDistance = 5.0
	maxInSlotDistance = 8.0
)

// InSlot reports whether a proximity reading proves the vehicle is
// parked in the slot.
func InSlot(distance float64) bool {
	return distance >= minInSlotDistance && distance <= maxInSlotDistance
}
