// Package payment holds the money-facing pieces of the system: fee and
// deposit arithmetic, the webhook signature check, the free-text payment
// reference parser and the VietQR payload builder.
package payment

import "time"

// Fee charges for every started hour: ceil(totalMinutes/60) * pricePerHour.
// A 125-minute stay at 8000/hour costs 24000. Zero or negative durations
// cost nothing.
func Fee(totalMinutes int, pricePerHour int64) int64 {
	if totalMinutes <= 0 || pricePerHour <= 0 {
		return 0
	}
	hours := int64(totalMinutes+59) / 60
	return hours * pricePerHour
}

// Minutes converts an elapsed duration to billable minutes, rounding any
// started minute up.
func Minutes(entry, exit time.Time) int {
	d := exit.Sub(entry)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// Deposit computes the up-front amount for a reservation window using
// the same started-hour rule as Fee.
func Deposit(start, end time.Time, pricePerHour int64) int64 {
	return Fee(Minutes(start, end), pricePerHour)
}
