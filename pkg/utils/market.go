package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// IsMarketOpen reports whether the NSE cash market is open at t.
// Regular session runs 9:15 to 15:30 IST, Monday to Friday.
func IsMarketOpen(t time.Time) bool {
	t = t.In(IndiaLocation)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+15 && minutes < 15*60+30
}
