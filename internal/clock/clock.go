// Package clock supplies the time source used to timestamp attention states.
package clock

import "time"

// NowFunc returns the current time. Tests replace it to pin timestamps.
var NowFunc = time.Now

// Now returns NowFunc() in UTC so that records from different hosts order
// consistently.
func Now() time.Time { return NowFunc().UTC() }
