package lock

import (
	"encoding/json"
	"time"
)

// Suffix is appended to a resource key to derive the key of its lock record.
const Suffix = ".lock"

// Key returns the lock key for the given resource key.
func Key(resource string) string {
	return resource + Suffix
}

// record is the persisted lease. ExpiresAt is absolute unix time in seconds;
// zero means the lease was released or poisoned.
type record struct {
	ExpiresAt float64 `json:"expires_at"`
}

func encodeRecord(expiresAt float64) []byte {
	body, _ := json.Marshal(record{ExpiresAt: expiresAt})
	return body
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
