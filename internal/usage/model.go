package usage

import "time"

// Usage is a session's underwriting-run consumption snapshot.
type Usage struct {
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}
