package monitor

import "time"

// Status is the latest result of every registered check.
type Status struct {
	Healthy    bool                   `json:"healthy"`
	Components map[string]CheckResult `json:"components"`
	LastCheck  time.Time              `json:"last_check"`
}

type CheckResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
