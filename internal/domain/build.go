package domain

import "time"

// Build is a deployed workspace as handed to publish sinks and the
// checkout collaborator.
type Build struct {
	ID         string    `json:"id"`
	Page       string    `json:"page"`
	Markup     string    `json:"markup"`
	License    string    `json:"license"`
	DeployedAt time.Time `json:"deployedAt"`
}
