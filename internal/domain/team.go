package domain

import "time"

// Team is an escalation and assignment group (service desk, operations...).
type Team struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	ModifiedAt time.Time
}
