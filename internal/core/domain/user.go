package domain

import "time"

// Principal is the identity confirmed by the external identity service
// for a verified token.
type Principal struct {
	SubjectID string
	Role      string
	ExpiresAt time.Time
}

// Profile is a customer or agent record returned by the identity
// service's batch-lookup endpoints. This service never stores profiles.
type Profile struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
