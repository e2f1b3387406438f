package models

import "time"

// User is the profile recorded at sign-in. Role is the role resolved at the
// last sign-in and is informational only.
type User struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Sub         string    `bson:"sub" json:"sub"` // OIDC subject
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Role        string    `bson:"role" json:"role"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
	LastLoginAt time.Time `bson:"lastLoginAt" json:"lastLoginAt"`
}
