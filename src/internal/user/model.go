package user

import "time"

// User is the profile collected by the onboarding scene. The telegram user id
// is the primary key; re-registration overwrites the record.
type User struct {
	ID           int64     `json:"id" bson:"telegram_id"`
	Name         string    `json:"name" bson:"name"`
	Age          int       `json:"age" bson:"age"`
	Username     string    `json:"username,omitempty" bson:"username,omitempty"`
	FirstName    string    `json:"firstName,omitempty" bson:"first_name,omitempty"`
	LastName     string    `json:"lastName,omitempty" bson:"last_name,omitempty"`
	RegisteredAt time.Time `json:"registeredAt" bson:"registered_at"`
}

type Stats struct {
	Total        int64 `json:"total"`
	NewThisMonth int64 `json:"newThisMonth"`
	WithUsername int64 `json:"withUsername"`
}

// ListUsersRequest represents request for the admin user listing
type ListUsersRequest struct {
	Page   int    `json:"page" form:"page"`
	Limit  int    `json:"limit" form:"limit"`
	Search string `json:"search" form:"search"`
}

// ListUsersResponse represents response for the admin user listing
type ListUsersResponse struct {
	Users      []*User `json:"users"`
	TotalCount int64   `json:"totalCount"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}
