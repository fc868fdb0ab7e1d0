package users

import (
	"time"
)

// SuperAdminRoleID is the distinguished role granting unrestricted access.
// Users holding it are never country-scoped: their countries list is forced
// empty on both create and update.
const SuperAdminRoleID int64 = 1

// Pagination limits for list and search queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// User represents an administrator account in the system
type User struct {
	ID                string    `json:"id"`
	Firstname         string    `json:"firstname"`
	Lastname          string    `json:"lastname"`
	Username          string    `json:"username,omitempty"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	RegistrationToken string    `json:"-"`
	Roles             []int64   `json:"roles"`
	Countries         []string  `json:"countries"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SanitizedUser is the projection of a User safe for external exposure.
// It never carries the registration token or credential material.
type SanitizedUser struct {
	ID        string    `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email"`
	Roles     []int64   `json:"roles"`
	Countries []string  `json:"countries"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sanitize returns the externally safe projection of the user
func (u *User) Sanitize() *SanitizedUser {
	return &SanitizedUser{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		Countries: u.Countries,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasSuperAdminRole reports whether the role set includes the super admin role
func HasSuperAdminRole(roles []int64) bool {
	for _, role := range roles {
		if role == SuperAdminRoleID {
			return true
		}
	}
	return false
}

// CreateUserRequest represents the request to create an administrator
type CreateUserRequest struct {
	Firstname string   `json:"firstname" validate:"required"`
	Lastname  string   `json:"lastname" validate:"required"`
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email" validate:"required,email"`
	Roles     []int64  `json:"roles" validate:"required,min=1,dive,gt=0"`
	Countries []string `json:"countries" validate:"omitempty,dive,iso3166_1_alpha2"`
}

// UpdateUserRequest represents a partial update to an administrator.
// Nil fields are left untouched by the store.
type UpdateUserRequest struct {
	Firstname *string   `json:"firstname,omitempty" validate:"omitempty,min=1"`
	Lastname  *string   `json:"lastname,omitempty" validate:"omitempty,min=1"`
	Username  *string   `json:"username,omitempty"`
	Email     *string   `json:"email,omitempty" validate:"omitempty,email"`
	Roles     *[]int64  `json:"roles,omitempty" validate:"omitempty,min=1,dive,gt=0"`
	Countries *[]string `json:"countries,omitempty" validate:"omitempty,dive,iso3166_1_alpha2"`
	IsActive  *bool     `json:"is_active,omitempty"`
}

// DeleteManyRequest represents a bulk delete by id
type DeleteManyRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// RegistrationLinkRequest asks for a registration email to be sent to an
// administrator identified by email. Link is the URL prefix the registration
// token is appended to.
type RegistrationLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
	Link  string `json:"link" validate:"required,url"`
}

// ListQuery captures the query parameters of a list or search request
type ListQuery struct {
	Query    string `json:"_q,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Normalize clamps the paging values to their allowed ranges
func (q *ListQuery) Normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// Pagination describes the position of a page within the full result set
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	PageCount int   `json:"page_count"`
}

// UserPage is one page of users together with its pagination
type UserPage struct {
	Results    []*User    `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// SanitizedUserPage is one page of sanitized users
type SanitizedUserPage struct {
	Results    []*SanitizedUser `json:"results"`
	Pagination Pagination       `json:"pagination"`
}
