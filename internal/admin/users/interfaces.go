package users

import "context"

// UserStore defines the interface for administrator persistence.
// Lookup methods return (nil, nil) when no record matches.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	FindOneByID(ctx context.Context, id string) (*User, error)
	FindOneByEmail(ctx context.Context, email string) (*User, error)
	FindPage(ctx context.Context, q *ListQuery) (*UserPage, error)
	SearchPage(ctx context.Context, q *ListQuery) (*UserPage, error)
	UpdateByID(ctx context.Context, id string, req *UpdateUserRequest) (*User, error)
	DeleteByID(ctx context.Context, id string) (*User, error)
	DeleteByIDs(ctx context.Context, ids []string) ([]*User, error)
	EmailExists(ctx context.Context, email string, excludeID string) (bool, error)
}

// UserManager defines the interface for administrator management operations
type UserManager interface {
	Create(ctx context.Context, req *CreateUserRequest) (*SanitizedUser, error)
	Find(ctx context.Context, q *ListQuery) (*SanitizedUserPage, error)
	FindOne(ctx context.Context, id string) (*SanitizedUser, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest) (*SanitizedUser, error)
	DeleteOne(ctx context.Context, id string) (*SanitizedUser, error)
	DeleteMany(ctx context.Context, req *DeleteManyRequest) ([]*SanitizedUser, error)
	SendRegistrationLink(ctx context.Context, req *RegistrationLinkRequest) (bool, error)
}
