package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserSchema represents the admin_users table schema in PostgreSQL
type UserSchema struct {
	bun.BaseModel `bun:"table:admin_users,alias:au"`

	ID                uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Firstname         string    `bun:"firstname,notnull" json:"firstname"`
	Lastname          string    `bun:"lastname,notnull" json:"lastname"`
	Username          *string   `bun:"username" json:"username,omitempty"`
	Email             string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash      *string   `bun:"password_hash" json:"-"`
	RegistrationToken string    `bun:"registration_token,notnull" json:"-"`
	Roles             []int64   `bun:"roles,array" json:"roles"`
	Countries         []string  `bun:"countries,array" json:"countries"`
	IsActive          bool      `bun:"is_active,notnull,default:false" json:"is_active"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// PostgresStore implements the UserStore interface using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL user store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateUser persists a new administrator, assigning its id and registration token
func (s *PostgresStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	now := time.Now()
	created := *user
	created.ID = uuid.New().String()
	created.RegistrationToken = uuid.New().String()
	created.CreatedAt = now
	created.UpdatedAt = now

	schema, err := UserToUserSchema(&created)
	if err != nil {
		return nil, err
	}

	_, err = s.db.NewInsert().
		Model(&schema).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return UserSchemaToUser(schema), nil
}

// FindOneByID retrieves an administrator by id. Returns (nil, nil) when no
// record matches or the id is not a valid uuid.
func (s *PostgresStore) FindOneByID(ctx context.Context, id string) (*User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	schema := UserSchema{}
	err = s.db.NewSelect().Model(&schema).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return UserSchemaToUser(schema), nil
}

// FindOneByEmail retrieves an administrator by email. Returns (nil, nil) when
// no record matches.
func (s *PostgresStore) FindOneByEmail(ctx context.Context, email string) (*User, error) {
	schema := UserSchema{}
	err := s.db.NewSelect().Model(&schema).Where("email = ?", email).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return UserSchemaToUser(schema), nil
}

// FindPage retrieves one page of administrators ordered by creation time
func (s *PostgresStore) FindPage(ctx context.Context, q *ListQuery) (*UserPage, error) {
	return s.page(ctx, q, s.db.NewSelect().Model((*UserSchema)(nil)))
}

// SearchPage retrieves one page of administrators whose name or email matches
// the free-text query, case-insensitively
func (s *PostgresStore) SearchPage(ctx context.Context, q *ListQuery) (*UserPage, error) {
	term := "%" + strings.ToLower(q.Query) + "%"
	query := s.db.NewSelect().Model((*UserSchema)(nil)).
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("LOWER(firstname) LIKE ?", term).
				WhereOr("LOWER(lastname) LIKE ?", term).
				WhereOr("LOWER(email) LIKE ?", term)
		})
	return s.page(ctx, q, query)
}

func (s *PostgresStore) page(ctx context.Context, q *ListQuery, query *bun.SelectQuery) (*UserPage, error) {
	var schemas []UserSchema
	total, err := query.
		Order("created_at DESC").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		ScanAndCount(ctx, &schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	results := make([]*User, 0, len(schemas))
	for _, schema := range schemas {
		results = append(results, UserSchemaToUser(schema))
	}

	return &UserPage{
		Results:    results,
		Pagination: paginate(q, int64(total)),
	}, nil
}

// UpdateByID applies the non-nil fields of req to the administrator with the
// given id. Returns (nil, nil) when no record matches.
func (s *PostgresStore) UpdateByID(ctx context.Context, id string, req *UpdateUserRequest) (*User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	schema := UserSchema{}
	err = s.db.NewSelect().Model(&schema).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	applyUpdate(&schema, req)
	schema.UpdatedAt = time.Now()

	_, err = s.db.NewUpdate().Model(&schema).WherePK().Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return UserSchemaToUser(schema), nil
}

// DeleteByID removes the administrator with the given id and returns the
// record as it was before deletion. Returns (nil, nil) when no record matches.
func (s *PostgresStore) DeleteByID(ctx context.Context, id string) (*User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	schema := UserSchema{}
	err = s.db.NewSelect().Model(&schema).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	_, err = s.db.NewDelete().Model((*UserSchema)(nil)).Where("id = ?", userID).Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	return UserSchemaToUser(schema), nil
}

// DeleteByIDs removes all administrators matching the given ids in one
// operation and returns the deleted records. Unknown ids are skipped.
func (s *PostgresStore) DeleteByIDs(ctx context.Context, ids []string) ([]*User, error) {
	userIDs := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if userID, err := uuid.Parse(id); err == nil {
			userIDs = append(userIDs, userID)
		}
	}
	if len(userIDs) == 0 {
		return []*User{}, nil
	}

	var schemas []UserSchema
	err := s.db.NewSelect().Model(&schemas).Where("id IN (?)", bun.In(userIDs)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	if len(schemas) == 0 {
		return []*User{}, nil
	}

	_, err = s.db.NewDelete().Model((*UserSchema)(nil)).Where("id IN (?)", bun.In(userIDs)).Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete users: %w", err)
	}

	deleted := make([]*User, 0, len(schemas))
	for _, schema := range schemas {
		deleted = append(deleted, UserSchemaToUser(schema))
	}
	return deleted, nil
}

// EmailExists checks whether an administrator with the given email exists.
// A non-empty excludeID leaves that record out of the check, so an update can
// keep its own email.
func (s *PostgresStore) EmailExists(ctx context.Context, email string, excludeID string) (bool, error) {
	query := s.db.NewSelect().Model((*UserSchema)(nil)).Where("email = ?", email)
	if excludeID != "" {
		if userID, err := uuid.Parse(excludeID); err == nil {
			query = query.Where("id != ?", userID)
		}
	}

	count, err := query.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

func applyUpdate(schema *UserSchema, req *UpdateUserRequest) {
	if req.Firstname != nil {
		schema.Firstname = *req.Firstname
	}
	if req.Lastname != nil {
		schema.Lastname = *req.Lastname
	}
	if req.Username != nil {
		schema.Username = req.Username
	}
	if req.Email != nil {
		schema.Email = *req.Email
	}
	if req.Roles != nil {
		schema.Roles = *req.Roles
	}
	if req.Countries != nil {
		schema.Countries = *req.Countries
	}
	if req.IsActive != nil {
		schema.IsActive = *req.IsActive
	}
}

func paginate(q *ListQuery, total int64) Pagination {
	pageCount := int(total) / q.PageSize
	if int(total)%q.PageSize != 0 {
		pageCount++
	}
	return Pagination{
		Page:      q.Page,
		PageSize:  q.PageSize,
		Total:     total,
		PageCount: pageCount,
	}
}

// Helper conversion functions

func UserSchemaToUser(schema UserSchema) *User {
	user := &User{
		ID:                schema.ID.String(),
		Firstname:         schema.Firstname,
		Lastname:          schema.Lastname,
		Email:             schema.Email,
		RegistrationToken: schema.RegistrationToken,
		Roles:             schema.Roles,
		Countries:         schema.Countries,
		IsActive:          schema.IsActive,
		CreatedAt:         schema.CreatedAt,
		UpdatedAt:         schema.UpdatedAt,
	}

	if schema.Username != nil {
		user.Username = *schema.Username
	}
	if schema.PasswordHash != nil {
		user.PasswordHash = *schema.PasswordHash
	}
	if user.Roles == nil {
		user.Roles = []int64{}
	}
	if user.Countries == nil {
		user.Countries = []string{}
	}

	return user
}

func UserToUserSchema(user *User) (UserSchema, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return UserSchema{}, fmt.Errorf("invalid user id %q: %w", user.ID, err)
	}

	var username *string
	if user.Username != "" {
		username = &user.Username
	}
	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	return UserSchema{
		ID:                userID,
		Firstname:         user.Firstname,
		Lastname:          user.Lastname,
		Username:          username,
		Email:             user.Email,
		PasswordHash:      passwordHash,
		RegistrationToken: user.RegistrationToken,
		Roles:             user.Roles,
		Countries:         user.Countries,
		IsActive:          user.IsActive,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}, nil
}
