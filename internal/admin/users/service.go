package users

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quillcms/quill/internal/email"
)

// RegistrationEmailConfig carries the configuration-derived sender identity
// and template id for registration link emails.
type RegistrationEmailConfig struct {
	From       string
	ReplyTo    string
	TemplateID string
}

// Service implements the UserManager interface. It owns the admin user API
// business rules: input validation, email uniqueness, super admin country
// suppression and output sanitization. Persistence and email delivery are
// delegated to the injected collaborators.
type Service struct {
	store     UserStore
	validator *Validator
	sender    email.Sender
	regConfig RegistrationEmailConfig
	logger    *zap.Logger
}

// NewService creates a new admin user service
func NewService(store UserStore, validator *Validator, sender email.Sender, regConfig RegistrationEmailConfig, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		validator: validator,
		sender:    sender,
		regConfig: regConfig,
		logger:    logger,
	}
}

// Create validates the request, enforces email uniqueness and persists a new
// administrator. A super admin role forces the countries list empty.
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*SanitizedUser, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, NewValidationFailedError(err)
	}

	exists, err := s.store.EmailExists(ctx, req.Email, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if exists {
		return nil, NewDuplicateEmailError("Email already taken")
	}

	countries := req.Countries
	if HasSuperAdminRole(req.Roles) {
		countries = []string{}
	}

	user := &User{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Username:  req.Username,
		Email:     req.Email,
		Roles:     req.Roles,
		Countries: countries,
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created.Sanitize(), nil
}

// Find returns one page of administrators. A non-empty free-text query
// switches to search mode.
func (s *Service) Find(ctx context.Context, q *ListQuery) (*SanitizedUserPage, error) {
	q.Normalize()

	var (
		page *UserPage
		err  error
	)
	if q.Query != "" {
		page, err = s.store.SearchPage(ctx, q)
	} else {
		page, err = s.store.FindPage(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	results := make([]*SanitizedUser, 0, len(page.Results))
	for _, user := range page.Results {
		results = append(results, user.Sanitize())
	}

	return &SanitizedUserPage{Results: results, Pagination: page.Pagination}, nil
}

// FindOne returns the administrator with the given id
func (s *Service) FindOne(ctx context.Context, id string) (*SanitizedUser, error) {
	user, err := s.store.FindOneByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, NewUserNotFoundError("User does not exist")
	}

	// countries are re-applied from the raw record so sanitization can never
	// drop them
	sanitized := user.Sanitize()
	sanitized.Countries = user.Countries
	return sanitized, nil
}

// Update applies a partial update to the administrator with the given id.
// When roles are supplied and include the super admin role, countries are
// forced empty; when roles are absent the countries field is left untouched
// unless explicitly supplied.
func (s *Service) Update(ctx context.Context, id string, req *UpdateUserRequest) (*SanitizedUser, error) {
	if req.Roles != nil && HasSuperAdminRole(*req.Roles) {
		empty := []string{}
		req.Countries = &empty
	}

	if err := s.validator.ValidateUpdate(req); err != nil {
		return nil, NewValidationFailedError(err)
	}

	if req.Email != nil {
		exists, err := s.store.EmailExists(ctx, *req.Email, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if exists {
			return nil, NewDuplicateEmailError("A user with this email address already exists")
		}
	}

	updated, err := s.store.UpdateByID(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return nil, NewUserNotFoundError("User does not exist")
	}

	sanitized := updated.Sanitize()
	sanitized.Countries = updated.Countries
	return sanitized, nil
}

// DeleteOne removes the administrator with the given id and returns the
// record as it was before deletion
func (s *Service) DeleteOne(ctx context.Context, id string) (*SanitizedUser, error) {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	if deleted == nil {
		return nil, NewUserNotFoundError("User not found")
	}
	return deleted.Sanitize(), nil
}

// DeleteMany removes all administrators matching the given ids. Missing ids
// are skipped silently, so re-invoking with already deleted ids yields an
// empty result rather than an error.
func (s *Service) DeleteMany(ctx context.Context, req *DeleteManyRequest) ([]*SanitizedUser, error) {
	if err := s.validator.ValidateDeleteMany(req); err != nil {
		return nil, NewValidationFailedError(err)
	}

	deleted, err := s.store.DeleteByIDs(ctx, req.IDs)
	if err != nil {
		return nil, fmt.Errorf("failed to delete users: %w", err)
	}

	sanitized := make([]*SanitizedUser, 0, len(deleted))
	for _, user := range deleted {
		sanitized = append(sanitized, user.Sanitize())
	}
	return sanitized, nil
}

// SendRegistrationLink emails a registration URL to the administrator with
// the given email address. The existence check runs before the URL is built.
// A missing user is a silent no-op, and dispatch failures are logged but
// never surfaced, so callers cannot probe which addresses are registered.
// The returned bool reports whether an email was dispatched.
func (s *Service) SendRegistrationLink(ctx context.Context, req *RegistrationLinkRequest) (bool, error) {
	if err := s.validator.ValidateRegistrationLink(req); err != nil {
		return false, NewValidationFailedError(err)
	}

	user, err := s.store.FindOneByEmail(ctx, req.Email)
	if err != nil {
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return false, nil
	}

	url := req.Link + user.RegistrationToken

	err = s.sender.SendTemplatedEmail(ctx,
		email.Addresses{
			To:      user.Email,
			From:    s.regConfig.From,
			ReplyTo: s.regConfig.ReplyTo,
		},
		s.regConfig.TemplateID,
		map[string]interface{}{
			"url": url,
			"user": map[string]interface{}{
				"email":     user.Email,
				"firstname": user.Firstname,
				"lastname":  user.Lastname,
				"username":  user.Username,
			},
		})
	if err != nil {
		s.logger.Error("Failed to send registration email",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return false, nil
	}

	return true, nil
}
