package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillcms/quill/internal/email"
)

type sentEmail struct {
	Addr       email.Addresses
	TemplateID string
	Payload    map[string]interface{}
}

// recordingSender captures outbound emails instead of delivering them
type recordingSender struct {
	sent []sentEmail
	err  error
}

func (s *recordingSender) SendTemplatedEmail(ctx context.Context, addr email.Addresses, templateID string, payload map[string]interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{Addr: addr, TemplateID: templateID, Payload: payload})
	return nil
}

func newTestService() (*Service, *InMemoryStore, *recordingSender) {
	store := NewInMemoryStore()
	sender := &recordingSender{}
	service := NewService(store, NewValidator(), sender, RegistrationEmailConfig{
		From:       "no-reply@quillcms.local",
		ReplyTo:    "support@quillcms.local",
		TemplateID: "admin-registration",
	}, zap.NewNop())
	return service, store, sender
}

func createRequest() *CreateUserRequest {
	return &CreateUserRequest{
		Firstname: "Jane",
		Lastname:  "Doe",
		Email:     "jane.doe@example.com",
		Roles:     []int64{2},
		Countries: []string{"FR", "DE"},
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("SuperAdminRoleClearsCountries", func(t *testing.T) {
		service, store, _ := newTestService()

		req := createRequest()
		req.Roles = []int64{SuperAdminRoleID, 2}

		created, err := service.Create(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, created.Countries)

		persisted, err := store.FindOneByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{}, persisted.Countries)
	})

	t.Run("CountriesKeptWithoutSuperAdminRole", func(t *testing.T) {
		service, store, _ := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)
		assert.Equal(t, []string{"FR", "DE"}, created.Countries)

		persisted, err := store.FindOneByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"FR", "DE"}, persisted.Countries)
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		service, store, _ := newTestService()

		_, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		_, err = service.Create(ctx, createRequest())
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeDuplicateEmail, userErr.Type)
		assert.Equal(t, "Email already taken", userErr.Message)

		// no second record was persisted
		page, err := store.FindPage(ctx, &ListQuery{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Results, 1)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		service, _, _ := newTestService()

		req := createRequest()
		req.Email = "not-an-email"

		_, err := service.Create(ctx, req)
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeValidationFailed, userErr.Type)
	})

	t.Run("EmptyRolesRejected", func(t *testing.T) {
		service, _, _ := newTestService()

		req := createRequest()
		req.Roles = []int64{}

		_, err := service.Create(ctx, req)
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeValidationFailed, userErr.Type)
	})
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	for i := 0; i < 25; i++ {
		req := createRequest()
		req.Email = fmt.Sprintf("user%02d@example.com", i)
		if i == 0 {
			req.Firstname = "Searchable"
		}
		_, err := service.Create(ctx, req)
		require.NoError(t, err)
	}

	t.Run("PaginatedListing", func(t *testing.T) {
		page, err := service.Find(ctx, &ListQuery{Page: 2, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Results, 10)
		assert.Equal(t, int64(25), page.Pagination.Total)
		assert.Equal(t, 3, page.Pagination.PageCount)
		assert.Equal(t, 2, page.Pagination.Page)
	})

	t.Run("SearchMode", func(t *testing.T) {
		page, err := service.Find(ctx, &ListQuery{Query: "searchable"})
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "Searchable", page.Results[0].Firstname)
	})

	t.Run("EmptyResultSetIsNotAnError", func(t *testing.T) {
		page, err := service.Find(ctx, &ListQuery{Query: "nomatch"})
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.Equal(t, int64(0), page.Pagination.Total)
	})
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsSanitizedUserWithCountries", func(t *testing.T) {
		service, _, _ := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		found, err := service.FindOne(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, []string{"FR", "DE"}, found.Countries)
	})

	t.Run("UnknownIDReturnsNotFound", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.FindOne(ctx, "missing")
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeNotFound, userErr.Type)
		assert.Equal(t, "User does not exist", userErr.Message)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("EmailTakenByAnotherUserRejected", func(t *testing.T) {
		service, _, _ := newTestService()

		first, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		other := createRequest()
		other.Email = "other@example.com"
		_, err = service.Create(ctx, other)
		require.NoError(t, err)

		taken := "other@example.com"
		_, err = service.Update(ctx, first.ID, &UpdateUserRequest{Email: &taken})
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeDuplicateEmail, userErr.Type)
		assert.Equal(t, "A user with this email address already exists", userErr.Message)
	})

	t.Run("OwnUnchangedEmailSucceeds", func(t *testing.T) {
		service, _, _ := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		same := created.Email
		updated, err := service.Update(ctx, created.ID, &UpdateUserRequest{Email: &same})
		require.NoError(t, err)
		assert.Equal(t, same, updated.Email)
	})

	t.Run("SuperAdminRoleClearsCountries", func(t *testing.T) {
		service, _, _ := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		roles := []int64{SuperAdminRoleID}
		countries := []string{"IT"}
		updated, err := service.Update(ctx, created.ID, &UpdateUserRequest{
			Roles:     &roles,
			Countries: &countries,
		})
		require.NoError(t, err)
		assert.Empty(t, updated.Countries)
	})

	t.Run("AbsentRolesLeaveCountriesUntouched", func(t *testing.T) {
		service, _, _ := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		firstname := "Janet"
		updated, err := service.Update(ctx, created.ID, &UpdateUserRequest{Firstname: &firstname})
		require.NoError(t, err)
		assert.Equal(t, "Janet", updated.Firstname)
		assert.Equal(t, []string{"FR", "DE"}, updated.Countries)
		assert.Equal(t, created.Lastname, updated.Lastname)
	})

	t.Run("UnknownIDReturnsNotFound", func(t *testing.T) {
		service, _, _ := newTestService()

		firstname := "Janet"
		_, err := service.Update(ctx, "missing", &UpdateUserRequest{Firstname: &firstname})
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeNotFound, userErr.Type)
	})
}

func TestDeleteOne(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	created, err := service.Create(ctx, createRequest())
	require.NoError(t, err)

	deleted, err := service.DeleteOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, created.Email, deleted.Email)

	// second delete of the same id misses
	_, err = service.DeleteOne(ctx, created.ID)
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, UserErrorTypeNotFound, userErr.Type)
	assert.Equal(t, "User not found", userErr.Message)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingIDsAreSkipped", func(t *testing.T) {
		service, _, _ := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		deleted, err := service.DeleteMany(ctx, &DeleteManyRequest{
			IDs: []string{created.ID, "missing"},
		})
		require.NoError(t, err)
		require.Len(t, deleted, 1)
		assert.Equal(t, created.ID, deleted[0].ID)
	})

	t.Run("AllMissingYieldsEmptyResult", func(t *testing.T) {
		service, _, _ := newTestService()

		deleted, err := service.DeleteMany(ctx, &DeleteManyRequest{
			IDs: []string{"missing-a", "missing-b"},
		})
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("EmptyIDsRejected", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.DeleteMany(ctx, &DeleteManyRequest{IDs: []string{}})
		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, UserErrorTypeValidationFailed, userErr.Type)
	})
}

func TestSendRegistrationLink(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownEmailIsASilentNoOp", func(t *testing.T) {
		service, _, sender := newTestService()

		sent, err := service.SendRegistrationLink(ctx, &RegistrationLinkRequest{
			Email: "nobody@example.com",
			Link:  "https://cms.example.com/register?token=",
		})
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, sender.sent)
	})

	t.Run("KnownEmailDispatchesExactlyOneEmail", func(t *testing.T) {
		service, store, sender := newTestService()

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		raw, err := store.FindOneByEmail(ctx, created.Email)
		require.NoError(t, err)
		require.NotEmpty(t, raw.RegistrationToken)

		sent, err := service.SendRegistrationLink(ctx, &RegistrationLinkRequest{
			Email: created.Email,
			Link:  "https://cms.example.com/register?token=",
		})
		require.NoError(t, err)
		assert.True(t, sent)

		require.Len(t, sender.sent, 1)
		dispatched := sender.sent[0]
		assert.Equal(t, created.Email, dispatched.Addr.To)
		assert.Equal(t, "no-reply@quillcms.local", dispatched.Addr.From)
		assert.Equal(t, "admin-registration", dispatched.TemplateID)
		assert.Equal(t, "https://cms.example.com/register?token="+raw.RegistrationToken, dispatched.Payload["url"])

		payloadUser, ok := dispatched.Payload["user"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, created.Email, payloadUser["email"])
		assert.Equal(t, created.Firstname, payloadUser["firstname"])
	})

	t.Run("DispatchFailureIsNotSurfaced", func(t *testing.T) {
		service, _, sender := newTestService()
		sender.err = errors.New("smtp unreachable")

		created, err := service.Create(ctx, createRequest())
		require.NoError(t, err)

		sent, err := service.SendRegistrationLink(ctx, &RegistrationLinkRequest{
			Email: created.Email,
			Link:  "https://cms.example.com/register?token=",
		})
		require.NoError(t, err)
		assert.False(t, sent)
	})
}

func TestSanitize(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService()

	created, err := service.Create(ctx, createRequest())
	require.NoError(t, err)

	raw, err := store.FindOneByID(ctx, created.ID)
	require.NoError(t, err)
	raw.PasswordHash = "bcrypt-hash"
	require.NotEmpty(t, raw.RegistrationToken)

	data, err := json.Marshal(raw.Sanitize())
	require.NoError(t, err)

	assert.NotContains(t, string(data), raw.RegistrationToken)
	assert.NotContains(t, string(data), "bcrypt-hash")
	assert.Contains(t, string(data), raw.Email)
}
