package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/marmeebeau/capstone-final/internal/model"
	"github.com/marmeebeau/capstone-final/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory store fake ---

type memStore struct {
	mu   sync.Mutex
	seq  int64
	byID map[int64]model.Coordinator
}

func newMemStore() *memStore {
	return &memStore{byID: map[int64]model.Coordinator{}}
}

func (m *memStore) Create(_ context.Context, c *model.Coordinator) (*model.Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *c
	stored.ID = m.seq
	m.byID[stored.ID] = stored
	out := stored
	return &out, nil
}

func (m *memStore) FindOne(_ context.Context, id int64) (*model.Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrCoordinatorNotFound
	}
	out := c
	return &out, nil
}

func (m *memStore) FindByIdentifier(_ context.Context, identifier string) (*model.Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Username == identifier || c.Email == identifier {
			out := c
			return &out, nil
		}
	}
	return nil, repository.ErrCoordinatorNotFound
}

func (m *memStore) FindConflict(_ context.Context, username, email string, excludeID int64) (*model.Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.ID == excludeID {
			continue
		}
		if c.Username == username || c.Email == email {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindMany(_ context.Context) ([]model.Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.Coordinator, 0, len(m.byID))
	for _, c := range m.byID {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memStore) Update(_ context.Context, c *model.Coordinator) (*model.Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return nil, repository.ErrCoordinatorNotFound
	}
	m.byID[c.ID] = *c
	out := *c
	return &out, nil
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, toEmail, _ string) error {
	m.sent = append(m.sent, toEmail)
	return m.err
}

func newService(store CoordinatorStore) *CoordinatorService {
	// MinCost keeps the bcrypt work factor out of the test runtime
	return NewCoordinatorService(store, NewLocalValidator(), nil, bcrypt.MinCost)
}

func register(t *testing.T, svc *CoordinatorService, in RegisterInput) *model.Coordinator {
	t.Helper()
	c, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	return c
}

func annInput() RegisterInput {
	return RegisterInput{
		FirstName: "Ann",
		Username:  "ann",
		Email:     "a@x.com",
		Password:  "secret123",
	}
}

// --- registration ---

func TestRegisterHashesPasswordAndDefaultsRole(t *testing.T) {
	store := newMemStore()
	svc := newService(store)

	created := register(t, svc, annInput())

	assert.Equal(t, model.RoleCoordinator, created.Role)
	assert.Empty(t, created.PasswordHash, "response must not carry the hash")

	stored, err := store.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "secret123", stored.PasswordHash, "plaintext must never be persisted")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestRegisterNormalizesIdentifiers(t *testing.T) {
	svc := newService(newMemStore())

	created := register(t, svc, RegisterInput{
		FirstName: "Ann",
		Username:  "  AnnMarie ",
		Email:     " Ann@X.COM ",
		Password:  "secret123",
	})

	assert.Equal(t, "annmarie", created.Username)
	assert.Equal(t, "ann@x.com", created.Email)
}

func TestRegisterMissingFields(t *testing.T) {
	svc := newService(newMemStore())

	for name, in := range map[string]RegisterInput{
		"first name": {Username: "ann", Email: "a@x.com", Password: "pw"},
		"username":   {FirstName: "Ann", Email: "a@x.com", Password: "pw"},
		"email":      {FirstName: "Ann", Username: "ann", Password: "pw"},
		"password":   {FirstName: "Ann", Username: "ann", Email: "a@x.com"},
	} {
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation, "missing %s", name)
	}
}

func TestRegisterInvalidEmail(t *testing.T) {
	svc := newService(newMemStore())
	in := annInput()
	in.Email = "not-an-email"
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterDuplicates(t *testing.T) {
	svc := newService(newMemStore())
	register(t, svc, annInput())

	// same email, different username
	in := annInput()
	in.Username = "other"
	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "email is already registered")

	// same username, different email
	in = annInput()
	in.Email = "b@x.com"
	_, err = svc.Register(context.Background(), in)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "username is already taken")

	// both collide
	_, err = svc.Register(context.Background(), annInput())
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "account already registered")
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	svc := newService(newMemStore())
	register(t, svc, annInput())

	in := annInput()
	in.Username = "other"
	in.Email = "A@X.com"
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterExplicitRole(t *testing.T) {
	svc := newService(newMemStore())

	in := annInput()
	in.Role = model.RoleAdmin
	created := register(t, svc, in)
	assert.Equal(t, model.RoleAdmin, created.Role)

	in = annInput()
	in.Username = "bob"
	in.Email = "b@x.com"
	in.Role = "Superuser"
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterMailerFailureIsNonFatal(t *testing.T) {
	store := newMemStore()
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc := NewCoordinatorService(store, NewLocalValidator(), mailer, bcrypt.MinCost)

	created, err := svc.Register(context.Background(), annInput())
	require.NoError(t, err)
	assert.Equal(t, []string{created.Email}, mailer.sent)
}

// --- authentication ---

func TestLoginByUsernameAndEmail(t *testing.T) {
	svc := newService(newMemStore())
	created := register(t, svc, annInput())

	byName, err := svc.Login(context.Background(), "ann", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Empty(t, byName.PasswordHash)

	// identifier is trimmed and lowercased before lookup
	byEmail, err := svc.Login(context.Background(), "  A@X.COM ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestLoginFailures(t *testing.T) {
	svc := newService(newMemStore())
	register(t, svc, annInput())

	_, err := svc.Login(context.Background(), "ann", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = svc.Login(context.Background(), "ghost", "secret123")
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = svc.Login(context.Background(), "", "secret123")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Login(context.Background(), "ann", "")
	assert.ErrorIs(t, err, ErrValidation)
}

// --- reads ---

func TestGetStripsHashAndMapsNotFound(t *testing.T) {
	svc := newService(newMemStore())
	created := register(t, svc, annInput())

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PasswordHash)

	_, err = svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListStripsHashes(t *testing.T) {
	svc := newService(newMemStore())
	register(t, svc, annInput())
	in := annInput()
	in.Username = "bob"
	in.Email = "b@x.com"
	register(t, svc, in)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, c := range list {
		assert.Empty(t, c.PasswordHash)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := newService(newMemStore())
	created := register(t, svc, annInput())

	ok, err := svc.VerifyPassword(context.Background(), created.ID, "secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyPassword(context.Background(), created.ID, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.VerifyPassword(context.Background(), 999, "secret123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleOf(t *testing.T) {
	svc := newService(newMemStore())
	in := annInput()
	in.Role = model.RoleAdmin
	created := register(t, svc, in)

	role, err := svc.RoleOf(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)
}

// --- profile mutation ---

func updateInputFor(c *model.Coordinator) UpdateInput {
	return UpdateInput{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		Email:     c.Email,
		Contact:   c.Contact,
		Address:   c.Address,
	}
}

func TestUpdateUnknownTarget(t *testing.T) {
	svc := newService(newMemStore())
	caller := register(t, svc, annInput())

	_, err := svc.Update(context.Background(), 999, updateInputFor(caller), caller)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRequiresFirstNameAndEmail(t *testing.T) {
	svc := newService(newMemStore())
	created := register(t, svc, annInput())

	in := updateInputFor(created)
	in.FirstName = ""
	_, err := svc.Update(context.Background(), created.ID, in, created)
	assert.ErrorIs(t, err, ErrValidation)

	in = updateInputFor(created)
	in.Email = ""
	_, err = svc.Update(context.Background(), created.ID, in, created)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateRoleIgnoredForNonAdmin(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	created := register(t, svc, annInput())

	in := updateInputFor(created)
	in.Role = model.RoleAdmin
	updated, err := svc.Update(context.Background(), created.ID, in, created)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCoordinator, updated.Role, "non-admin role escalation must be dropped")

	stored, err := store.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCoordinator, stored.Role)
}

func TestUpdateRoleAppliedForAdminCaller(t *testing.T) {
	svc := newService(newMemStore())
	adminIn := annInput()
	adminIn.Username = "root"
	adminIn.Email = "root@x.com"
	adminIn.Role = model.RoleAdmin
	admin := register(t, svc, adminIn)

	target := register(t, svc, annInput())

	in := updateInputFor(target)
	in.Role = model.RoleAdmin
	updated, err := svc.Update(context.Background(), target.ID, in, admin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
}

func TestUpdateEmptyUsernameKeepsExisting(t *testing.T) {
	svc := newService(newMemStore())
	created := register(t, svc, annInput())

	in := updateInputFor(created)
	in.Username = ""
	updated, err := svc.Update(context.Background(), created.ID, in, created)
	require.NoError(t, err)
	assert.Equal(t, "ann", updated.Username)
}

func TestUpdateConflictOnTakenEmail(t *testing.T) {
	svc := newService(newMemStore())
	register(t, svc, annInput())

	bobIn := annInput()
	bobIn.Username = "bob"
	bobIn.Email = "b@x.com"
	bob := register(t, svc, bobIn)

	in := updateInputFor(bob)
	in.Email = "a@x.com"
	_, err := svc.Update(context.Background(), bob.ID, in, bob)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdatePasswordRotation(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	created := register(t, svc, annInput())

	// wrong current password
	in := updateInputFor(created)
	in.CurrentPassword = "wrong"
	in.NewPassword = "brandnew1"
	_, err := svc.Update(context.Background(), created.ID, in, created)
	assert.ErrorIs(t, err, ErrAuthentication)

	// no-op rotation
	in = updateInputFor(created)
	in.CurrentPassword = "secret123"
	in.NewPassword = "secret123"
	_, err = svc.Update(context.Background(), created.ID, in, created)
	assert.ErrorIs(t, err, ErrValidation)

	// successful rotation
	in = updateInputFor(created)
	in.CurrentPassword = "secret123"
	in.NewPassword = "brandnew1"
	updated, err := svc.Update(context.Background(), created.ID, in, created)
	require.NoError(t, err)
	assert.Empty(t, updated.PasswordHash)

	stored, err := store.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("brandnew1")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestUpdateWithoutRotationKeepsHash(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	created := register(t, svc, annInput())

	before, err := store.FindOne(context.Background(), created.ID)
	require.NoError(t, err)

	in := updateInputFor(created)
	in.Contact = "555-0100"
	_, err = svc.Update(context.Background(), created.ID, in, created)
	require.NoError(t, err)

	after, err := store.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, "555-0100", after.Contact)
}
