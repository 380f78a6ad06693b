package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/config"
	"fieldlog/api/internal/ids"
	"fieldlog/api/internal/models"
)

// --- in-memory fakes ---

type fakeUserStore struct {
	mu    sync.Mutex
	users []models.User
}

func (f *fakeUserStore) Create(_ context.Context, name string, email string, hash []byte, role models.Role) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return models.User{}, apperr.Conflict("email already registered")
		}
	}

	user := models.User{
		ID:           ids.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	// newest first
	f.users = append([]models.User{user}, f.users...)
	return user.Sanitized(), nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return models.User{}, false, nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u.Sanitized(), true, nil
		}
	}
	return models.User{}, false, nil
}

func (f *fakeUserStore) ListAll(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, len(f.users))
	for i, u := range f.users {
		out[i] = u.Sanitized()
	}
	return out, nil
}

func (f *fakeUserStore) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("user not found")
}

type fakeVisitStore struct {
	mu        sync.Mutex
	visits    []models.Visit
	createErr error
}

func (f *fakeVisitStore) Create(_ context.Context, ownerID string, placeName string, loc models.Location, imageURL string) (models.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.Visit{}, f.createErr
	}
	visit := models.Visit{
		ID:        ids.New(),
		OwnerID:   ownerID,
		PlaceName: strings.TrimSpace(placeName),
		Location:  loc,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}
	f.visits = append([]models.Visit{visit}, f.visits...)
	return visit, nil
}

func (f *fakeVisitStore) FindByID(_ context.Context, id string) (models.Visit, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.visits {
		if v.ID == id {
			return v, true, nil
		}
	}
	return models.Visit{}, false, nil
}

func (f *fakeVisitStore) ListByOwner(_ context.Context, ownerID string) ([]models.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Visit
	for _, v := range f.visits {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVisitStore) ListAllWithOwners(_ context.Context) ([]models.VisitWithOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.VisitWithOwner, 0, len(f.visits))
	for _, v := range f.visits {
		out = append(out, models.VisitWithOwner{Visit: v, Owner: models.Owner{ID: v.OwnerID}})
	}
	return out, nil
}

func (f *fakeVisitStore) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.visits {
		if v.ID == id {
			f.visits = append(f.visits[:i], f.visits[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeBlobStore struct {
	mu        sync.Mutex
	puts      int
	deletes   []string
	putErr    error
	deleteErr error
}

func (f *fakeBlobStore) Put(_ context.Context, data []byte, originalName string, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts++
	return fmt.Sprintf("http://blobs.local/visit-images/visit-%d.jpg", f.puts), nil
}

func (f *fakeBlobStore) Delete(_ context.Context, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, imageURL)
	return nil
}

// --- helpers ---

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: 4, // bcrypt.MinCost keeps tests fast
	}
}

func newAuthService(users UserStore) *AuthService {
	return NewAuthService(users, testSecurityConfig(), zerolog.Nop())
}

func registerUser(t *testing.T, auth *AuthService, name, email, password, role string) models.User {
	t.Helper()
	result, err := auth.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return result.User
}

func jpegPayload(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xff, 0xd8, 0xff, 0xe0})
	return data
}

// --- AuthService ---

func TestRegister_NormalizesEmail(t *testing.T) {
	t.Parallel()

	auth := newAuthService(&fakeUserStore{})
	user := registerUser(t, auth, "Jane Rep", "  JANE@X.com ", "secret1", "rep")

	if user.Email != "jane@x.com" {
		t.Fatalf("email not normalized: got %q", user.Email)
	}
	if user.Role != models.RoleRep {
		t.Fatalf("role mismatch: got %q", user.Role)
	}
	if user.PasswordHash != nil {
		t.Fatalf("password hash leaked from Register")
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{}
	auth := newAuthService(users)
	registerUser(t, auth, "Jane", "jane@x.com", "secret1", "rep")

	_, err := auth.Register(context.Background(), RegisterInput{
		Name:     "Impostor",
		Email:    "JANE@x.com",
		Password: "other",
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(users.users) != 1 {
		t.Fatalf("second user was created: %d users", len(users.users))
	}
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	auth := newAuthService(&fakeUserStore{})
	cases := []RegisterInput{
		{Email: "a@b.com", Password: "pw"},
		{Name: "A", Password: "pw"},
		{Name: "A", Email: "a@b.com"},
	}
	for _, input := range cases {
		if _, err := auth.Register(context.Background(), input); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestRegister_UnknownRoleRejected(t *testing.T) {
	t.Parallel()

	auth := newAuthService(&fakeUserStore{})
	_, err := auth.Register(context.Background(), RegisterInput{
		Name:     "A",
		Email:    "a@b.com",
		Password: "pw",
		Role:     "superuser",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLogin_SuccessAndSanitization(t *testing.T) {
	t.Parallel()

	auth := newAuthService(&fakeUserStore{})
	registered := registerUser(t, auth, "Jane", "jane@x.com", "secret1", "")

	result, err := auth.Login(context.Background(), "jane@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if result.User.ID != registered.ID {
		t.Fatalf("user id mismatch: got %q want %q", result.User.ID, registered.ID)
	}
	if result.User.PasswordHash != nil {
		t.Fatalf("password hash leaked from Login")
	}
	if result.Token == "" {
		t.Fatalf("no token issued")
	}
}

func TestLogin_SameErrorForUnknownUserAndBadPassword(t *testing.T) {
	t.Parallel()

	auth := newAuthService(&fakeUserStore{})
	registerUser(t, auth, "Jane", "jane@x.com", "secret1", "")

	_, errUnknown := auth.Login(context.Background(), "nobody@x.com", "secret1")
	_, errBadPw := auth.Login(context.Background(), "jane@x.com", "wrong")

	if apperr.KindOf(errUnknown) != apperr.KindAuthentication {
		t.Fatalf("unknown user: expected authentication error, got %v", errUnknown)
	}
	if apperr.KindOf(errBadPw) != apperr.KindAuthentication {
		t.Fatalf("bad password: expected authentication error, got %v", errBadPw)
	}
	if errUnknown.Error() != errBadPw.Error() {
		t.Fatalf("error messages differ, leaking which field was wrong: %q vs %q", errUnknown, errBadPw)
	}
}

func TestCurrentUser_DeletedAccountFailsAuthentication(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{}
	auth := newAuthService(users)
	user := registerUser(t, auth, "Jane", "jane@x.com", "secret1", "")

	if _, err := auth.CurrentUser(context.Background(), user.ID); err != nil {
		t.Fatalf("CurrentUser error: %v", err)
	}

	if err := users.DeleteByID(context.Background(), user.ID); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}

	_, err := auth.CurrentUser(context.Background(), user.ID)
	if apperr.KindOf(err) != apperr.KindAuthentication {
		t.Fatalf("expected authentication error after deletion, got %v", err)
	}
}

// --- VisitService ---

func newVisitFixture() (*VisitService, *fakeVisitStore, *fakeBlobStore) {
	visits := &fakeVisitStore{}
	blobs := &fakeBlobStore{}
	return NewVisitService(visits, blobs, zerolog.Nop()), visits, blobs
}

func TestCreateVisit_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, _ := newVisitFixture()
	visit, err := svc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:      "owner-1",
		PlaceName:    "  Cafe  ",
		Latitude:     40.7128,
		Longitude:    -74.0060,
		Image:        jpegPayload(1024),
		OriginalName: "photo.jpg",
		ContentType:  "image/jpeg",
	})
	if err != nil {
		t.Fatalf("CreateVisit error: %v", err)
	}

	if visit.PlaceName != "Cafe" {
		t.Fatalf("place name not trimmed: %q", visit.PlaceName)
	}
	if visit.Location.Latitude != 40.7128 || visit.Location.Longitude != -74.0060 {
		t.Fatalf("location mismatch: %+v", visit.Location)
	}
	if visit.ImageURL == "" {
		t.Fatalf("no image url")
	}

	got, err := svc.VisitByID(context.Background(), visit.ID)
	if err != nil {
		t.Fatalf("VisitByID error: %v", err)
	}
	if got.Location != visit.Location {
		t.Fatalf("location did not round-trip: %+v vs %+v", got.Location, visit.Location)
	}
}

func TestCreateVisit_ValidationSkipsUpload(t *testing.T) {
	t.Parallel()

	svc, visits, blobs := newVisitFixture()
	cases := []CreateVisitInput{
		{OwnerID: "o", PlaceName: "  ", Latitude: 1, Longitude: 1, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: 91, Longitude: 1, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: -91, Longitude: 1, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: 1, Longitude: 181, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: 1, Longitude: -181, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: 1, Longitude: 1},
	}
	for _, input := range cases {
		if _, err := svc.CreateVisit(context.Background(), input); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
	if blobs.puts != 0 {
		t.Fatalf("blob uploaded despite validation failure")
	}
	if len(visits.visits) != 0 {
		t.Fatalf("row written despite validation failure")
	}
}

func TestCreateVisit_NonFiniteCoordinatesRejected(t *testing.T) {
	t.Parallel()

	svc, visits, blobs := newVisitFixture()
	cases := []CreateVisitInput{
		{OwnerID: "o", PlaceName: "Cafe", Latitude: math.NaN(), Longitude: 1, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: 1, Longitude: math.NaN(), Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: math.Inf(1), Longitude: 1, Image: jpegPayload(8)},
		{OwnerID: "o", PlaceName: "Cafe", Latitude: 1, Longitude: math.Inf(-1), Image: jpegPayload(8)},
	}
	for _, input := range cases {
		if _, err := svc.CreateVisit(context.Background(), input); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("lat=%v lon=%v: expected validation error, got %v", input.Latitude, input.Longitude, err)
		}
	}
	if blobs.puts != 0 {
		t.Fatalf("blob uploaded for non-finite coordinates, puts=%d", blobs.puts)
	}
	if len(visits.visits) != 0 {
		t.Fatalf("row written for non-finite coordinates")
	}
}

func TestCreateVisit_UploadFailureWritesNoRow(t *testing.T) {
	t.Parallel()

	visits := &fakeVisitStore{}
	blobs := &fakeBlobStore{putErr: apperr.Storage("image upload failed", errors.New("backend down"))}
	svc := NewVisitService(visits, blobs, zerolog.Nop())

	_, err := svc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:   "o",
		PlaceName: "Cafe",
		Latitude:  1,
		Longitude: 1,
		Image:     jpegPayload(8),
	})
	if apperr.KindOf(err) != apperr.KindStorage {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(visits.visits) != 0 {
		t.Fatalf("row written despite upload failure")
	}
}

func TestCreateVisit_InsertFailureSurfaces(t *testing.T) {
	t.Parallel()

	visits := &fakeVisitStore{createErr: errors.New("insert failed")}
	blobs := &fakeBlobStore{}
	svc := NewVisitService(visits, blobs, zerolog.Nop())

	_, err := svc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:   "o",
		PlaceName: "Cafe",
		Latitude:  1,
		Longitude: 1,
		Image:     jpegPayload(8),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	// Blob stays orphaned; the sweep reconciles it later.
	if blobs.puts != 1 {
		t.Fatalf("expected the upload to have happened, puts=%d", blobs.puts)
	}
}

func TestVisitsByOwner_NewestFirst(t *testing.T) {
	t.Parallel()

	svc, _, _ := newVisitFixture()
	for i := 0; i < 3; i++ {
		_, err := svc.CreateVisit(context.Background(), CreateVisitInput{
			OwnerID:   "owner-1",
			PlaceName: fmt.Sprintf("Place %d", i),
			Latitude:  1,
			Longitude: 1,
			Image:     jpegPayload(8),
		})
		if err != nil {
			t.Fatalf("CreateVisit error: %v", err)
		}
	}

	visits, err := svc.VisitsByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("VisitsByOwner error: %v", err)
	}
	if len(visits) != 3 {
		t.Fatalf("expected 3 visits, got %d", len(visits))
	}
	if visits[0].PlaceName != "Place 2" {
		t.Fatalf("not newest first: %q", visits[0].PlaceName)
	}
}

func TestDeleteVisit_OwnershipPolicy(t *testing.T) {
	t.Parallel()

	svc, _, blobs := newVisitFixture()
	visit, err := svc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:   "jane",
		PlaceName: "Cafe",
		Latitude:  1,
		Longitude: 1,
		Image:     jpegPayload(8),
	})
	if err != nil {
		t.Fatalf("CreateVisit error: %v", err)
	}

	bob := models.User{ID: "bob", Role: models.RoleRep}
	if _, err := svc.DeleteVisit(context.Background(), visit.ID, bob); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("rep deleting another's visit: expected authorization error, got %v", err)
	}

	admin := models.User{ID: "root", Role: models.RoleAdmin}
	deleted, err := svc.DeleteVisit(context.Background(), visit.ID, admin)
	if err != nil {
		t.Fatalf("admin delete error: %v", err)
	}
	if deleted.ID != visit.ID {
		t.Fatalf("snapshot mismatch: got %q want %q", deleted.ID, visit.ID)
	}
	if len(blobs.deletes) != 1 || blobs.deletes[0] != visit.ImageURL {
		t.Fatalf("blob not cleaned up: %v", blobs.deletes)
	}

	if _, err := svc.VisitByID(context.Background(), visit.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("visit still present after delete: %v", err)
	}
}

func TestDeleteVisit_OwnerMayDelete(t *testing.T) {
	t.Parallel()

	svc, _, _ := newVisitFixture()
	visit, err := svc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:   "jane",
		PlaceName: "Cafe",
		Latitude:  1,
		Longitude: 1,
		Image:     jpegPayload(8),
	})
	if err != nil {
		t.Fatalf("CreateVisit error: %v", err)
	}

	owner := models.User{ID: "jane", Role: models.RoleRep}
	if _, err := svc.DeleteVisit(context.Background(), visit.ID, owner); err != nil {
		t.Fatalf("owner delete error: %v", err)
	}
}

func TestDeleteVisit_MissingIsNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newVisitFixture()
	admin := models.User{ID: "root", Role: models.RoleAdmin}
	if _, err := svc.DeleteVisit(context.Background(), "nope", admin); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteVisit_BlobFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	visits := &fakeVisitStore{}
	blobs := &fakeBlobStore{}
	svc := NewVisitService(visits, blobs, zerolog.Nop())

	visit, err := svc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:   "jane",
		PlaceName: "Cafe",
		Latitude:  1,
		Longitude: 1,
		Image:     jpegPayload(8),
	})
	if err != nil {
		t.Fatalf("CreateVisit error: %v", err)
	}

	blobs.deleteErr = errors.New("backend down")
	owner := models.User{ID: "jane", Role: models.RoleRep}
	if _, err := svc.DeleteVisit(context.Background(), visit.ID, owner); err != nil {
		t.Fatalf("blob failure should not fail the delete: %v", err)
	}
	if len(visits.visits) != 0 {
		t.Fatalf("metadata row still present")
	}
}

// --- UserService ---

func TestDeleteUser_CleansUpVisitsAndBlobs(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{}
	visits := &fakeVisitStore{}
	blobs := &fakeBlobStore{}

	auth := newAuthService(users)
	jane := registerUser(t, auth, "Jane", "jane@x.com", "secret1", "")

	visitSvc := NewVisitService(visits, blobs, zerolog.Nop())
	visit, err := visitSvc.CreateVisit(context.Background(), CreateVisitInput{
		OwnerID:   jane.ID,
		PlaceName: "Cafe",
		Latitude:  1,
		Longitude: 1,
		Image:     jpegPayload(8),
	})
	if err != nil {
		t.Fatalf("CreateVisit error: %v", err)
	}

	userSvc := NewUserService(users, visits, blobs, nil, zerolog.Nop())
	if err := userSvc.DeleteUser(context.Background(), jane.ID); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}

	if _, found, _ := users.FindByID(context.Background(), jane.ID); found {
		t.Fatalf("user still present")
	}
	if len(blobs.deletes) != 1 || blobs.deletes[0] != visit.ImageURL {
		t.Fatalf("visit blob not cleaned up: %v", blobs.deletes)
	}
}

func TestDeleteUser_MissingIsNotFound(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{}
	userSvc := NewUserService(users, &fakeVisitStore{}, &fakeBlobStore{}, nil, zerolog.Nop())
	if err := userSvc.DeleteUser(context.Background(), "nope"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListUsers_NewestFirstAndSanitized(t *testing.T) {
	t.Parallel()

	users := &fakeUserStore{}
	auth := newAuthService(users)
	registerUser(t, auth, "First", "first@x.com", "pw1234", "")
	registerUser(t, auth, "Second", "second@x.com", "pw1234", "admin")

	userSvc := NewUserService(users, &fakeVisitStore{}, &fakeBlobStore{}, nil, zerolog.Nop())
	listed, err := userSvc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 users, got %d", len(listed))
	}
	if listed[0].Email != "second@x.com" {
		t.Fatalf("not newest first: %q", listed[0].Email)
	}
	for _, u := range listed {
		if u.PasswordHash != nil {
			t.Fatalf("password hash leaked for %s", u.Email)
		}
	}
}
