package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type fakeGoogle struct {
	identity *GoogleIdentity
	err      error
}

func (f *fakeGoogle) FetchIdentity(ctx context.Context, code, redirectURI string) (*GoogleIdentity, error) {
	return f.identity, f.err
}

type authFixture struct {
	svc   *AuthService
	users *repositories.UserRepository
	board *LeaderboardService
}

func newAuthFixture(t *testing.T, google GoogleIdentityProvider) *authFixture {
	t.Helper()
	db := newTestDB(t)
	board := NewLeaderboardService(db, nil)
	return &authFixture{
		svc:   NewAuthService(db, newTestJWT(), board, google),
		users: repositories.NewUserRepository(db),
		board: board,
	}
}

func (f *authFixture) register(t *testing.T, email string) *dto.RegisterResponse {
	t.Helper()
	resp, err := f.svc.Register(dto.RegisterRequest{Email: email, Username: "noa", Password: "Secret123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	appErr, ok := shared.GetAppError(err)
	if !ok {
		t.Fatalf("err = %v, want AppError with status %d", err, want)
	}
	if appErr.StatusCode != want {
		t.Fatalf("status = %d (%s), want %d", appErr.StatusCode, appErr.Message, want)
	}
}

func TestRegisterStoresOneRefreshToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	resp := f.register(t, "Student@Example.com")

	if resp.ID == "" || resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if resp.Email != "student@example.com" {
		t.Errorf("email = %q, want normalised", resp.Email)
	}

	count, err := f.users.CountRefreshTokens(resp.ID)
	if err != nil {
		t.Fatalf("CountRefreshTokens: %v", err)
	}
	if count != 1 {
		t.Errorf("refresh tokens = %d, want 1", count)
	}

	user, err := f.users.GetUser(resp.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Password == "Secret123" {
		t.Error("password stored in clear text")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "noa@example.com")

	_, err := f.svc.Register(dto.RegisterRequest{Email: "noa@example.com", Username: "other", Password: "Secret123"})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestLoginDoesNotRevealWhichFieldFailed(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "noa@example.com")

	resp, err := f.svc.Login(dto.LoginRequest{Email: "noa@example.com", Password: "Secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.Username != "noa" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	_, wrongPassword := f.svc.Login(dto.LoginRequest{Email: "noa@example.com", Password: "Wrong1234"})
	_, unknownEmail := f.svc.Login(dto.LoginRequest{Email: "nobody@example.com", Password: "Secret123"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		assertStatus(t, err, http.StatusBadRequest)
		appErr, _ := shared.GetAppError(err)
		if appErr.Message != "Invalid Email Or Password" {
			t.Errorf("message = %q", appErr.Message)
		}
	}
}

func TestLoginRejectsExternalAccountPassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	if _, err := f.users.CreateUser(&model.User{Email: "g@example.com", Username: "g", Password: model.ExternalAuthPassword}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err := f.svc.Login(dto.LoginRequest{Email: "g@example.com", Password: model.ExternalAuthPassword})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	reg := f.register(t, "noa@example.com")

	pair, err := f.svc.RefreshToken(dto.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if pair.RefreshToken == reg.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	count, _ := f.users.CountRefreshTokens(reg.ID)
	if count != 1 {
		t.Errorf("refresh tokens = %d, want 1 after rotation", count)
	}

	// the new token keeps working
	if _, err := f.svc.RefreshToken(dto.RefreshTokenRequest{RefreshToken: pair.RefreshToken}); err != nil {
		t.Fatalf("second rotation: %v", err)
	}
}

func TestRefreshWithInactiveTokenRevokesEverySession(t *testing.T) {
	f := newAuthFixture(t, nil)
	reg := f.register(t, "noa@example.com")

	login, err := f.svc.Login(dto.LoginRequest{Email: "noa@example.com", Password: "Secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := f.svc.RefreshToken(dto.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}

	// replaying the rotated-out token
	_, err = f.svc.RefreshToken(dto.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	assertStatus(t, err, http.StatusBadRequest)

	for name, token := range map[string]string{"login": login.RefreshToken, "rotated": rotated.RefreshToken} {
		_, err := f.svc.RefreshToken(dto.RefreshTokenRequest{RefreshToken: token})
		if err == nil {
			t.Errorf("%s token still valid after lockout", name)
		}
	}

	count, _ := f.users.CountRefreshTokens(reg.ID)
	if count != 0 {
		t.Errorf("refresh tokens = %d, want 0", count)
	}
}

func TestRefreshBadSignature(t *testing.T) {
	f := newAuthFixture(t, nil)
	reg := f.register(t, "noa@example.com")

	_, err := f.svc.RefreshToken(dto.RefreshTokenRequest{RefreshToken: reg.AccessToken})
	assertStatus(t, err, http.StatusForbidden)

	count, _ := f.users.CountRefreshTokens(reg.ID)
	if count != 1 {
		t.Errorf("bad signature must not touch the set, got %d tokens", count)
	}
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t, nil)
	reg := f.register(t, "noa@example.com")

	assertStatus(t, f.svc.Logout(reg.ID, ""), http.StatusBadRequest)
	assertStatus(t, f.svc.Logout(reg.ID, "garbage"), http.StatusForbidden)

	if err := f.svc.Logout(reg.ID, reg.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	assertStatus(t, f.svc.Logout(reg.ID, reg.RefreshToken), http.StatusNotFound)
}

func TestLogoutWithAnotherUsersToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	a := f.register(t, "a@example.com")
	b := f.register(t, "b@example.com")

	assertStatus(t, f.svc.Logout(a.ID, b.RefreshToken), http.StatusForbidden)
}

func TestDeleteUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	reg := f.register(t, "noa@example.com")
	other := f.register(t, "other@example.com")

	if err := f.board.RecordLessonResult(reg.ID, 5); err != nil {
		t.Fatalf("RecordLessonResult: %v", err)
	}

	assertStatus(t, f.svc.DeleteUser(other.ID, dto.DeleteUserRequest{UserID: reg.ID, Password: "Secret123"}), http.StatusForbidden)
	assertStatus(t, f.svc.DeleteUser(reg.ID, dto.DeleteUserRequest{UserID: reg.ID, Password: "nope"}), http.StatusBadRequest)

	if err := f.svc.DeleteUser(reg.ID, dto.DeleteUserRequest{UserID: reg.ID, Password: "Secret123"}); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if _, err := f.users.GetUser(reg.ID); err == nil {
		t.Error("user still exists")
	}
	board, err := f.board.Top(10, "")
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(board.TopUsers) != 0 {
		t.Errorf("leaderboard still has %d entries", len(board.TopUsers))
	}

	assertStatus(t, f.svc.DeleteUser(reg.ID, dto.DeleteUserRequest{UserID: reg.ID}), http.StatusNotFound)
}

func TestGoogleLoginCreatesExternalAccount(t *testing.T) {
	google := &fakeGoogle{identity: &GoogleIdentity{Email: "g@example.com", EmailVerified: true, Name: "Gal"}}
	f := newAuthFixture(t, google)

	first, err := f.svc.GoogleLogin(context.Background(), dto.GoogleLoginRequest{Code: "c", RedirectURI: "http://localhost/cb"})
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if !first.IsGoogleAccount || first.Username != "Gal" {
		t.Fatalf("unexpected profile: %+v", first.UserProfileResponse)
	}

	second, err := f.svc.GoogleLogin(context.Background(), dto.GoogleLoginRequest{Code: "c2", RedirectURI: "http://localhost/cb"})
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second sign-in created a new account")
	}

	// external accounts are deleted without a password
	if err := f.svc.DeleteUser(first.ID, dto.DeleteUserRequest{UserID: first.ID}); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
}

func TestGoogleLoginErrors(t *testing.T) {
	f := newAuthFixture(t, &fakeGoogle{err: errors.New("bad code")})
	_, err := f.svc.GoogleLogin(context.Background(), dto.GoogleLoginRequest{Code: "c"})
	assertStatus(t, err, http.StatusUnauthorized)

	f = newAuthFixture(t, &fakeGoogle{err: ErrGoogleNotConfigured})
	_, err = f.svc.GoogleLogin(context.Background(), dto.GoogleLoginRequest{Code: "c"})
	assertStatus(t, err, http.StatusInternalServerError)
}
