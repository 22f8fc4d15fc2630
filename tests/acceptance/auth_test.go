package acceptance

import (
	"net/http"

	"github.com/prperemyshlev/identity-service/internal/dto"
)

func (s *Suite) TestRegister_Success() {
	var user dto.UserInfo
	resp := s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email:       "Test@Example.com",
		Password:    testPassword,
		DisplayName: "Test",
	}, &user)

	s.Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(user.ID)
	s.Equal("test@example.com", user.Email)
	s.Equal("free", user.Plan)
	s.False(user.EmailVerified)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: "duplicate@example.com", Password: testPassword}, nil)

	var errResp dto.ErrorResponse
	resp := s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: "DUPLICATE@example.com", Password: testPassword}, &errResp)

	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("duplicate_email", errResp.Error)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: "invalid-email", Password: testPassword}, nil)

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_WeakPassword() {
	var errResp dto.ErrorResponse
	resp := s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: "weak@example.com", Password: "short"}, &errResp)

	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("weak_password", errResp.Error)
}

func (s *Suite) TestLogin_RequiresVerifiedEmail() {
	s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: "pending@example.com", Password: testPassword}, nil)

	var errResp dto.ErrorResponse
	resp := s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "pending@example.com", Password: testPassword}, &errResp)

	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("email_not_verified", errResp.Error)
}

func (s *Suite) TestLogin_Success() {
	auth := s.registerVerified("login@example.com")

	s.NotEmpty(auth.AccessToken)
	s.Equal("Bearer", auth.TokenType)
	s.NotZero(auth.ExpiresIn)
	s.True(auth.User.EmailVerified)

	var identity dto.IdentityResponse
	resp := s.do(http.MethodGet, "/api/v1/auth/user", auth.AccessToken, nil, &identity)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(auth.User.ID, identity.ID)
	s.Equal("free", identity.Plan)
	s.Equal("session", identity.AuthMethod)
}

func (s *Suite) TestLogin_InvalidCredentialsAreUniform() {
	s.registerVerified("uniform@example.com")

	var wrongPassword, unknownUser dto.ErrorResponse
	resp1 := s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "uniform@example.com", Password: "Wrong-Horse-42"}, &wrongPassword)
	resp2 := s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "nobody@example.com", Password: testPassword}, &unknownUser)

	s.Equal(http.StatusUnauthorized, resp1.StatusCode)
	s.Equal(resp1.StatusCode, resp2.StatusCode)
	s.Equal(wrongPassword, unknownUser)
}

func (s *Suite) TestVerifyEmail_TokenIsSingleUse() {
	s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: "once@example.com", Password: testPassword}, nil)
	token := s.tokenFromMail("email verification link", "once@example.com")

	resp := s.do(http.MethodPost, "/api/v1/auth/verify-email", "", dto.VerifyEmailRequest{Token: token}, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var errResp dto.ErrorResponse
	resp = s.do(http.MethodPost, "/api/v1/auth/verify-email", "", dto.VerifyEmailRequest{Token: token}, &errResp)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("token_already_used", errResp.Error)
}

func (s *Suite) TestLogout_RevokesToken() {
	auth := s.registerVerified("logout@example.com")

	resp := s.do(http.MethodPost, "/api/v1/auth/logout", auth.AccessToken, nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var errResp dto.ErrorResponse
	resp = s.do(http.MethodGet, "/api/v1/auth/user", auth.AccessToken, nil, &errResp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("token_revoked", errResp.Error)
}

func (s *Suite) TestChangePassword_RevokesEarlierSessions() {
	auth := s.registerVerified("change@example.com")

	resp := s.do(http.MethodPut, "/api/v1/auth/change-password", auth.AccessToken, dto.ChangePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "Battery-Staple-99",
	}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/auth/user", auth.AccessToken, nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var fresh dto.AuthResponse
	resp = s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "change@example.com", Password: "Battery-Staple-99"}, &fresh)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/auth/user", fresh.AccessToken, nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestPasswordReset_Flow() {
	auth := s.registerVerified("reset@example.com")

	resp := s.do(http.MethodPost, "/api/v1/auth/forgot-password", "", dto.ForgotPasswordRequest{Email: "reset@example.com"}, nil)
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)

	token := s.tokenFromMail("password reset link", "reset@example.com")
	resp = s.do(http.MethodPost, "/api/v1/auth/reset-password", "", dto.ResetPasswordRequest{Token: token, NewPassword: "Battery-Staple-99"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/auth/user", auth.AccessToken, nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "reset@example.com", Password: testPassword}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "reset@example.com", Password: "Battery-Staple-99"}, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestForgotPassword_UnknownAddressLooksTheSame() {
	resp := s.do(http.MethodPost, "/api/v1/auth/forgot-password", "", dto.ForgotPasswordRequest{Email: "ghost@example.com"}, nil)

	s.Equal(http.StatusAccepted, resp.StatusCode)
}

func (s *Suite) TestProfile_ListsNoProvidersForLocalAccount() {
	auth := s.registerVerified("profile@example.com")

	var profile dto.ProfileResponse
	resp := s.do(http.MethodGet, "/api/v1/auth/profile", auth.AccessToken, nil, &profile)

	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(profile.HasPassword)
	s.Empty(profile.Providers)
}

func (s *Suite) TestOAuth_UnconfiguredProvider() {
	var errResp dto.ErrorResponse
	resp := s.do(http.MethodGet, "/api/v1/auth/google", "", nil, &errResp)

	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("unsupported_provider", errResp.Error)
}

func (s *Suite) TestAuth_MissingToken() {
	var errResp dto.ErrorResponse
	resp := s.do(http.MethodGet, "/api/v1/auth/user", "", nil, &errResp)

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthenticated", errResp.Error)
}
