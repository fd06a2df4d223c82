package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shorif2005/projectflow/internal/handlers/testutil"
	"github.com/shorif2005/projectflow/internal/models"
)

func latestOTPCode(t *testing.T, env *testutil.Env, userID string) string {
	t.Helper()
	var otp models.EmailOTP
	require.NoError(t, env.DB.First(&otp, "user_id = ?", userID).Error)
	return otp.Code
}

func TestAuthHandler_RegisterVerifyLogin(t *testing.T) {
	env := testutil.NewEnv(t)

	register := env.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "newcomer",
		"email":    "Newcomer@Example.com",
		"password": "Sup3rSecret!",
	}, "")
	require.Equal(t, http.StatusCreated, register.Code, register.Body.String())

	var user models.User
	require.NoError(t, env.DB.First(&user, "email = ?", "newcomer@example.com").Error)
	require.False(t, user.IsActive)
	require.NotEmpty(t, env.Mailer.Sent)

	// Login is refused until the address is verified.
	locked := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "newcomer@example.com",
		"password": "Sup3rSecret!",
	}, "")
	require.Equal(t, http.StatusForbidden, locked.Code, locked.Body.String())

	verify := env.Request(http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "newcomer@example.com",
		"code":  latestOTPCode(t, env, user.ID),
	}, "")
	require.Equal(t, http.StatusOK, verify.Code, verify.Body.String())

	login := env.Login("newcomer@example.com", "Sup3rSecret!")
	token := login.Tokens.AccessToken

	me := env.Request(http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, me.Code)
	meResp := testutil.DecodeResponse(t, me)
	require.True(t, meResp.Success)
	var meData map[string]testutil.UserPayload
	testutil.DecodeInto(t, meResp.Data, &meData)
	require.Equal(t, "newcomer", meData["user"].Username)

	refresh := env.Request(http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": login.Tokens.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, refresh.Code, refresh.Body.String())

	logout := env.Request(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, logout.Code, logout.Body.String())
}

func TestAuthHandler_VerifyRejectsWrongCode(t *testing.T) {
	env := testutil.NewEnv(t)

	register := env.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "impatient",
		"email":    "impatient@example.com",
		"password": "Sup3rSecret!",
	}, "")
	require.Equal(t, http.StatusCreated, register.Code)

	verify := env.Request(http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "impatient@example.com",
		"code":  "000000",
	}, "")
	require.Equal(t, http.StatusBadRequest, verify.Code)

	// Unknown addresses get the same answer as wrong codes.
	unknown := env.Request(http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "ghost@example.com",
		"code":  "123456",
	}, "")
	require.Equal(t, http.StatusBadRequest, unknown.Code)
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("OldPassw0rd!")

	forgot := env.Request(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": user.Email,
	}, "")
	require.Equal(t, http.StatusOK, forgot.Code)

	// Unknown addresses receive the same response.
	unknown := env.Request(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}, "")
	require.Equal(t, http.StatusOK, unknown.Code)

	reset := env.Request(http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email":        user.Email,
		"code":         latestOTPCode(t, env, user.ID),
		"new_password": "NewPassw0rd!",
	}, "")
	require.Equal(t, http.StatusOK, reset.Code, reset.Body.String())

	old := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    user.Email,
		"password": "OldPassw0rd!",
	}, "")
	require.Equal(t, http.StatusUnauthorized, old.Code)

	env.Login(user.Email, "NewPassw0rd!")
}
