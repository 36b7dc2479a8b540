package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcruz/wayfare/session"
	"github.com/mcruz/wayfare/user"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/user/register", map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[user.User](t, rec)
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, "ana@example.com", created.Email)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)

	// Duplicate email is a conflict.
	rec = env.do(t, http.MethodPost, "/user/register", map[string]string{
		"email":    "ana@example.com",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/user/register", map[string]string{
		"email": "not-an-email", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/user/register", map[string]string{
		"email": "ana@example.com", "password": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/user/register", map[string]string{
		"email": "ana@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/user/login", map[string]string{
		"email": "ana@example.com", "password": "hunter2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/user/login", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/user/login", map[string]string{
		"email": "nobody@example.com", "password": "hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/user/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[user.User](t, rec)

	// The test middleware authenticates every request as env.userID.
	env.userID = created.ID

	rec = env.do(t, http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[user.User](t, rec)
	assert.Equal(t, created.ID, me.ID)
	assert.Equal(t, "Ana", me.Name)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/user/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
