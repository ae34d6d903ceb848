package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"milkportal/domain/core"
	"milkportal/domain/submission"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "shh"

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*submission.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*submission.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *submission.User) (*submission.User, error) {
	args := m.Called(ctx, user)
	stored, _ := args.Get(0).(*submission.User)
	return stored, args.Error(1)
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		Email: "vet@farm.test",
		Name:  "Vet",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  jwt.ClaimStrings{"milkportal"},
		},
	}
}

func TestParseToken(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noEmail := validClaims()
	noEmail.Email = " "

	tests := []struct {
		name     string
		token    string
		audience string
		wantErr  bool
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims()), "milkportal", false},
		{"no audience check", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims()), "", false},
		{"wrong audience", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims()), "other", true},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("nope"), validClaims()), "", true},
		{"other hmac", sign(t, jwt.SigningMethodHS512, []byte(secret), validClaims()), "", true},
		{"unsigned", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims()), "", true},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), expired), "", true},
		{"no email", sign(t, jwt.SigningMethodHS256, []byte(secret), noEmail), "", true},
		{"garbage", "not-a-token", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.token, secret, tt.audience)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "vet@farm.test", claims.Email)
		})
	}
}

func runAuth(t *testing.T, opts AuthOptions, users *MockUserRepository, header string) (*httptest.ResponseRecorder, *submission.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen *submission.User
	r := gin.New()
	r.GET("/me", Authenticate(opts, users), func(c *gin.Context) {
		seen, _ = CurrentUser(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestAuthenticate_SingleUserMode(t *testing.T) {
	users := new(MockUserRepository)
	stored := &submission.User{ID: "u1", Email: DefaultEmail, Name: DefaultName, Role: submission.RoleAdmin}
	users.On("GetByEmail", mock.Anything, DefaultEmail).Return(nil, core.ErrUserNotFound).Once()
	users.On("Upsert", mock.Anything, mock.MatchedBy(func(u *submission.User) bool {
		return u.Email == DefaultEmail && u.Role == submission.RoleAdmin
	})).Return(stored, nil).Once()

	w, user := runAuth(t, AuthOptions{}, users, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stored, user)
	users.AssertExpectations(t)
}

func TestAuthenticate_KnownUserSkipsWrite(t *testing.T) {
	users := new(MockUserRepository)
	stored := &submission.User{ID: "u2", Email: "vet@farm.test", Name: "Vet", Role: submission.RoleMember}
	users.On("GetByEmail", mock.Anything, "vet@farm.test").Return(stored, nil)

	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())
	w, user := runAuth(t, AuthOptions{Secret: secret}, users, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stored, user)
	users.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAuthenticate_ConfiguredAdminIsPromoted(t *testing.T) {
	users := new(MockUserRepository)
	stored := &submission.User{ID: "u2", Email: "vet@farm.test", Name: "Vet", Role: submission.RoleMember}
	promoted := &submission.User{ID: "u2", Email: "vet@farm.test", Name: "Vet", Role: submission.RoleAdmin}
	users.On("GetByEmail", mock.Anything, "vet@farm.test").Return(stored, nil)
	users.On("Upsert", mock.Anything, mock.MatchedBy(func(u *submission.User) bool {
		return u.Role == submission.RoleAdmin
	})).Return(promoted, nil)

	opts := AuthOptions{Secret: secret, IsAdmin: func(email string) bool { return email == "vet@farm.test" }}
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())
	w, user := runAuth(t, opts, users, "bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, user.IsAdmin())
}

func TestAuthenticate_Rejections(t *testing.T) {
	users := new(MockUserRepository)
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer " + tok + "x"} {
		w, user := runAuth(t, AuthOptions{Secret: secret}, users, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`, header)
		assert.Nil(t, user)
	}
	users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, DefaultEmail).Return(nil, assert.AnError)

	w, _ := runAuth(t, AuthOptions{}, users, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to load user","code":"DATABASE_ERROR"}`, w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var readErr error
	r.POST("/", BodyLimit(4), func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("123456")))

	var tooLarge *http.MaxBytesError
	require.ErrorAs(t, readErr, &tooLarge)
	assert.Equal(t, int64(4), tooLarge.Limit)

	r = gin.New()
	r.POST("/", BodyLimit(4), func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("1234")))
	assert.NoError(t, readErr)
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var deadline bool
	r.GET("/", RequestTimeout(time.Second), func(c *gin.Context) {
		_, deadline = c.Request.Context().Deadline()
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, deadline)
}
