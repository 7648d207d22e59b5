package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"video-relay/domain/model"
	"video-relay/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const stateSecret = "state-secret"

type fakeConsent struct {
	configured bool
	token      *oauth2.Token
	err        error
}

func (f *fakeConsent) Configured() bool { return f.configured }

func (f *fakeConsent) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeConsent) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code != "code-1" {
		return nil, errors.New("bad code")
	}
	return f.token, f.err
}

type MockDriveCredential struct {
	mock.Mock
}

func (m *MockDriveCredential) GetUserCredentials(ctx context.Context, userID string) (*model.DriveCredential, error) {
	args := m.Called(ctx, userID)
	cred, _ := args.Get(0).(*model.DriveCredential)
	return cred, args.Error(1)
}

func (m *MockDriveCredential) UpdateUserAccessToken(ctx context.Context, userID, accessToken string, expiry time.Time) error {
	return m.Called(ctx, userID, accessToken, expiry).Error(0)
}

func (m *MockDriveCredential) UpsertUserCredentials(ctx context.Context, cred *model.DriveCredential) error {
	return m.Called(ctx, cred).Error(0)
}

func driveAuthRouter(h IDriveAuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/auth/drive", func(c *gin.Context) { c.Set("user_id", "user-1") }, h.GetAuthURL)
	r.GET("/auth/drive/callback", h.HandleCallback)
	return r
}

func validState(t *testing.T) string {
	state, err := utils.SignStateToken("user-1", time.Minute, stateSecret)
	require.NoError(t, err)
	return state
}

func TestDriveAuthHandler_GetAuthURL(t *testing.T) {
	h := NewDriveAuthHandler(&fakeConsent{configured: true}, new(MockDriveCredential), stateSecret)

	w := serve(driveAuthRouter(h), http.MethodGet, "/api/auth/drive", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	u, err := url.Parse(body["auth_url"])
	require.NoError(t, err)
	userID, err := utils.ParseStateToken(u.Query().Get("state"), stateSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestDriveAuthHandler_GetAuthURLNotConfigured(t *testing.T) {
	h := NewDriveAuthHandler(&fakeConsent{}, new(MockDriveCredential), stateSecret)
	w := serve(driveAuthRouter(h), http.MethodGet, "/api/auth/drive", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDriveAuthHandler_CallbackStoresCredential(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	token := (&oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}).
		WithExtra(map[string]interface{}{"scope": "https://www.googleapis.com/auth/drive"})
	creds := new(MockDriveCredential)
	creds.On("UpsertUserCredentials", mock.Anything, mock.MatchedBy(func(c *model.DriveCredential) bool {
		return c.UserID == "user-1" &&
			c.AccessToken == "access" &&
			c.RefreshToken == "refresh" &&
			c.ExpiresAt != nil && c.ExpiresAt.Equal(expiry) &&
			c.Scopes == "https://www.googleapis.com/auth/drive"
	})).Return(nil)
	h := NewDriveAuthHandler(&fakeConsent{configured: true, token: token}, creds, stateSecret)

	w := serve(driveAuthRouter(h), http.MethodGet, "/auth/drive/callback?code=code-1&state="+url.QueryEscape(validState(t)), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_refresh_token":true`)
	creds.AssertExpectations(t)
}

func TestDriveAuthHandler_CallbackRejections(t *testing.T) {
	forged, err := utils.SignStateToken("user-1", time.Minute, "someone-else")
	require.NoError(t, err)
	bearer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Issuer:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(stateSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"provider error", "error=access_denied", http.StatusBadRequest},
		{"missing state", "code=code-1", http.StatusBadRequest},
		{"forged state", "code=code-1&state=" + url.QueryEscape(forged), http.StatusBadRequest},
		{"bearer token as state", "code=code-1&state=" + url.QueryEscape(bearer), http.StatusBadRequest},
		{"missing code", "state=" + url.QueryEscape(validState(t)), http.StatusBadRequest},
		{"exchange fails", "code=wrong&state=" + url.QueryEscape(validState(t)), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := new(MockDriveCredential)
			h := NewDriveAuthHandler(&fakeConsent{configured: true, token: &oauth2.Token{AccessToken: "a"}}, creds, stateSecret)

			w := serve(driveAuthRouter(h), http.MethodGet, "/auth/drive/callback?"+tt.query, "")

			assert.Equal(t, tt.status, w.Code)
			creds.AssertNotCalled(t, "UpsertUserCredentials", mock.Anything, mock.Anything)
		})
	}
}

func TestDriveAuthHandler_CallbackStoreFailure(t *testing.T) {
	creds := new(MockDriveCredential)
	creds.On("UpsertUserCredentials", mock.Anything, mock.Anything).Return(errors.New("db down"))
	h := NewDriveAuthHandler(&fakeConsent{configured: true, token: &oauth2.Token{AccessToken: "a"}}, creds, stateSecret)

	w := serve(driveAuthRouter(h), http.MethodGet, "/auth/drive/callback?code=code-1&state="+url.QueryEscape(validState(t)), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
