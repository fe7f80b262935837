package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newEndpointProvider(t *testing.T, handler http.Handler) (*GoogleProvider, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider(ProviderConfig{
		ClientID:     "client-id",
		TokenInfoURL: srv.URL + "/tokeninfo",
		RevokeURL:    srv.URL + "/revoke",
		UserInfoURL:  srv.URL + "/userinfo",
	}, srv.Client(), nil)

	return p, srv
}

func TestRevoke(t *testing.T) {
	var gotToken, gotContentType string

	p, _ := newEndpointProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/revoke", r.URL.Path)

		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotToken = r.PostForm.Get("token")

		w.WriteHeader(http.StatusOK)
	}))

	err := p.Revoke(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestRevoke_ServerError(t *testing.T) {
	p, _ := newEndpointProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	err := p.Revoke(context.Background(), "tok-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestIntrospect(t *testing.T) {
	var gotToken string

	p, _ := newEndpointProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tokeninfo", r.URL.Path)
		gotToken = r.URL.Query().Get("access_token")
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, p.Introspect(context.Background(), "tok with spaces"))
	assert.Equal(t, "tok with spaces", gotToken)
}

func TestIntrospect_InvalidToken(t *testing.T) {
	p, _ := newEndpointProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := p.Introspect(context.Background(), "expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestFetchProfile(t *testing.T) {
	p, _ := newEndpointProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/userinfo", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{"id":"u1","name":"Asha Patel","email":"asha@example.com"}`)
	}))

	profile, err := p.FetchProfile(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "Asha Patel", profile.Name)
	assert.Equal(t, "asha@example.com", profile.Email)
}

func TestFetchProfile_MalformedBody(t *testing.T) {
	p, _ := newEndpointProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json")
	}))

	_, err := p.FetchProfile(context.Background(), "tok-123")
	require.Error(t, err)
}

func TestRefresh_RequiresRefreshToken(t *testing.T) {
	p := NewGoogleProvider(ProviderConfig{ClientID: "client-id"}, nil, nil)

	_, err := p.RequestToken(context.Background(), PromptNone, "")
	assert.ErrorIs(t, err, ErrNoRefreshCredential)
}

func TestToCredential(t *testing.T) {
	t.Run("preserves rotated refresh token", func(t *testing.T) {
		cred := toCredential(&oauth2.Token{
			AccessToken:  "at",
			RefreshToken: "rt-new",
			Expiry:       time.Now().Add(time.Hour),
		}, "rt-old")

		assert.Equal(t, "rt-new", cred.RefreshToken)
		assert.InDelta(t, time.Hour.Seconds(), cred.ExpiresIn.Seconds(), 5)
	})

	t.Run("falls back to prior refresh token", func(t *testing.T) {
		cred := toCredential(&oauth2.Token{AccessToken: "at"}, "rt-old")

		assert.Equal(t, "rt-old", cred.RefreshToken)
		assert.Zero(t, cred.ExpiresIn)
	})
}

func TestHandleOAuthCallback(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantCode   string
		wantErr    string
		wantStatus int
	}{
		{
			name:       "valid callback",
			query:      url.Values{"state": {"s1"}, "code": {"auth-code"}},
			wantCode:   "auth-code",
			wantStatus: http.StatusOK,
		},
		{
			name:       "state mismatch",
			query:      url.Values{"state": {"wrong"}, "code": {"auth-code"}},
			wantErr:    "state mismatch",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "provider error",
			query:      url.Values{"state": {"s1"}, "error": {"access_denied"}},
			wantErr:    "access_denied",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing code",
			query:      url.Values{"state": {"s1"}},
			wantErr:    "missing authorization code",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resultCh := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query.Encode(), nil)

			handleOAuthCallback(rec, req, "s1", resultCh)

			assert.Equal(t, tt.wantStatus, rec.Code)

			result := <-resultCh
			if tt.wantErr != "" {
				require.Error(t, result.err)
				assert.Contains(t, result.err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, result.err)
			assert.Equal(t, tt.wantCode, result.code)
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)
	require.Len(t, a, stateTokenBytes*2)

	b, err := generateState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
