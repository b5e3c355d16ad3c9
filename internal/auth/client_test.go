package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc, retryAttempts uint) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := newClient(resty.New().SetBaseURL(server.URL).SetHeader("apikey", "anon"), retryAttempts)
	client.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var sessionBody = map[string]any{
	"access_token":  "access-1",
	"refresh_token": "refresh-1",
	"expires_in":    3600,
	"user": map[string]any{
		"id":            "user-1",
		"email":         "ada@example.com",
		"user_metadata": map[string]any{"display_name": "Ada", "avatar_url": "https://example.com/a.png"},
	},
}

func TestClient_SignIn(t *testing.T) {
	tests := []struct {
		name          string
		handler       func(t *testing.T, w http.ResponseWriter, r *http.Request)
		wantSession   *Session
		wantErrorKind ErrorKind
	}{
		{
			name: "success",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/token", r.URL.Path)
				assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
				assert.Equal(t, "anon", r.Header.Get("apikey"))

				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, map[string]string{"email": "ada@example.com", "password": "secret"}, body)

				writeJSON(w, http.StatusOK, sessionBody)
			},
			wantSession: &Session{
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				ExpiresAt:    fixedNow.Add(time.Hour),
				User: User{
					ID:          "user-1",
					Email:       "ada@example.com",
					DisplayName: "Ada",
					AvatarURL:   "https://example.com/a.png",
				},
			},
		},
		{
			name: "invalid grant",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error":             "invalid_grant",
					"error_description": "Invalid login credentials",
				})
			},
			wantErrorKind: KindInvalidCredentials,
		},
		{
			name: "invalid credentials error code",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"code":       400,
					"error_code": "invalid_credentials",
					"msg":        "Invalid login credentials",
				})
			},
			wantErrorKind: KindInvalidCredentials,
		},
		{
			name: "other client error",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "Email not confirmed"})
			},
			wantErrorKind: KindProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				tt.handler(t, w, r)
			}, 0)

			got, err := client.SignIn(context.Background(), "ada@example.com", "secret")
			if tt.wantSession == nil {
				require.Error(t, err)
				assert.True(t, IsKind(err, tt.wantErrorKind), "got %v", err)
				assert.Nil(t, client.CurrentUser())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSession, got)
			assert.Equal(t, &tt.wantSession.User, client.CurrentUser())
		})
	}
}

func TestClient_SignIn_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"msg": "try later"})
			return
		}
		writeJSON(w, http.StatusOK, sessionBody)
	}, 2)

	got, err := client.SignIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.User.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_SignIn_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
	}, 3)

	_, err := client.SignIn(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SignIn_NetworkError(t *testing.T) {
	client := newClient(resty.New().SetBaseURL("http://127.0.0.1:1"), 0)
	defer client.Close()

	_, err := client.SignIn(context.Background(), "ada@example.com", "secret")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork), "got %v", err)
}

func TestClient_SignUp(t *testing.T) {
	t.Run("session returned", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/signup", r.URL.Path)
			var body struct {
				Email    string            `json:"email"`
				Password string            `json:"password"`
				Data     map[string]string `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Ada", body.Data["display_name"])
			writeJSON(w, http.StatusOK, sessionBody)
		}, 0)

		got, err := client.SignUp(context.Background(), "ada@example.com", "secret", "Ada")
		require.NoError(t, err)
		assert.Equal(t, "access-1", got.AccessToken)
		assert.NotNil(t, client.CurrentUser())
	})

	t.Run("confirmation pending", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":            "user-2",
				"email":         "bob@example.com",
				"user_metadata": map[string]any{"display_name": "Bob"},
			})
		}, 0)

		got, err := client.SignUp(context.Background(), "bob@example.com", "secret", "Bob")
		require.NoError(t, err)
		assert.Empty(t, got.AccessToken)
		assert.Equal(t, User{ID: "user-2", Email: "bob@example.com", DisplayName: "Bob"}, got.User)
		assert.Nil(t, client.CurrentUser())
	})
}

func TestClient_SignInWithIDToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id_token", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"provider": "google", "id_token": "google-token"}, body)
		writeJSON(w, http.StatusOK, sessionBody)
	}, 0)

	got, err := client.SignInWithIDToken(context.Background(), "google", "google-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.User.ID)
}

func TestClient_SignOut(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "success", status: http.StatusNoContent},
		{name: "service rejects", status: http.StatusUnauthorized, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/token":
					writeJSON(w, http.StatusOK, sessionBody)
				case "/logout":
					assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
					w.WriteHeader(tt.status)
				}
			}, 0)

			_, err := client.SignIn(context.Background(), "ada@example.com", "secret")
			require.NoError(t, err)

			err = client.SignOut(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Nil(t, client.CurrentUser())
			assert.Nil(t, client.Session())
		})
	}
}

func TestClient_Restore(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/user", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer saved" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, sessionBody["user"])
	}, 0)

	_, err := client.Restore(context.Background(), Session{AccessToken: "other", ExpiresAt: fixedNow.Add(time.Minute)})
	assert.True(t, IsKind(err, KindUnauthenticated), "got %v", err)

	_, err = client.Restore(context.Background(), Session{AccessToken: "saved", ExpiresAt: fixedNow})
	assert.True(t, IsKind(err, KindUnauthenticated), "got %v", err)

	user, err := client.Restore(context.Background(), Session{AccessToken: "saved", ExpiresAt: fixedNow.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "saved", client.Session().AccessToken)
}

func TestClient_OnAuthStateChange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logout" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, sessionBody)
	}, 0)

	var seen []*User
	unsubscribe := client.OnAuthStateChange(func(u *User) {
		seen = append(seen, u)
	})

	_, err := client.SignIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, client.SignOut(context.Background()))

	unsubscribe()
	_, err = client.SignIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Nil(t, seen[0])
	assert.Equal(t, "user-1", seen[1].ID)
	assert.Nil(t, seen[2])
}
