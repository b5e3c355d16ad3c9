package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"
)

// Client implements Provider against a GoTrue-compatible REST API.
type Client struct {
	httpClient       *resty.Client
	maxRetryAttempts uint
	now              func() time.Time

	mu          sync.Mutex
	session     *Session
	subscribers map[int]func(*User)
	nextID      int
}

// NewClient creates a Client. baseURL is the auth endpoint root, for
// example https://<project>.supabase.co/auth/v1.
func NewClient(baseURL, anonKey string, retryAttempts uint) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("apikey", anonKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(10 * time.Second)

	return newClient(client, retryAttempts)
}

func newClient(httpClient *resty.Client, retryAttempts uint) *Client {
	return &Client{
		httpClient:       httpClient,
		maxRetryAttempts: retryAttempts,
		now:              time.Now,
		subscribers:      make(map[int]func(*User)),
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userResponse) toUser() User {
	user := User{ID: u.ID, Email: u.Email}
	for _, key := range []string{"display_name", "full_name", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			user.DisplayName = v
			break
		}
	}
	if v, ok := u.UserMetadata["avatar_url"].(string); ok {
		user.AvatarURL = v
	}
	return user
}

// tokenResponse is either a session or, when email confirmation is
// pending after sign-up, a bare user.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
	User         *userResponse `json:"user"`
	userResponse
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) message() string {
	for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	var authErr *Error
	if !errors.As(err, &authErr) {
		return false
	}
	if authErr.Kind == KindNetwork {
		return true
	}
	return authErr.Status >= http.StatusInternalServerError || authErr.Status == http.StatusTooManyRequests
}

func (client *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			if err := fn(); err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

func (client *Client) post(ctx context.Context, path string, body any, token string, result any) error {
	return client.withRetry(ctx, func() error {
		request := client.httpClient.R().
			SetContext(ctx).
			SetBody(body).
			SetError(&errorResponse{})
		if result != nil {
			request.SetResult(result)
		}
		if token != "" {
			request.SetAuthToken(token)
		}
		response, err := request.Post(path)
		return toError(response, err)
	})
}

func toError(response *resty.Response, err error) error {
	if err != nil {
		return &Error{Kind: KindNetwork, Err: fmt.Errorf("httpClient.Post > %w", err)}
	}
	if !response.IsError() {
		return nil
	}

	status := response.StatusCode()
	message := response.String()
	if body, ok := response.Error().(*errorResponse); ok && body != nil && body.message() != "" {
		message = body.message()
	}

	kind := KindProvider
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindUnauthenticated
	case status == http.StatusBadRequest && isCredentialsError(response.Error()):
		kind = KindInvalidCredentials
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

func isCredentialsError(body any) bool {
	e, ok := body.(*errorResponse)
	if !ok || e == nil {
		return false
	}
	return e.Error == "invalid_grant" || e.ErrorCode == "invalid_credentials" ||
		strings.Contains(strings.ToLower(e.message()), "invalid login credentials")
}

func (client *Client) sessionFrom(token *tokenResponse) *Session {
	if token.AccessToken == "" {
		return nil
	}
	session := &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if token.ExpiresIn > 0 {
		session.ExpiresAt = client.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	if token.User != nil {
		session.User = token.User.toUser()
	}
	return session
}

// SignUp registers a new user. When the service requires email
// confirmation no session is started and the returned Session has only
// the user set.
func (client *Client) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"display_name": displayName},
	}
	var token tokenResponse
	if err := client.post(ctx, "/signup", body, "", &token); err != nil {
		return nil, err
	}

	if session := client.sessionFrom(&token); session != nil {
		client.setSession(session)
		return session, nil
	}
	return &Session{User: token.userResponse.toUser()}, nil
}

// SignIn exchanges an email and password for a session.
func (client *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return client.grant(ctx, "password", map[string]string{"email": email, "password": password})
}

// SignInWithIDToken signs in with an OpenID Connect token from a
// third-party identity provider such as google.
func (client *Client) SignInWithIDToken(ctx context.Context, provider, idToken string) (*Session, error) {
	return client.grant(ctx, "id_token", map[string]string{"provider": provider, "id_token": idToken})
}

func (client *Client) grant(ctx context.Context, grantType string, body any) (*Session, error) {
	var token tokenResponse
	if err := client.post(ctx, "/token?grant_type="+grantType, body, "", &token); err != nil {
		return nil, err
	}
	session := client.sessionFrom(&token)
	if session == nil {
		return nil, &Error{Kind: KindProvider, Message: "no access token in response"}
	}
	client.setSession(session)
	return session, nil
}

// SignOut revokes the session. The local session is cleared even when the
// request fails.
func (client *Client) SignOut(ctx context.Context) error {
	client.mu.Lock()
	var token string
	if client.session != nil {
		token = client.session.AccessToken
	}
	client.mu.Unlock()

	var err error
	if token != "" {
		err = client.post(ctx, "/logout", nil, token, nil)
	}
	client.setSession(nil)
	return err
}

// Restore adopts a previously saved session after checking it against
// the service.
func (client *Client) Restore(ctx context.Context, session Session) (*User, error) {
	if session.Expired(client.now()) {
		return nil, &Error{Kind: KindUnauthenticated, Message: "session expired"}
	}

	var user userResponse
	if err := client.withRetry(ctx, func() error {
		response, err := client.httpClient.R().
			SetContext(ctx).
			SetAuthToken(session.AccessToken).
			SetResult(&user).
			SetError(&errorResponse{}).
			Get("/user")
		return toError(response, err)
	}); err != nil {
		return nil, err
	}

	session.User = user.toUser()
	client.setSession(&session)
	return &session.User, nil
}

// Session returns a copy of the current session, or nil.
func (client *Client) Session() *Session {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.session == nil {
		return nil
	}
	s := *client.session
	return &s
}

// CurrentUser returns the signed-in user, or nil.
func (client *Client) CurrentUser() *User {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.currentUser()
}

func (client *Client) currentUser() *User {
	if client.session == nil {
		return nil
	}
	u := client.session.User
	return &u
}

// OnAuthStateChange registers fn and calls it with the current user.
func (client *Client) OnAuthStateChange(fn func(*User)) func() {
	client.mu.Lock()
	id := client.nextID
	client.nextID++
	client.subscribers[id] = fn
	user := client.currentUser()
	client.mu.Unlock()

	fn(user)

	return func() {
		client.mu.Lock()
		defer client.mu.Unlock()
		delete(client.subscribers, id)
	}
}

func (client *Client) setSession(session *Session) {
	client.mu.Lock()
	client.session = session
	user := client.currentUser()
	subscribers := make([]func(*User), 0, len(client.subscribers))
	for _, fn := range client.subscribers {
		subscribers = append(subscribers, fn)
	}
	client.mu.Unlock()

	for _, fn := range subscribers {
		fn(user)
	}
}
