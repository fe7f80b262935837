package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// callbackPath is the HTTP path the OAuth2 redirect hits on the local server.
const callbackPath = "/"

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// ProviderConfig configures the Google credential provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	TokenInfoURL string
	RevokeURL    string
	UserInfoURL  string

	// OpenURL is called with the authorization URL to launch the user's
	// browser. If it returns an error the URL is printed to stderr so the
	// user can open it manually.
	OpenURL func(string) error
}

// GoogleProvider implements TokenProvider against Google's OAuth2 endpoints.
// Interactive requests run the authorization code + PKCE flow through a
// localhost callback server; silent requests use the refresh-token grant.
type GoogleProvider struct {
	cfg        *oauth2.Config
	httpClient *http.Client
	conf       ProviderConfig
	logger     *slog.Logger
}

// NewGoogleProvider builds a provider from the given configuration.
func NewGoogleProvider(conf ProviderConfig, httpClient *http.Client, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			Scopes:       conf.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: httpClient,
		conf:       conf,
		logger:     logger,
	}
}

// RequestToken obtains an access token. PromptNone uses the refresh-token
// grant and never prompts; interactive modes run the browser flow.
func (p *GoogleProvider) RequestToken(ctx context.Context, prompt PromptMode, refreshToken string) (*Credential, error) {
	if prompt == PromptNone {
		return p.refresh(ctx, refreshToken)
	}

	return p.interactive(ctx, prompt)
}

// refresh exchanges a refresh token for a new access token.
func (p *GoogleProvider) refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshCredential
	}

	p.logger.Debug("refreshing token via refresh-token grant")

	src := p.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("session: refresh-token grant failed: %w", err)
	}

	return toCredential(tok, refreshToken), nil
}

// interactive runs the authorization code + PKCE flow:
//  1. Binds a localhost HTTP server on a random port
//  2. Opens the browser to the authorization endpoint
//  3. Receives the callback with the authorization code
//  4. Exchanges the code for tokens using PKCE
func (p *GoogleProvider) interactive(ctx context.Context, prompt PromptMode) (*Credential, error) {
	p.logger.Info("starting browser auth flow (authorization code + PKCE)")

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, p.logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, p.logger)

	cfg := *p.cfg
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("session: generating state token: %w", err)
	}

	registerCallbackHandler(mux, state, resultCh)

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	}
	if prompt == PromptConsent {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}

	authURL := cfg.AuthCodeURL(state, opts...)

	launchBrowser(authURL, p.conf.OpenURL, p.logger)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	p.logger.Info("received authorization code, exchanging for token")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("session: token exchange failed: %w", err)
	}

	p.logger.Info("token exchange successful", slog.Time("expiry", tok.Expiry))

	return toCredential(tok, ""), nil
}

// toCredential converts an oauth2 token into the provider-neutral result.
// fallbackRefresh preserves the existing refresh token when the server does
// not rotate it.
func toCredential(tok *oauth2.Token, fallbackRefresh string) *Credential {
	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}

	if cred.RefreshToken == "" {
		cred.RefreshToken = fallbackRefresh
	}

	if !tok.Expiry.IsZero() {
		cred.ExpiresIn = time.Until(tok.Expiry)
	}

	return cred
}

// Revoke invalidates the token at Google's revocation endpoint.
func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	body := strings.NewReader(url.Values{"token": {token}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.conf.RevokeURL, body)
	if err != nil {
		return fmt.Errorf("session: creating revoke request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session: revoke request failed: %w", err)
	}

	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: revoke returned HTTP %d", resp.StatusCode)
	}

	return nil
}

// Introspect checks token validity via the tokeninfo endpoint.
func (p *GoogleProvider) Introspect(ctx context.Context, token string) error {
	u := p.conf.TokenInfoURL + "?access_token=" + url.QueryEscape(token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("session: creating introspection request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session: introspection request failed: %w", err)
	}

	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: introspection returned HTTP %d", resp.StatusCode)
	}

	return nil
}

// FetchProfile returns the user identity from the userinfo endpoint.
func (p *GoogleProvider) FetchProfile(ctx context.Context, token string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.conf.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("session: creating userinfo request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: userinfo returned HTTP %d", resp.StatusCode)
	}

	var ui struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("session: decoding userinfo: %w", err)
	}

	return &Profile{ID: ui.ID, Name: ui.Name, Email: ui.Email}, nil
}

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// startCallbackServer binds to 127.0.0.1:0 and starts an HTTP server with
// the given mux. Returns the server, the port, and any error.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("session: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("session: listener address is not TCP")
	}

	port := tcpAddr.Port
	logger.Info("callback server listening", slog.Int("port", port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("session: callback server error: %w", serveErr)}
		}
	}()

	return srv, port, nil
}

// registerCallbackHandler adds the callback route to the mux.
// Must be called before the browser redirects back.
func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackResult) {
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, resultCh)
	})
}

// handleOAuthCallback validates the state, extracts the code, and sends the result.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	// Validate state to prevent CSRF.
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("session: OAuth2 state mismatch (possible CSRF)")}

		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		desc := r.URL.Query().Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("session: authorization failed: %s: %s", errParam, desc)}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("session: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Sign-in successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Best-effort shutdown — log but don't propagate since we're in a defer.
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the auth URL. If it fails, prints the URL
// to stderr as a fallback so the user can copy-paste it.
func launchBrowser(authURL string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openURL == nil {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
		return
	}

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("session: browser auth canceled: %w", ctx.Err())
	}
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
