package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// authPort is the local port used to capture the OAuth redirect. The
// redirect URI registered in the Google Cloud console must match.
const authPort = "6789"

// Paths supplies the on-disk locations of calendar state. *config.Config
// satisfies this.
type Paths interface {
	CredentialsFile() string
	TokenFile() string
	MappingFile() string
	ColorCacheFile() string
}

func oauthConfig(paths Paths) (*oauth2.Config, error) {
	b, err := os.ReadFile(paths.CredentialsFile())
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", paths.CredentialsFile(), err)
	}
	cfg, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	// Always redirect to the port we actually listen on.
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%s/oauth2callback", authPort)
	return cfg, nil
}

// Authenticate runs the browser authorization flow and stores the
// resulting token. Used by calendar-setup; sync itself never prompts.
func Authenticate(ctx context.Context, paths Paths) error {
	cfg, err := oauthConfig(paths)
	if err != nil {
		return err
	}
	tok, err := tokenFromWeb(ctx, cfg)
	if err != nil {
		return err
	}
	return saveToken(paths.TokenFile(), tok)
}

// authedClient returns an HTTP client backed by the stored token. The
// oauth2 transport refreshes expired access tokens transparently.
func authedClient(ctx context.Context, paths Paths) (*http.Client, error) {
	cfg, err := oauthConfig(paths)
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(paths.TokenFile())
	if err != nil {
		return nil, fmt.Errorf("no stored calendar token, run 'tsk calendar-setup' first: %w", err)
	}
	return cfg.Client(ctx, tok), nil
}

// tokenFromWeb serves a one-shot local HTTP endpoint, points the user
// at the consent URL, and exchanges the returned code for a token.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", ":"+authPort)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", authPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code missing from redirect")
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer server.Shutdown(context.Background())

	// AccessTypeOffline makes Google return a refresh token.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to authorize TaskRepo:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out, please try again")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to store token at %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
