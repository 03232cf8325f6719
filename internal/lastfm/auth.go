package lastfm

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/gorilla/mux"
)

// AuthCallbackPort is where the callback server listens during "lastfm auth".
const AuthCallbackPort = 9847

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><title>wavesd</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
{{if .}}<h1>Last.fm account linked</h1><p>You can close this tab.</p>
{{else}}<h1>Authorization failed</h1><p>Last.fm sent no token. Run "wavesd lastfm auth" again.</p>
{{end}}</body></html>
`))

// AuthServer receives the token Last.fm appends to the callback URL.
type AuthServer struct {
	srv    *http.Server
	tokens chan string
	done   chan struct{}
}

// StartAuthServer listens on localhost:AuthCallbackPort.
func StartAuthServer() (*AuthServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", AuthCallbackPort))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", AuthCallbackPort, err)
	}
	as := newAuthServer()
	go func() {
		defer close(as.done)
		_ = as.srv.Serve(ln)
	}()
	return as, nil
}

func newAuthServer() *AuthServer {
	as := &AuthServer{
		tokens: make(chan string, 1),
		done:   make(chan struct{}),
	}
	r := mux.NewRouter()
	r.HandleFunc("/callback", as.handleCallback).Methods(http.MethodGet)
	as.srv = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	return as
}

func (as *AuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if token == "" {
		w.WriteHeader(http.StatusBadRequest)
	}
	_ = callbackPage.Execute(w, token != "")
	if token == "" {
		return
	}
	select {
	case as.tokens <- token:
	default:
	}
}

// CallbackURL is the address Last.fm redirects to after authorization.
func CallbackURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", AuthCallbackPort)
}

// WaitForToken returns the authorized token, or "" after timeout.
func (as *AuthServer) WaitForToken(ctx context.Context, timeout time.Duration) (string, error) {
	return waitForToken(ctx, as.tokens, as.done, timeout)
}

var errAuthServerStopped = errors.New("callback server stopped")

func waitForToken(ctx context.Context, tokens <-chan string, stopped <-chan struct{}, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case token := <-tokens:
		return token, nil
	case <-stopped:
		return "", errAuthServerStopped
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown stops the server.
func (as *AuthServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = as.srv.Shutdown(ctx)
	<-as.done
}

// OpenBrowser opens url with the desktop's default handler.
func OpenBrowser(url string) error {
	var name string
	var args []string
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		name = "xdg-open"
	case "darwin":
		name = "open"
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
	return exec.Command(name, append(args, url)...).Start() //nolint:gosec // url is built by Client
}
