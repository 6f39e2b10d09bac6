package jbovlaste

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/cogas/jbovlaste-otmize/pkg/config"
)

// DefaultMaxBytes caps a single export download.
const DefaultMaxBytes = 256 << 20

// ErrNotExport is returned when the server answers with something other than
// an XML export.
var ErrNotExport = errors.New("response is not a jbovlaste xml export")

var (
	// ErrLoginRequired marks an export answered with the login page.
	ErrLoginRequired = errors.New("login required")
	// ErrLoginFailed is returned when the site rejects the credentials.
	ErrLoginFailed = errors.New("login rejected")
)

// Client downloads XML exports from jbovlaste. Exports require a logged-in
// session, which is kept in the client's cookie jar.
type Client struct {
	BaseURL  string
	Username string
	Password string
	MaxBytes int64
	HTTP     *http.Client
	Logger   *slog.Logger
}

// NewClient creates a client for cfg with its own cookie jar.
func NewClient(cfg config.JbovlasteConfig) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		MaxBytes: DefaultMaxBytes,
		HTTP:     &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Login signs in through the site's login form, keeping the session cookie
// in the client's jar. Hidden fields of the form are sent back as served.
func (c *Client) Login(ctx context.Context) error {
	if c.Username == "" {
		return errors.New("jbovlaste: login requires a username")
	}
	form, err := c.loginForm(ctx)
	if err != nil {
		return err
	}
	values := form.fields
	values.Set("username", c.Username)
	values.Set("password", c.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.action, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "otmize")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("jbovlaste: login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jbovlaste: login returned status: %s", resp.Status)
	}
	// A rejected login serves the form again.
	if _, again, err := findLoginForm(io.LimitReader(resp.Body, 1<<20), resp.Request.URL); err == nil && again {
		return fmt.Errorf("jbovlaste: login as %q: %w", c.Username, ErrLoginFailed)
	}
	c.logger().Debug("logged in", slog.String("user", c.Username))
	return nil
}

// loginForm fetches the login page. A page that cannot be read or has no form
// falls back to the well-known form layout.
func (c *Client) loginForm(ctx context.Context) (*loginForm, error) {
	page, err := url.Parse(c.BaseURL + "/login.html")
	if err != nil {
		return nil, fmt.Errorf("jbovlaste: base url: %w", err)
	}
	fallback := &loginForm{
		action: page.String(),
		fields: url.Values{"backto": {c.BaseURL + "/export/xml.html"}},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "otmize")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger().Debug("login page unavailable", slog.Any("error", err))
		return fallback, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fallback, nil
	}

	form, ok, err := findLoginForm(io.LimitReader(resp.Body, 1<<20), resp.Request.URL)
	if err != nil || !ok {
		return fallback, nil
	}
	return form, nil
}

// Export streams the XML export of lang into w and returns the bytes written.
func (c *Client) Export(ctx context.Context, lang string, w io.Writer) (int64, error) {
	if err := CheckLang(lang); err != nil {
		return 0, err
	}
	u := c.BaseURL + "/export/xml-export.html?" + url.Values{"lang": {lang}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "otmize")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("jbovlaste: export %s: %w", lang, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("jbovlaste: export %s returned status: %s", lang, resp.Status)
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	br := bufio.NewReaderSize(io.LimitReader(resp.Body, limit+1), 4096)
	head, _ := br.Peek(1024)
	if !bytes.Contains(head, []byte("<dictionary")) {
		if _, login, _ := findLoginForm(io.LimitReader(br, 1<<20), resp.Request.URL); login {
			return 0, fmt.Errorf("jbovlaste: export %s: %w: %w", lang, ErrNotExport, ErrLoginRequired)
		}
		return 0, fmt.Errorf("jbovlaste: export %s: %w", lang, ErrNotExport)
	}

	n, err := io.Copy(w, br)
	if err != nil {
		return n, fmt.Errorf("jbovlaste: export %s: %w", lang, err)
	}
	if n > limit {
		return n, fmt.Errorf("jbovlaste: export %s exceeds %d bytes", lang, limit)
	}
	return n, nil
}

// Download writes the export of lang to path atomically.
func (c *Client) Download(ctx context.Context, lang, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	start := time.Now()
	n, err := c.Export(ctx, lang, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	c.logger().Info("downloaded export",
		slog.String("lang", lang),
		slog.String("path", path),
		slog.Int64("bytes", n),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// EnsureExport returns the export path of lang under dir, logging in and
// downloading it first when the file does not exist yet.
func (c *Client) EnsureExport(ctx context.Context, lang, dir string) (string, error) {
	path := filepath.Join(dir, XMLName(lang))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	c.logger().Info("export not found, downloading", slog.String("lang", lang), slog.String("path", path))
	if c.Username != "" {
		if err := c.Login(ctx); err != nil {
			return "", err
		}
	}
	if err := c.Download(ctx, lang, path); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
