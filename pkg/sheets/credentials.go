package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// ServiceAccountEnv holds an inline service account key.
const ServiceAccountEnv = "SERVICE_ACCOUNT_JSON"

var ErrNoServiceAccount = errors.New(ServiceAccountEnv + " not defined")

// ServiceAccountFromEnv returns the service account key held in
// SERVICE_ACCOUNT_JSON after checking that it parses as one.
func ServiceAccountFromEnv() ([]byte, error) {
	v := os.Getenv(ServiceAccountEnv)
	if v == "" {
		return nil, ErrNoServiceAccount
	}
	key := []byte(v)
	if err := checkServiceAccount(key); err != nil {
		return nil, err
	}
	return key, nil
}

func CredentialsFromFile(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if err := checkServiceAccount(key); err != nil {
		return nil, err
	}
	return key, nil
}

func checkServiceAccount(key []byte) error {
	if _, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope); err != nil {
		return fmt.Errorf("invalid service account JSON: %w", err)
	}
	return nil
}

func tokenSource(ctx context.Context, key []byte, cachePath string) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account JSON: %w", err)
	}
	ts := cfg.TokenSource(ctx)
	if cachePath != "" {
		ts = &fileTokenSource{path: cachePath, base: ts}
	}
	return oauth2.ReuseTokenSource(nil, ts), nil
}

// fileTokenSource serves a still valid token from disk and otherwise fetches
// a new one from base and writes it back.
type fileTokenSource struct {
	mu   sync.Mutex
	path string
	base oauth2.TokenSource
}

func (f *fileTokenSource) Token() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if tok, err := f.load(); err == nil && tok.Valid() {
		return tok, nil
	}
	tok, err := f.base.Token()
	if err != nil {
		return nil, err
	}
	if err := f.save(tok); err != nil {
		log.WithField("path", f.path).Warnf("Unable to cache token: %v", err)
	}
	return tok, nil
}

func (f *fileTokenSource) load() (*oauth2.Token, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (f *fileTokenSource) save(tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0o600)
}
