package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pfrederiksen/show-scraper/internal/tracing"
)

// ErrNotFound is returned by Sink.Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// CacheControl is sent with every uploaded object.
const CacheControl = "max-age=300"

// Sink stores published objects by key.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// DirSink writes objects as files under Dir.
type DirSink struct {
	Dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

func (s *DirSink) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.Dir, key), nil
}

// Put writes data to a temp file next to the target and renames it into
// place, so a reader sees either the old or the new file.
func (s *DirSink) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	return nil
}

// Get reads the file for key.
func (s *DirSink) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// HTTPSink uploads objects with PUT to a bucket base URL.
type HTTPSink struct {
	client *resty.Client
}

// NewHTTPSink returns a sink for baseURL. token, when set, is sent as a
// bearer token.
func NewHTTPSink(baseURL, token string) *HTTPSink {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second)
	if token != "" {
		client.SetAuthToken(token)
	}
	tracing.InstrumentResty(client)
	return &HTTPSink{client: client}
}

// Put uploads data under key.
func (s *HTTPSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Cache-Control", CacheControl).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put("/" + key)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if res.IsError() {
		return fmt.Errorf("uploading %s: status %d", key, res.StatusCode())
	}
	return nil
}

// Get downloads key.
func (s *HTTPSink) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.client.R().
		SetContext(ctx).
		Get("/" + key)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	switch {
	case res.StatusCode() == 404 || res.StatusCode() == 403:
		// S3-style buckets answer 403 for missing keys without list rights.
		return nil, ErrNotFound
	case res.IsError():
		return nil, fmt.Errorf("downloading %s: status %d", key, res.StatusCode())
	}
	return res.Body(), nil
}
