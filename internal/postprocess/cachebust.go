package postprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

const (
	// TokenLength is the number of hex digits of the asset digest used as version.
	TokenLength = 10
	// DefaultDigestCacheSize bounds the digest cache when no size is configured.
	DefaultDigestCacheSize = 1024
)

type digestEntry struct {
	size    int64
	modTime time.Time
	token   string
}

// CacheBuster appends a content-derived v= parameter to references of
// selected asset types.
type CacheBuster struct {
	fs         afero.Fs
	publicRoot string
	exts       map[string]struct{}
	digests    *lru.Cache[string, digestEntry]
}

// NewCacheBuster creates a cache-buster for the given extensions, with or
// without leading dot.
func NewCacheBuster(fsys afero.Fs, publicRoot string, exts []string, cacheSize int) (*CacheBuster, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultDigestCacheSize
	}
	digests, err := lru.New[string, digestEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create digest cache: %w", err)
	}

	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}

	return &CacheBuster{
		fs:         fsys,
		publicRoot: filepath.Clean(publicRoot),
		exts:       set,
		digests:    digests,
	}, nil
}

// Name implements Stage.
func (c *CacheBuster) Name() string { return "cache_buster" }

// Apply implements Stage.
func (c *CacheBuster) Apply(buf []byte, dest string) ([]byte, error) {
	var firstErr error
	out := rewriteRefs(buf, func(ref string) (string, bool) {
		if firstErr != nil || ref == "" || hasScheme(ref) || strings.HasPrefix(ref, "//") {
			return "", false
		}
		path, query, fragment := splitRef(ref)
		if _, ok := c.exts[strings.ToLower(filepath.Ext(path))]; !ok {
			return "", false
		}

		token, err := c.token(c.resolve(path, dest))
		if err != nil {
			firstErr = err
			return "", false
		}
		if token == "" {
			return "", false
		}
		return joinRef(path, withVersion(query, token), fragment), true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (c *CacheBuster) resolve(path, dest string) string {
	if strings.HasPrefix(path, "/") {
		return filepath.Join(c.publicRoot, filepath.FromSlash(path))
	}
	return filepath.Join(filepath.Dir(dest), filepath.FromSlash(path))
}

// token returns the version token of the file at path, or "" if it does not exist.
func (c *CacheBuster) token(path string) (string, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat asset %s: %w", path, err)
	}
	if info.IsDir() {
		return "", nil
	}

	if entry, ok := c.digests.Get(path); ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		return entry.token, nil
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open asset %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read asset %s: %w", path, err)
	}
	token := hex.EncodeToString(h.Sum(nil))[:TokenLength]
	c.digests.Add(path, digestEntry{size: info.Size(), modTime: info.ModTime(), token: token})
	return token, nil
}

// withVersion replaces any v parameter of query with v=token, keeping the
// order of the other parameters.
func withVersion(query, token string) string {
	var kept []string
	if query != "" {
		for _, part := range strings.Split(query, "&") {
			if part == "v" || strings.HasPrefix(part, "v=") || part == "" {
				continue
			}
			kept = append(kept, part)
		}
	}
	return strings.Join(append(kept, "v="+token), "&")
}
