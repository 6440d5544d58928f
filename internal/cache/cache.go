// Package cache keeps the Windows CRT/SDK payloads prepared by the sdk
// providers.
//
// Every payload is identified by the cache key of the target spec that
// needs it. A payload goes through three states:
//
//  1. absent
//  2. staging: a provider fills a fresh directory under staging/
//  3. ready: the DONE marker is written and the directory is renamed to
//     sdk/<key>[-dbglibs][-dbgsyms]
//
// Population is deduplicated within the process with singleflight and
// across processes with a lock file per key. Ready entries are never
// modified. Metadata about each ready entry is kept in a BoltDB index.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"go.etcd.io/bbolt"
	"golang.org/x/sync/singleflight"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/sdk"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

const (
	// bucketName is the BoltDB bucket name for payload entries
	bucketName = "payloads"

	indexFile  = "index.db"
	sdkDir     = "sdk"
	stagingDir = "staging"
	locksDir   = "locks"

	lockRetry = 250 * time.Millisecond
)

// ErrNoProvider is returned when no provider serves a spec's backend
var ErrNoProvider = errors.New("no SDK provider for backend")

// Root is a ready payload directory
type Root struct {
	Dir    string
	Key    string
	Extras target.Extras
}

// Cache manages payload directories and their metadata index
type Cache struct {
	root      string
	providers map[target.Backend]sdk.Provider

	group singleflight.Group

	// bbolt locks the index per open file description, so concurrent
	// opens within one process must be serialized here.
	dbMu sync.Mutex
}

// New creates a cache rooted at dir
func New(dir string, providers map[target.Backend]sdk.Provider) (*Cache, error) {
	for _, d := range []string{sdkDir, stagingDir, locksDir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return nil, codes.Acquisition(dir, fmt.Errorf("failed to create cache directory: %w", err))
		}
	}

	c := &Cache{root: dir, providers: providers}

	// Create bucket if it doesn't exist
	err := c.update(func(b *bbolt.Bucket) error { return nil })
	if err != nil {
		return nil, codes.Acquisition(dir, fmt.Errorf("failed to open cache index: %w", err))
	}

	return c, nil
}

// Dir returns the cache root directory
func (c *Cache) Dir() string {
	return c.root
}

// Lookup returns a ready entry satisfying spec without populating one
func (c *Cache) Lookup(spec target.Spec) (Root, bool) {
	key := spec.CacheKey()
	want := spec.Extras()

	for _, extras := range candidateExtras(want) {
		dir := c.entryDir(key, extras)
		if isReady(dir) {
			return Root{Dir: dir, Key: key, Extras: extras}, true
		}
	}

	return Root{}, false
}

// Ensure returns a ready payload for spec, populating it if needed. At
// most one populator runs per key across goroutines and processes.
func (c *Cache) Ensure(ctx context.Context, spec target.Spec) (Root, error) {
	if r, ok := c.Lookup(spec); ok {
		return r, nil
	}

	key := spec.CacheKey()
	name := key + spec.Extras().Suffix()

	v, err, _ := c.group.Do(name, func() (any, error) {
		return c.populate(ctx, spec)
	})
	if err != nil {
		return Root{}, err
	}

	return v.(Root), nil
}

func (c *Cache) populate(ctx context.Context, spec target.Spec) (Root, error) {
	key := spec.CacheKey()
	extras := spec.Extras()

	provider, ok := c.providers[spec.Backend]
	if !ok {
		return Root{}, codes.Acquisition(key, fmt.Errorf("%w %s", ErrNoProvider, spec.Backend))
	}

	lock := flock.New(filepath.Join(c.root, locksDir, key+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return Root{}, codes.Acquisition(key, fmt.Errorf("failed to lock: %w", err))
	}

	if !locked {
		console.Infof("Waiting for another process preparing %s payload %s", provider.Name(), key)

		if _, err := lock.TryLockContext(ctx, lockRetry); err != nil {
			return Root{}, codes.Acquisition(key, fmt.Errorf("failed to lock: %w", err))
		}
	}
	defer lock.Unlock()

	// Another process may have finished while we waited
	if r, ok := c.Lookup(spec); ok {
		return r, nil
	}

	c.sweepStaging(key)

	staging, err := os.MkdirTemp(filepath.Join(c.root, stagingDir), key+"-")
	if err != nil {
		return Root{}, codes.Acquisition(key, fmt.Errorf("failed to create staging directory: %w", err))
	}

	ready := false
	defer func() {
		if !ready {
			_ = os.RemoveAll(staging)
		}
	}()

	console.Infof("Preparing %s payload for %s", provider.Name(), spec.Triple)

	result, err := provider.Fetch(ctx, spec, staging)
	if err != nil {
		return Root{}, codes.Acquisition(key, err)
	}

	if err := ctx.Err(); err != nil {
		return Root{}, codes.Acquisition(key, err)
	}

	name := key + extras.Suffix()
	entry := newEntry(spec, name, provider.Name())
	entry.Version = result.Version
	entry.Source = result.Source
	entry.Fingerprint = result.Fingerprint
	entry.Timestamp = time.Now()

	marker, err := json.Marshal(entry)
	if err != nil {
		return Root{}, codes.Acquisition(key, err)
	}

	dest := c.entryDir(key, extras)

	// Leftover without a marker can only be debris from an interrupted
	// copy fallback
	if _, err := os.Stat(dest); err == nil && !isReady(dest) {
		_ = os.RemoveAll(dest)
	}

	if err := promote(staging, dest, marker); err != nil {
		return Root{}, codes.Acquisition(key, err)
	}
	ready = true

	if err := c.put(entry); err != nil {
		console.Warnf("Failed to record %s in cache index: %v", name, err)
	}

	console.Successf("Prepared %s payload %s (%s)", provider.Name(), name, result.Version)

	return Root{Dir: dest, Key: key, Extras: extras}, nil
}

// sweepStaging removes staging debris left by an interrupted populator.
// Callers hold the key lock.
func (c *Cache) sweepStaging(key string) {
	matches, _ := filepath.Glob(filepath.Join(c.root, stagingDir, key+"-*"))
	for _, m := range matches {
		console.Debugf("removing stale staging directory %s", m)
		_ = os.RemoveAll(m)
	}
}

// List returns the recorded entries, newest first
func (c *Cache) List() ([]Entry, error) {
	var entries []Entry

	err := c.view(func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("corrupt index entry %s: %w", k, err)
			}

			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// Stats returns the number of ready entries and their total size
func (c *Cache) Stats() (int, int64, error) {
	dirs, err := os.ReadDir(filepath.Join(c.root, sdkDir))
	if err != nil {
		return 0, 0, err
	}

	var count int
	var totalSize int64
	for _, d := range dirs {
		dir := filepath.Join(c.root, sdkDir, d.Name())
		if d.IsDir() && isReady(dir) {
			count++
			totalSize += dirSize(dir)
		}
	}

	return count, totalSize, nil
}

// Clear removes every entry. Entries locked by a running populator are
// left alone and reported.
func (c *Cache) Clear() error {
	dirs, err := os.ReadDir(filepath.Join(c.root, sdkDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var busy []string
	for _, d := range dirs {
		key, _, _ := strings.Cut(d.Name(), "-")

		lock := flock.New(filepath.Join(c.root, locksDir, key+".lock"))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			busy = append(busy, d.Name())
			continue
		}

		rmErr := os.RemoveAll(filepath.Join(c.root, sdkDir, d.Name()))
		_ = lock.Unlock()
		if rmErr != nil {
			return fmt.Errorf("failed to remove %s: %w", d.Name(), rmErr)
		}

		_ = c.update(func(b *bbolt.Bucket) error {
			return b.Delete([]byte(d.Name()))
		})
	}

	if len(busy) > 0 {
		return fmt.Errorf("entries in use: %s", strings.Join(busy, ", "))
	}

	// Recreate bucket
	return c.updateTx(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

func (c *Cache) put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return c.update(func(b *bbolt.Bucket) error {
		return b.Put([]byte(e.Name), data)
	})
}

func (c *Cache) openIndex() (*bbolt.DB, error) {
	return bbolt.Open(filepath.Join(c.root, indexFile), 0o600, &bbolt.Options{Timeout: 5 * time.Second})
}

func (c *Cache) updateTx(fn func(tx *bbolt.Tx) error) error {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()

	db, err := c.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(fn)
}

func (c *Cache) update(fn func(b *bbolt.Bucket) error) error {
	return c.updateTx(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}

		return fn(b)
	})
}

func (c *Cache) view(fn func(b *bbolt.Bucket) error) error {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()

	db, err := c.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return fn(b)
	})
}

// entryDir returns the directory path for a key and extras
func (c *Cache) entryDir(key string, extras target.Extras) string {
	return filepath.Join(c.root, sdkDir, key+extras.Suffix())
}

// candidateExtras lists every extras combination covering want, the
// exact match first
func candidateExtras(want target.Extras) []target.Extras {
	out := []target.Extras{want}

	for _, libs := range []bool{false, true} {
		for _, syms := range []bool{false, true} {
			e := target.Extras{DebugLibs: libs, DebugSymbols: syms}
			if e != want && e.Covers(want) {
				out = append(out, e)
			}
		}
	}

	return out
}
