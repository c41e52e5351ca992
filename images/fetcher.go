package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shopfront/catalogimport/models"
)

// probeCacheSize bounds the content-type probe cache. Source catalogs
// reuse stock URLs heavily, so repeated candidates are probed once.
const probeCacheSize = 1024

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
}

// Options configures a Fetcher.
type Options struct {
	// Concurrency bounds the worker pool draining the task queue.
	Concurrency int
	// HostInterval is the minimum gap between dispatches to one host.
	HostInterval time.Duration
	// Timeout applies to each individual probe or download.
	Timeout time.Duration
	// DestRoot is the local root under which per-product folders live.
	DestRoot string
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	// Metrics receives fetch instrumentation; nil disables it.
	Metrics *Metrics
}

// Result is the outcome of one image task, keyed by the task itself so
// completion order never matters.
type Result struct {
	Task      models.ImageTask
	LocalPath string
	Reused    bool
	Err       error
}

// Fetcher downloads candidate images under a bounded worker pool with
// per-host pacing. One failing image never aborts a batch.
type Fetcher struct {
	opts       Options
	client     *http.Client
	throttle   *hostThrottle
	metrics    *Metrics
	probeCache *lru.Cache[string, string]
}

// NewFetcher builds a fetcher from opts, applying conservative defaults.
func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.DestRoot == "" {
		return nil, fmt.Errorf("destination root cannot be empty")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	cache, err := lru.New[string, string](probeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build probe cache: %w", err)
	}

	return &Fetcher{
		opts:       opts,
		client:     client,
		throttle:   newHostThrottle(opts.HostInterval),
		metrics:    opts.Metrics,
		probeCache: cache,
	}, nil
}

// Metrics returns the fetcher's instrumentation, or nil when disabled.
func (f *Fetcher) Metrics() *Metrics {
	return f.metrics
}

// Run drains the task queue through the worker pool and returns exactly
// one result per task, cancelled tasks included. Completion order is not
// guaranteed.
func (f *Fetcher) Run(ctx context.Context, tasks []models.ImageTask) []Result {
	taskCh := make(chan models.ImageTask)
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < f.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				localPath, reused, err := f.process(ctx, task)
				resultCh <- Result{Task: task, LocalPath: localPath, Reused: reused, Err: err}
			}
		}()
	}

	dispatched := 0
feed:
	for _, task := range tasks {
		select {
		case taskCh <- task:
			dispatched++
		case <-ctx.Done():
			break feed
		}
	}
	close(taskCh)

	wg.Wait()
	close(resultCh)

	results := make([]Result, 0, len(tasks))
	for r := range resultCh {
		results = append(results, r)
	}
	// Tasks never handed to a worker still owe the caller a result.
	for _, task := range tasks[dispatched:] {
		results = append(results, Result{Task: task, Err: classifyFetchError(ctx.Err())})
	}
	return results
}

func (f *Fetcher) process(ctx context.Context, task models.ImageTask) (string, bool, error) {
	parsed, err := url.Parse(task.CandidateURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", false, ErrScheme{URL: task.CandidateURL}
	}

	if existing, ok := f.findReusable(task.DestinationFolder, task.CandidateURL); ok {
		f.metrics.IncReused()
		slog.Debug("reusing local image",
			slog.String("key", string(task.Key)),
			slog.String("path", existing),
		)
		return existing, true, nil
	}

	if err := f.probe(ctx, parsed); err != nil {
		return "", false, err
	}

	localPath, err := f.download(ctx, task, parsed)
	if err != nil {
		f.metrics.IncDownload(ReasonLabel(err))
		return "", false, err
	}
	f.metrics.IncDownload("ok")
	return localPath, false, nil
}

// probe verifies via a HEAD request that the remote content type begins
// with image/. Results are cached per URL.
func (f *Fetcher) probe(ctx context.Context, u *url.URL) error {
	if contentType, ok := f.probeCache.Get(u.String()); ok {
		if !strings.HasPrefix(contentType, "image/") {
			return ErrContentType{ContentType: contentType}
		}
		return nil
	}

	if err := f.throttle.Wait(ctx, u.Host); err != nil {
		return classifyFetchError(err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		f.metrics.IncProbe("error")
		return classifyFetchError(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metrics.IncProbe("bad_status")
		return ErrBadStatus{Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	f.probeCache.Add(u.String(), contentType)
	if !strings.HasPrefix(contentType, "image/") {
		f.metrics.IncProbe("content_type")
		return ErrContentType{ContentType: contentType}
	}
	f.metrics.IncProbe("ok")
	return nil
}

func (f *Fetcher) download(ctx context.Context, task models.ImageTask, u *url.URL) (string, error) {
	if err := f.throttle.Wait(ctx, u.Host); err != nil {
		return "", classifyFetchError(err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return "", classifyFetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", ErrBadStatus{Code: resp.StatusCode}
	}

	if err := os.MkdirAll(task.DestinationFolder, 0o755); err != nil {
		return "", fmt.Errorf("create image folder: %w", err)
	}

	filename := downloadFilename(u, resp.Header.Get("Content-Type"))
	localPath := filepath.Join(task.DestinationFolder, filename)
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(localPath)
		return "", classifyFetchError(fmt.Errorf("download body: %w", err))
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}
	return localPath, nil
}

// findReusable checks the destination folder for an already-present file
// plausibly matching the same source, by filename fragment or image
// extension, so re-runs never download twice.
func (f *Fetcher) findReusable(folder, candidateURL string) (string, bool) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", false
	}

	fragment := ""
	if parsed, err := url.Parse(candidateURL); err == nil {
		base := path.Base(parsed.Path)
		fragment = strings.TrimSuffix(base, path.Ext(base))
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if fragment != "" && strings.Contains(name, fragment) {
			return filepath.Join(folder, name), true
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]; ok {
			return filepath.Join(folder, name), true
		}
	}
	return "", false
}

// TaskFolder returns the per-product destination folder, keyed by product
// key plus slugified name so concurrent workers never contend.
func TaskFolder(root string, key models.ProductKey, name string) string {
	folder := string(key)
	if slug := Slugify(name); slug != "" {
		folder += "-" + slug
	}
	return filepath.Join(root, folder)
}

// Slugify lowercases name and folds runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, c := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func downloadFilename(u *url.URL, contentType string) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	base = Slugify(strings.TrimSuffix(base, path.Ext(base)))
	if base == "" {
		base = "image"
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if _, ok := imageExtensions[ext]; !ok {
		switch {
		case strings.HasPrefix(contentType, "image/png"):
			ext = ".png"
		case strings.HasPrefix(contentType, "image/gif"):
			ext = ".gif"
		case strings.HasPrefix(contentType, "image/webp"):
			ext = ".webp"
		default:
			ext = ".jpg"
		}
	}
	return base + ext
}
