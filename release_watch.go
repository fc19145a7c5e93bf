package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/oszuidwest/zwfm-dictation/internal/types"
	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

const (
	releaseRepo           = "oszuidwest/zwfm-dictation"
	githubAPI             = "https://api.github.com"
	releaseFirstCheck     = 30 * time.Second
	releaseCheckInterval  = 24 * time.Hour
	releaseRequestTimeout = 30 * time.Second
	releaseAttempts       = 3
)

// errReleaseTransient marks a failed check worth repeating soon.
var errReleaseTransient = errors.New("release check failed temporarily")

// ReleaseWatcher polls GitHub for the latest published release and hands
// every newly seen version to an announce func. It is safe for concurrent use.
type ReleaseWatcher struct {
	endpoint string
	client   *http.Client
	retry    *util.Backoff
	announce func(types.VersionInfo)

	mu     sync.Mutex
	latest string
	etag   string
}

// NewReleaseWatcher returns a ReleaseWatcher querying apiURL. announce may be nil.
func NewReleaseWatcher(apiURL string, announce func(types.VersionInfo)) *ReleaseWatcher {
	return &ReleaseWatcher{
		endpoint: strings.TrimSuffix(apiURL, "/") + "/repos/" + releaseRepo + "/releases/latest",
		client:   &http.Client{Timeout: releaseRequestTimeout},
		retry:    util.NewBackoff(time.Minute, 10*time.Minute),
		announce: announce,
	}
}

// Run checks shortly after startup and then once a day until ctx is done.
func (w *ReleaseWatcher) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in release watcher", "panic", r)
		}
	}()

	wait := releaseFirstCheck
	for util.Sleep(ctx, wait) {
		w.refresh(ctx)
		wait = releaseCheckInterval
	}
}

// refresh fetches the latest release, repeating transient failures.
func (w *ReleaseWatcher) refresh(ctx context.Context) {
	w.retry.Reset()
	for attempt := 1; ; attempt++ {
		tag, err := w.fetch(ctx)
		if err == nil {
			if tag != "" {
				w.record(tag)
			}
			return
		}
		if !errors.Is(err, errReleaseTransient) || attempt == releaseAttempts {
			slog.Debug("release check gave up", "attempts", attempt, "error", err)
			return
		}
		if !util.Sleep(ctx, w.retry.Next()) {
			return
		}
	}
}

// fetch returns the tag of the latest stable release. An empty tag with a nil
// error means there is nothing new to record.
func (w *ReleaseWatcher) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "zwfm-dictation/"+Version)

	w.mu.Lock()
	if w.etag != "" {
		req.Header.Set("If-None-Match", w.etag)
	}
	w.mu.Unlock()

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errReleaseTransient, err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // Response already consumed
	}()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusForbidden, code == http.StatusTooManyRequests, code >= 500:
		return "", fmt.Errorf("%w: %s", errReleaseTransient, resp.Status)
	default:
		// 304 Not Modified, no releases yet, or a request GitHub will keep refusing.
		return "", nil
	}

	var release struct {
		TagName    string `json:"tag_name"`
		Draft      bool   `json:"draft"`
		Prerelease bool   `json:"prerelease"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("%w: %w", errReleaseTransient, err)
	}
	if release.Draft || release.Prerelease {
		return "", nil
	}
	if release.TagName == "" {
		return "", fmt.Errorf("%w: release has no tag", errReleaseTransient)
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		w.mu.Lock()
		w.etag = etag
		w.mu.Unlock()
	}
	return release.TagName, nil
}

// record stores tag and announces it if it differs from the last one seen.
func (w *ReleaseWatcher) record(tag string) {
	latest := normalizeVersion(tag)

	w.mu.Lock()
	seen := latest == w.latest
	w.latest = latest
	w.mu.Unlock()

	if seen {
		return
	}
	info := versionInfo(latest)
	slog.Info("latest release found", "latest", latest, "update_available", info.UpdateAvail)
	if w.announce != nil {
		w.announce(info)
	}
}

// Info returns the running build and the latest release seen so far.
func (w *ReleaseWatcher) Info() types.VersionInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return versionInfo(w.latest)
}

func versionInfo(latest string) types.VersionInfo {
	current := normalizeVersion(Version)
	return types.VersionInfo{
		Current:     current,
		Latest:      latest,
		UpdateAvail: latest != "" && semver.IsValid("v"+current) && isNewerVersion(latest, current),
		Commit:      Commit,
		BuildTime:   util.FormatHumanTime(BuildTime),
	}
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion reports whether latest is newer than current.
func isNewerVersion(latest, current string) bool {
	return semver.Compare("v"+normalizeVersion(latest), "v"+normalizeVersion(current)) > 0
}
