// Package testutil provides an in-process fake of the GitHub REST endpoints
// used by the collector.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Repo is a repository entry served by the listing endpoint
type Repo struct {
	Name       string `json:"name"`
	Archived   bool   `json:"archived"`
	Disabled   bool   `json:"disabled"`
	IsTemplate bool   `json:"is_template"`
}

// Package is an SBOM package; a nil License omits licenseConcluded
type Package struct {
	Name    string
	License *string
}

// FakeGitHub serves rate_limit, orgs, repo listing and dependency-graph endpoints
type FakeGitHub struct {
	Org          string
	PrivateRepos int
	PublicRepos  int
	Repos        []Repo

	// SBOMs maps repository name to packages; repositories absent here answer 404
	SBOMs map[string][]Package

	// RawSBOMs maps repository name to a verbatim 200 response body and wins over SBOMs
	RawSBOMs map[string]string

	// Remaining is served in order by /rate_limit, the last value repeats
	Remaining []int

	// Non-zero values force the status of the matching endpoint
	RateLimitStatus int
	OrgStatus       int
	ListStatus      int

	// RateLimitStatusAfterSBOM forces the /rate_limit status once an SBOM has been served
	RateLimitStatusAfterSBOM int

	mu         sync.Mutex
	requests   []string
	sbomServed bool
	server     *httptest.Server
}

// Start serves the fake until the test ends and returns its base URL
func (f *FakeGitHub) Start(t *testing.T) string {
	t.Helper()
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f.server.URL + "/"
}

// Requests returns the request paths received so far, page listings as "path?page=N"
func (f *FakeGitHub) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Count returns how many requests hit a path prefix
func (f *FakeGitHub) Count(prefix string) int {
	n := 0
	for _, r := range f.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (f *FakeGitHub) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	if page := r.URL.Query().Get("page"); page != "" {
		path += "?page=" + page
	}
	f.requests = append(f.requests, path)
}

func (f *FakeGitHub) nextRemaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Remaining) == 0 {
		return 5000
	}
	v := f.Remaining[0]
	if len(f.Remaining) > 1 {
		f.Remaining = f.Remaining[1:]
	}
	return v
}

func (f *FakeGitHub) rateLimitStatus() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sbomServed && f.RateLimitStatusAfterSBOM != 0 {
		return f.RateLimitStatusAfterSBOM
	}
	return f.RateLimitStatus
}

func (f *FakeGitHub) markSBOMServed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sbomServed = true
}

func (f *FakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	f.record(r)

	orgPath := "/orgs/" + f.Org
	reposPrefix := "/repos/" + f.Org + "/"

	switch {
	case r.URL.Path == "/rate_limit":
		if status := f.rateLimitStatus(); status != 0 {
			writeJSON(w, status, map[string]string{"message": "Bad credentials"})
			return
		}
		rate := map[string]int{"limit": 5000, "remaining": f.nextRemaining(), "reset": 0}
		writeJSON(w, http.StatusOK, map[string]any{
			"resources": map[string]any{"core": rate},
			"rate":      rate,
		})

	case r.URL.Path == orgPath:
		if f.OrgStatus != 0 {
			writeJSON(w, f.OrgStatus, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"login":               f.Org,
			"owned_private_repos": f.PrivateRepos,
			"public_repos":        f.PublicRepos,
		})

	case r.URL.Path == orgPath+"/repos":
		if f.ListStatus != 0 {
			writeJSON(w, f.ListStatus, map[string]string{"message": "Server Error"})
			return
		}
		writeJSON(w, http.StatusOK, f.page(r))

	case strings.HasPrefix(r.URL.Path, reposPrefix) && strings.HasSuffix(r.URL.Path, "/dependency-graph/sbom"):
		repo := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, reposPrefix), "/dependency-graph/sbom")
		if raw, ok := f.RawSBOMs[repo]; ok {
			f.markSBOMServed()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(raw))
			return
		}
		pkgs, ok := f.SBOMs[repo]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"message":           "Dependency graph is not enabled for this repository.",
				"documentation_url": "https://docs.github.com/rest/dependency-graph/sboms",
			})
			return
		}
		f.markSBOMServed()
		writeJSON(w, http.StatusOK, sbomBody(repo, pkgs))

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}
}

func (f *FakeGitHub) page(r *http.Request) []Repo {
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 30
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(f.Repos) {
		return []Repo{}
	}
	end := start + perPage
	if end > len(f.Repos) {
		end = len(f.Repos)
	}
	return f.Repos[start:end]
}

func sbomBody(repo string, pkgs []Package) map[string]any {
	packages := make([]map[string]any, 0, len(pkgs))
	for _, p := range pkgs {
		entry := map[string]any{
			"SPDXID": "SPDXRef-" + p.Name,
			"name":   p.Name,
		}
		if p.License != nil {
			entry["licenseConcluded"] = *p.License
		}
		packages = append(packages, entry)
	}
	return map[string]any{
		"sbom": map[string]any{
			"SPDXID":      "SPDXRef-DOCUMENT",
			"spdxVersion": "SPDX-2.3",
			"name":        "com.github." + repo,
			"packages":    packages,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// License returns a pointer for Package.License
func License(s string) *string {
	return &s
}
