package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Dist fakes both the semver resolution service and the archive mirror.
type Dist struct {
	// URL is the base URL of the fake service.
	URL string

	mu        sync.Mutex
	versions  map[string]string
	archives  map[string][]byte
	ranges    map[string][]string
	downloads map[string]int
}

// NewDist starts a fake service. Resolution answers come from versions
// (subject -> version); archives are served at /node/v<version>/<name>.
func NewDist(t testing.TB, versions map[string]string) *Dist {
	t.Helper()

	d := &Dist{
		versions:  versions,
		archives:  make(map[string][]byte),
		ranges:    make(map[string][]string),
		downloads: make(map[string]int),
	}

	router := chi.NewRouter()
	router.Get("/{subject}/resolve", d.resolve)
	router.Get("/node/{release}/{name}", d.download)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	d.URL = server.URL

	return d
}

// DownloadTemplate is a download URL template pointing at the fake mirror.
func (d *Dist) DownloadTemplate() string {
	return d.URL + "/node/v{version}/node-v{version}-{platform}.tar.gz"
}

// AddArchive publishes an archive under name.
func (d *Dist) AddArchive(name string, body []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.archives[name] = body
}

// Ranges returns the ranges submitted for subject.
func (d *Dist) Ranges(subject string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.ranges[subject]...)
}

// Downloads returns how many times name was requested.
func (d *Dist) Downloads(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.downloads[name]
}

func (d *Dist) resolve(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	d.mu.Lock()
	d.ranges[subject] = append(d.ranges[subject], r.URL.Query().Get("range"))
	version, ok := d.versions[subject]
	d.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	_, _ = w.Write([]byte(version))
}

func (d *Dist) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	d.mu.Lock()
	d.downloads[name]++
	body, ok := d.archives[name]
	d.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	_, _ = w.Write(body)
}
