package mockserver

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/localdriver/pkg/collection"
)

// Route is a canned response served by the mock server.
type Route struct {
	Method      string            `toml:"method"`
	Path        string            `toml:"path"`
	Status      int               `toml:"status"`
	ContentType string            `toml:"content_type"`
	Body        string            `toml:"body"`
	Headers     map[string]string `toml:"headers"`
}

// routeFile is the TOML layout of a fixture file:
//
//	[[routes]]
//	method = "GET"
//	path = "/users/{id}"
//	status = 200
//	body = '{"id": 1}'
type routeFile struct {
	Routes []Route `toml:"routes"`
}

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// LoadRoutes reads route fixtures from a TOML file.
func LoadRoutes(path string) (*collection.Collection[Route], error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf routeFile
	if err := toml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("parse routes %s: %w", path, err)
	}

	for i := range rf.Routes {
		if err := rf.Routes[i].normalize(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
	}
	return collection.Of(rf.Routes...), nil
}

// normalize validates r and fills defaults.
func (r *Route) normalize() error {
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	if !methods[r.Method] {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("path %q must start with /", r.Path)
	}
	if strings.HasPrefix(r.Path, reservedPrefix) {
		return fmt.Errorf("path %q is reserved", r.Path)
	}
	if err := checkPattern(r.Method, r.Path); err != nil {
		return err
	}
	if r.Status == 0 {
		r.Status = http.StatusOK
	}
	if r.Status < 100 || r.Status > 599 {
		return fmt.Errorf("invalid status %d", r.Status)
	}
	if r.ContentType == "" {
		r.ContentType = "application/json"
	}
	return nil
}

// checkPattern mounts path on a scratch router, turning chi's pattern
// panics into an error.
func checkPattern(method, path string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("path %q: %v", path, p)
		}
	}()
	chi.NewRouter().Method(method, path, http.NotFoundHandler())
	return nil
}
