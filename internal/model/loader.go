// Package model loads the JSON service models describing NIFCLOUD APIs.
package model

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"

	"github.com/norikmb/nifcloud-sdk-go/internal/data"
	"github.com/norikmb/nifcloud-sdk-go/internal/fileutils"
	"github.com/ubuntu/decorate"
)

const (
	serviceFileName    = "service-2.json"
	paginatorsFileName = "paginators-1.json"
	waitersFileName    = "waiters-2.json"
)

var (
	// ErrUnknownService is returned when no search path holds a model for the service.
	ErrUnknownService = errors.New("unknown service")
	// ErrUnknownAPIVersion is returned when the service exists but not in the requested version.
	ErrUnknownAPIVersion = errors.New("unknown api version")
	// ErrUndefinedShape is returned when a model references a shape it does not define.
	ErrUndefinedShape = errors.New("undefined shape")
)

// Loader finds and decodes models from an ordered list of search paths.
// Earlier paths take precedence, the embedded models come last.
type Loader struct {
	paths []fs.FS
	log   *slog.Logger
}

type options struct {
	paths   []fs.FS
	builtin fs.FS
	log     *slog.Logger
}

// Options represents an optional function to override Loader default values.
type Options func(*options)

// WithSearchPaths adds model trees searched before the embedded ones, in order.
func WithSearchPaths(paths ...fs.FS) Options {
	return func(o *options) {
		o.paths = append(o.paths, paths...)
	}
}

// WithLogger sets the logger of the Loader.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// NewLoader returns a Loader searching the given paths then the embedded models.
func NewLoader(args ...Options) *Loader {
	opts := options{
		builtin: data.Models(),
		log:     slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	paths := slices.Clone(opts.paths)
	if opts.builtin != nil {
		paths = append(paths, opts.builtin)
	}
	return &Loader{paths: paths, log: opts.log}
}

// ListServices returns the sorted names of every service with at least one model.
func (l *Loader) ListServices() []string {
	var services []string
	for _, fsys := range l.paths {
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			l.log.Debug("Skipping unreadable model path", "error", err)
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || slices.Contains(services, e.Name()) {
				continue
			}
			if len(l.versionsIn(fsys, e.Name())) > 0 {
				services = append(services, e.Name())
			}
		}
	}
	slices.Sort(services)
	return services
}

// ListAPIVersions returns the sorted api versions available for service.
func (l *Loader) ListAPIVersions(service string) []string {
	var versions []string
	for _, fsys := range l.paths {
		for _, v := range l.versionsIn(fsys, service) {
			if !slices.Contains(versions, v) {
				versions = append(versions, v)
			}
		}
	}
	slices.Sort(versions)
	return versions
}

func (l *Loader) versionsIn(fsys fs.FS, service string) []string {
	entries, err := fs.ReadDir(fsys, service)
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(fsys, path.Join(service, e.Name(), serviceFileName)); err == nil {
			versions = append(versions, e.Name())
		}
	}
	return versions
}

// LoadService loads the model of service. An empty apiVersion selects the latest one.
func (l *Loader) LoadService(service, apiVersion string) (s *Service, err error) {
	defer decorate.OnError(&err, "could not load model for %q", service)

	versions := l.ListAPIVersions(service)
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	if apiVersion == "" {
		apiVersion = versions[len(versions)-1]
	} else if !slices.Contains(versions, apiVersion) {
		return nil, fmt.Errorf("%w: %s, available versions are %v", ErrUnknownAPIVersion, apiVersion, versions)
	}

	dir := path.Join(service, apiVersion)
	raw, fsys, err := l.readFirst(path.Join(dir, serviceFileName))
	if err != nil {
		return nil, err
	}
	api, err := ParseAPI(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.Join(dir, serviceFileName), err)
	}

	s = &Service{
		Name:       service,
		APIVersion: apiVersion,
		API:        api,
		Paginators: make(map[string]*Paginator),
		Waiters:    make(map[string]*Waiter),
	}

	var pf paginatorsFile
	if err := loadOptional(fsys, path.Join(dir, paginatorsFileName), &pf); err != nil {
		return nil, err
	}
	for name, p := range pf.Pagination {
		s.Paginators[name] = p
	}

	var wf waitersFile
	if err := loadOptional(fsys, path.Join(dir, waitersFileName), &wf); err != nil {
		return nil, err
	}
	for name, w := range wf.Waiters {
		if _, ok := api.Operations[w.Operation]; !ok {
			return nil, fmt.Errorf("waiter %q references unknown operation %q", name, w.Operation)
		}
		w.Name = name
		s.Waiters[name] = w
	}

	l.log.Debug("Loaded service model", "service", service, "api_version", apiVersion,
		"operations", len(api.Operations), "paginators", len(s.Paginators), "waiters", len(s.Waiters))
	return s, nil
}

// LoadData decodes the first file called name found in the search paths into v.
func (l *Loader) LoadData(name string, v any) error {
	for _, fsys := range l.paths {
		err := fileutils.ParseJSONFile(fsys, name, v)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return err
	}
	return fmt.Errorf("%s: %w", name, fs.ErrNotExist)
}

func (l *Loader) readFirst(name string) ([]byte, fs.FS, error) {
	for _, fsys := range l.paths {
		raw, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return raw, fsys, nil
	}
	return nil, nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
}

func loadOptional(fsys fs.FS, name string, v any) error {
	err := fileutils.ParseJSONFile(fsys, name, v)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
