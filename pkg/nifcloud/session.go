// Package nifcloud creates NIFCLOUD API clients from service models.
//
// A Session loads models and resolves credentials, regions and endpoints.
// Each Client it creates exposes the operations of one service:
//
//	sess, err := nifcloud.NewSession()
//	c, err := sess.CreateClient("computing", nifcloud.WithRegion("jp-east-1"))
//	out, err := c.Call(ctx, "DescribeInstances", nil)
package nifcloud

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/norikmb/nifcloud-sdk-go/internal/client"
	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
	"github.com/norikmb/nifcloud-sdk-go/internal/credentials"
	"github.com/norikmb/nifcloud-sdk-go/internal/docs"
	"github.com/norikmb/nifcloud-sdk-go/internal/endpoint"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/transport"
	"github.com/ubuntu/decorate"
)

const endpointsFile = "endpoints.json"

var (
	// ErrNoRegion is returned when a client needs a region and none is configured.
	ErrNoRegion = endpoint.ErrNoRegion
	// ErrUnknownService is returned for a service without model.
	ErrUnknownService = model.ErrUnknownService
	// ErrUnknownAPIVersion is returned for an api version without model.
	ErrUnknownAPIVersion = model.ErrUnknownAPIVersion
	// ErrNoCredentials is returned when no credential source is configured.
	ErrNoCredentials = credentials.ErrNoCredentials
)

// Session holds what clients share: models, endpoints and credential sources.
type Session struct {
	loader   *model.Loader
	resolver *endpoint.Resolver
	chain    *credentials.Chain
	log      *slog.Logger
}

type sessionOptions struct {
	profile         string
	dataPaths       []string
	credentialsFile string
	configFile      string
	log             *slog.Logger
	getenv          func(string) string
}

// SessionOption configures NewSession.
type SessionOption func(*sessionOptions)

// WithProfile selects the profile of the shared files.
func WithProfile(profile string) SessionOption {
	return func(o *sessionOptions) {
		o.profile = profile
	}
}

// WithDataPath adds model directories searched before NIFCLOUD_DATA_PATH and the builtin models.
func WithDataPath(paths ...string) SessionOption {
	return func(o *sessionOptions) {
		o.dataPaths = append(o.dataPaths, paths...)
	}
}

// WithCredentialsFile overrides the shared credentials file.
func WithCredentialsFile(path string) SessionOption {
	return func(o *sessionOptions) {
		o.credentialsFile = path
	}
}

// WithConfigFile overrides the shared config file.
func WithConfigFile(path string) SessionOption {
	return func(o *sessionOptions) {
		o.configFile = path
	}
}

// WithLogger sets the logger of the session and of its clients.
func WithLogger(l *slog.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.log = l
	}
}

// NewSession returns a session.
func NewSession(opts ...SessionOption) (s *Session, err error) {
	defer decorate.OnError(&err, "could not create session")

	o := sessionOptions{
		log:    slog.Default(),
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(&o)
	}

	paths := o.dataPaths
	if env := o.getenv(constants.EnvDataPath); env != "" {
		paths = append(paths, filepath.SplitList(env)...)
	}
	var search []fs.FS
	for _, p := range paths {
		if p == "" {
			continue
		}
		search = append(search, os.DirFS(p))
	}
	loader := model.NewLoader(model.WithSearchPaths(search...), model.WithLogger(o.log))

	var doc endpoint.Document
	if err := loader.LoadData(endpointsFile, &doc); err != nil {
		return nil, err
	}
	resolver, err := endpoint.NewResolver(&doc, endpoint.WithLogger(o.log))
	if err != nil {
		return nil, err
	}

	return &Session{
		loader:   loader,
		resolver: resolver,
		chain: credentials.NewChain(
			credentials.WithProfile(o.profile),
			credentials.WithCredentialsFile(o.credentialsFile),
			credentials.WithConfigFile(o.configFile),
			credentials.WithLogger(o.log),
			credentials.WithGetenv(o.getenv),
		),
		log: o.log,
	}, nil
}

// Profile returns the profile in use.
func (s *Session) Profile() string {
	return s.chain.Profile()
}

// AvailableServices returns the sorted names of every service with a model.
func (s *Session) AvailableServices() []string {
	return s.loader.ListServices()
}

// AvailableAPIVersions returns the sorted api versions of a service.
func (s *Session) AvailableAPIVersions(service string) []string {
	return s.loader.ListAPIVersions(service)
}

// AvailableRegions returns the regions known for a service.
func (s *Session) AvailableRegions(service string) []string {
	return s.resolver.Regions(service)
}

// UserAgent returns the User-Agent header sent by clients without extra.
func (s *Session) UserAgent() string {
	return UserAgent()
}

// UserAgent returns the default User-Agent header value.
func UserAgent() string {
	return transport.UserAgent("")
}

// CreateClient returns a client for service.
func (s *Session) CreateClient(service string, opts ...ClientOption) (c *Client, err error) {
	defer decorate.OnError(&err, "could not create %s client", service)

	o := clientOptions{
		useSSL: true,
		verify: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	svc, err := s.loader.LoadService(service, o.apiVersion)
	if err != nil {
		return nil, err
	}

	region, err := s.chain.Region(o.region)
	if err != nil {
		return nil, err
	}

	cfg := client.Config{
		Region:           region,
		SignatureVersion: o.config.SignatureVersion,
		MaxAttempts:      o.config.MaxAttempts,
		RateLimit:        o.config.RateLimit,
		RateBurst:        o.config.RateBurst,
		UserAgent:        transport.UserAgent(o.config.UserAgentExtra),
	}
	if o.config.ParamValidation != nil {
		cfg.SkipValidation = !*o.config.ParamValidation
	}
	if cfg.MaxAttempts == 0 {
		if cfg.MaxAttempts, err = s.configInt("max_attempts"); err != nil {
			return nil, err
		}
	}

	if o.endpointURL != "" {
		cfg.Endpoint = o.endpointURL
	} else {
		prefix := svc.API.Metadata.EndpointPrefix
		if prefix == "" {
			prefix = service
		}
		ep, err := s.resolver.Resolve(prefix, region)
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = ep.URL(o.useSSL)
		cfg.SigningName = ep.SigningName
		cfg.SigningRegion = ep.SigningRegion
		if cfg.Region == "" {
			cfg.Region = ep.SigningRegion
		}
	}

	cfg.Credentials, err = s.chain.Provider(o.credentials)
	if err != nil {
		return nil, err
	}

	caBundle := o.caBundle
	if caBundle == "" {
		if caBundle, err = s.chain.ConfigValue("ca_bundle"); err != nil {
			return nil, err
		}
	}
	httpClient, err := transport.NewHTTPClient(transport.Config{
		Verify:         o.verify,
		CABundle:       caBundle,
		ConnectTimeout: o.config.ConnectTimeout,
		ReadTimeout:    o.config.ReadTimeout,
		MaxConnections: o.config.MaxPoolConnections,
	}, transport.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	cfg.HTTPClient = httpClient

	inner, err := client.New(svc, cfg, client.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	s.log.Debug("Created client", "service", service, "api_version", svc.APIVersion, "region", cfg.Region, "endpoint", cfg.Endpoint)
	return &Client{inner: inner, svc: svc, log: s.log}, nil
}

func (s *Session) configInt(key string) (int, error) {
	v, err := s.chain.ConfigValue(key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("invalid %s %q in config file", key, v), err)
	}
	return n, nil
}

// Documentation renders the Markdown reference of a service.
func (s *Session) Documentation(service, apiVersion string) (string, error) {
	svc, err := s.loader.LoadService(service, apiVersion)
	if err != nil {
		return "", err
	}
	return docs.New(svc, docs.WithLogger(s.log)).Render(), nil
}

// WriteDocumentation writes the Markdown reference of a service into dir and returns the file path.
func (s *Session) WriteDocumentation(service, apiVersion, dir string) (string, error) {
	svc, err := s.loader.LoadService(service, apiVersion)
	if err != nil {
		return "", err
	}
	return docs.New(svc, docs.WithLogger(s.log)).WriteFile(dir)
}

// ServiceInfo summarizes the model of a service.
type ServiceInfo struct {
	Name             string
	FullName         string
	APIVersion       string
	Protocol         string
	SignatureVersion string
	Operations       []string
	Methods          []string
	Paginators       []string
	Waiters          []string
}

// ServiceInfo loads the model of a service without resolving region, endpoint or credentials.
func (s *Session) ServiceInfo(service, apiVersion string) (*ServiceInfo, error) {
	svc, err := s.loader.LoadService(service, apiVersion)
	if err != nil {
		return nil, err
	}
	md := svc.API.Metadata
	return &ServiceInfo{
		Name:             svc.Name,
		FullName:         md.ServiceFullName,
		APIVersion:       svc.APIVersion,
		Protocol:         md.Protocol,
		SignatureVersion: md.SignatureVersion,
		Operations:       svc.API.OperationNames(),
		Methods:          svc.API.MethodNames(),
		Paginators:       svc.PaginatorNames(),
		Waiters:          svc.WaiterNames(),
	}, nil
}
