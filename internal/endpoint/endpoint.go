// Package endpoint resolves service hostnames from a partitioned endpoints.json document.
package endpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrNoRegion is returned when no region is given and the service has no partition endpoint.
	ErrNoRegion = errors.New("you must specify a region")
	// ErrUnknownEndpoint is returned when no partition can serve the service in the region.
	ErrUnknownEndpoint = errors.New("unable to resolve an endpoint")
)

// Document is the content of endpoints.json.
type Document struct {
	Version    int          `json:"version"`
	Partitions []*Partition `json:"partitions"`
}

// Partition is a group of regions sharing a DNS suffix.
type Partition struct {
	Partition   string                 `json:"partition"`
	Name        string                 `json:"partitionName"`
	DNSSuffix   string                 `json:"dnsSuffix"`
	RegionRegex string                 `json:"regionRegex"`
	Defaults    Definition             `json:"defaults"`
	Regions     map[string]Region      `json:"regions"`
	Services    map[string]ServiceData `json:"services"`

	regionRe *regexp.Regexp
}

// Region describes a region of a partition.
type Region struct {
	Description string `json:"description"`
}

// ServiceData lists the endpoints of one service in a partition.
type ServiceData struct {
	Defaults          Definition            `json:"defaults"`
	Endpoints         map[string]Definition `json:"endpoints"`
	PartitionEndpoint string                `json:"partitionEndpoint"`
	IsRegionalized    *bool                 `json:"isRegionalized"`
}

// Definition holds the properties of an endpoint, any of which may be inherited from defaults.
type Definition struct {
	Hostname          string          `json:"hostname"`
	Protocols         []string        `json:"protocols"`
	SignatureVersions []string        `json:"signatureVersions"`
	CredentialScope   CredentialScope `json:"credentialScope"`
	Deprecated        bool            `json:"deprecated"`
}

// CredentialScope overrides the region or service name used when signing.
type CredentialScope struct {
	Region  string `json:"region"`
	Service string `json:"service"`
}

func (d Definition) mergeFrom(def Definition) Definition {
	if d.Hostname == "" {
		d.Hostname = def.Hostname
	}
	if len(d.Protocols) == 0 {
		d.Protocols = def.Protocols
	}
	if len(d.SignatureVersions) == 0 {
		d.SignatureVersions = def.SignatureVersions
	}
	if d.CredentialScope.Region == "" {
		d.CredentialScope.Region = def.CredentialScope.Region
	}
	if d.CredentialScope.Service == "" {
		d.CredentialScope.Service = def.CredentialScope.Service
	}
	return d
}

// Endpoint is a resolved endpoint.
type Endpoint struct {
	Partition         string
	EndpointName      string
	Hostname          string
	Protocols         []string
	SignatureVersions []string
	SigningRegion     string
	SigningName       string
}

// URL builds the base URL of the endpoint. https is used only when useSSL is set
// and the endpoint supports it.
func (e Endpoint) URL(useSSL bool) string {
	scheme := "http"
	if useSSL && (len(e.Protocols) == 0 || slices.Contains(e.Protocols, "https")) {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: e.Hostname}).String()
}

// Resolver resolves endpoints against a Document.
type Resolver struct {
	doc *Document
	log *slog.Logger
}

type options struct {
	log *slog.Logger
}

// Options represents an optional function to override Resolver default values.
type Options func(*options)

// WithLogger sets the logger of the Resolver.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// NewResolver compiles the region patterns of doc.
func NewResolver(doc *Document, args ...Options) (*Resolver, error) {
	opts := options{log: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}

	for _, p := range doc.Partitions {
		if p.RegionRegex == "" {
			continue
		}
		re, err := regexp.Compile(p.RegionRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid region regex for partition %q: %w", p.Partition, err)
		}
		p.regionRe = re
	}
	return &Resolver{doc: doc, log: opts.log}, nil
}

// Resolve returns the endpoint of service in region. An empty region selects the
// partition endpoint of non regionalized services.
func (r *Resolver) Resolve(service, region string) (Endpoint, error) {
	for _, p := range r.doc.Partitions {
		e, ok, err := r.resolveInPartition(p, service, region)
		if err != nil {
			return Endpoint{}, err
		}
		if ok {
			return e, nil
		}
	}
	if region == "" {
		return Endpoint{}, fmt.Errorf("%w for %q", ErrNoRegion, service)
	}
	return Endpoint{}, fmt.Errorf("%w for %q in region %q", ErrUnknownEndpoint, service, region)
}

// Regions returns every region known for service, sorted.
func (r *Resolver) Regions(service string) []string {
	var regions []string
	for _, p := range r.doc.Partitions {
		sd, ok := p.Services[service]
		if !ok {
			continue
		}
		for name := range sd.Endpoints {
			if _, isRegion := p.Regions[name]; isRegion {
				regions = append(regions, name)
			}
		}
	}
	slices.Sort(regions)
	return regions
}

func (r *Resolver) resolveInPartition(p *Partition, service, region string) (Endpoint, bool, error) {
	sd := p.Services[service]

	if region == "" {
		if sd.PartitionEndpoint == "" {
			return Endpoint{}, false, nil
		}
		region = sd.PartitionEndpoint
	}

	if _, ok := sd.Endpoints[region]; ok {
		return r.expand(p, service, sd, region), true, nil
	}

	if !p.matchRegion(region) {
		return Endpoint{}, false, nil
	}

	if sd.PartitionEndpoint != "" && sd.IsRegionalized != nil && !*sd.IsRegionalized {
		r.log.Debug("Using partition endpoint", "service", service, "region", region, "endpoint", sd.PartitionEndpoint)
		e := r.expand(p, service, sd, sd.PartitionEndpoint)
		if e.SigningRegion == "" {
			e.SigningRegion = region
		}
		return e, true, nil
	}

	r.log.Debug("Creating a regex based endpoint", "service", service, "region", region)
	return r.expand(p, service, sd, region), true, nil
}

func (p *Partition) matchRegion(region string) bool {
	if _, ok := p.Regions[region]; ok {
		return true
	}
	return p.regionRe != nil && p.regionRe.MatchString(region)
}

func (r *Resolver) expand(p *Partition, service string, sd ServiceData, name string) Endpoint {
	def := sd.Endpoints[name]
	if def.Deprecated {
		r.log.Warn("Client is configured with a deprecated endpoint", "service", service, "endpoint", name)
	}
	def = def.mergeFrom(sd.Defaults).mergeFrom(p.Defaults)

	hostname := strings.NewReplacer(
		"{service}", service,
		"{region}", name,
		"{dnsSuffix}", p.DNSSuffix,
	).Replace(def.Hostname)

	e := Endpoint{
		Partition:         p.Partition,
		EndpointName:      name,
		Hostname:          hostname,
		Protocols:         def.Protocols,
		SignatureVersions: def.SignatureVersions,
		SigningRegion:     def.CredentialScope.Region,
		SigningName:       def.CredentialScope.Service,
	}
	if e.SigningRegion == "" {
		if _, isRegion := p.Regions[name]; isRegion || p.matchRegion(name) {
			e.SigningRegion = name
		}
	}
	return e
}
