package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// API is the content of a service-2.json file.
type API struct {
	Version       string                `json:"version"`
	Metadata      Metadata              `json:"metadata"`
	Operations    map[string]*Operation `json:"operations"`
	Shapes        map[string]*Shape     `json:"shapes"`
	Documentation string                `json:"documentation"`

	methods map[string]string
}

// Metadata describes the service as a whole.
type Metadata struct {
	APIVersion          string `json:"apiVersion"`
	EndpointPrefix      string `json:"endpointPrefix"`
	Protocol            string `json:"protocol"`
	ServiceFullName     string `json:"serviceFullName"`
	ServiceAbbreviation string `json:"serviceAbbreviation"`
	ServiceID           string `json:"serviceId"`
	SignatureVersion    string `json:"signatureVersion"`
	SigningName         string `json:"signingName"`
	GlobalEndpoint      string `json:"globalEndpoint"`
	JSONVersion         string `json:"jsonVersion"`
	TargetPrefix        string `json:"targetPrefix"`
	XMLNamespace        string `json:"xmlNamespace"`
	UID                 string `json:"uid"`
}

// Operation is a single API call of the service.
type Operation struct {
	Name             string      `json:"name"`
	HTTP             HTTPBinding `json:"http"`
	Input            *ShapeRef   `json:"input"`
	Output           *ShapeRef   `json:"output"`
	Errors           []*ShapeRef `json:"errors"`
	Documentation    string      `json:"documentation"`
	DocumentationURL string      `json:"documentationUrl"`
	AuthType         string      `json:"authtype"`
	Deprecated       bool        `json:"deprecated"`
}

// HTTPBinding is where an operation is sent.
type HTTPBinding struct {
	Method       string `json:"method"`
	RequestURI   string `json:"requestUri"`
	ResponseCode int    `json:"responseCode"`
}

// ParseAPI decodes and resolves a service-2.json document.
func ParseAPI(data []byte) (*API, error) {
	var api API
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, err
	}
	if err := api.resolve(); err != nil {
		return nil, err
	}
	return &api, nil
}

// resolve links every reference to its shape and merges target traits into it.
func (a *API) resolve() error {
	for name, s := range a.Shapes {
		s.Name = name
	}

	var errs []error
	link := func(where string, ref *ShapeRef) {
		if ref == nil {
			return
		}
		s, ok := a.Shapes[ref.ShapeName]
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q referenced by %s", ErrUndefinedShape, ref.ShapeName, where))
			return
		}
		ref.Shape = s
		ref.merge()
	}

	for _, name := range slices.Sorted(maps.Keys(a.Shapes)) {
		s := a.Shapes[name]
		for m, ref := range s.Members.All() {
			link(name+"."+m, ref)
		}
		link(name+".member", s.Member)
		link(name+".key", s.Key)
		link(name+".value", s.Value)
	}

	a.methods = make(map[string]string, len(a.Operations))
	for _, name := range slices.Sorted(maps.Keys(a.Operations)) {
		op := a.Operations[name]
		if op.Name == "" {
			op.Name = name
		}
		if op.HTTP.Method == "" {
			op.HTTP.Method = "POST"
		}
		if op.HTTP.RequestURI == "" {
			op.HTTP.RequestURI = "/"
		}
		link(name+" input", op.Input)
		link(name+" output", op.Output)
		for _, e := range op.Errors {
			link(name+" errors", e)
		}
		a.methods[XformName(name)] = name
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Operation returns the named operation, accepting either the API name or the method name.
func (a *API) Operation(name string) (*Operation, bool) {
	if op, ok := a.Operations[name]; ok {
		return op, true
	}
	if apiName, ok := a.methods[name]; ok {
		return a.Operations[apiName], true
	}
	return nil, false
}

// OperationNames returns the sorted API names of every operation.
func (a *API) OperationNames() []string {
	return slices.Sorted(maps.Keys(a.Operations))
}

// MethodNames returns the sorted method names of every operation.
func (a *API) MethodNames() []string {
	return slices.Sorted(maps.Keys(a.methods))
}

// Shape returns the named shape.
func (a *API) Shape(name string) (*Shape, bool) {
	s, ok := a.Shapes[name]
	return s, ok
}
