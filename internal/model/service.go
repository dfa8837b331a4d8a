package model

import (
	"encoding/json"
	"maps"
	"slices"
)

// Service is everything loaded for one (service, api version) pair.
type Service struct {
	Name       string
	APIVersion string
	API        *API
	Paginators map[string]*Paginator
	Waiters    map[string]*Waiter
}

// PaginatorNames returns the sorted names of paginated operations.
func (s *Service) PaginatorNames() []string {
	return slices.Sorted(maps.Keys(s.Paginators))
}

// WaiterNames returns the sorted waiter names.
func (s *Service) WaiterNames() []string {
	return slices.Sorted(maps.Keys(s.Waiters))
}

// StringList is a model value written either as a single string or as a list of strings.
type StringList []string

// UnmarshalJSON accepts both forms.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Paginator describes how a listing operation is paged.
type Paginator struct {
	InputToken       StringList `json:"input_token"`
	OutputToken      StringList `json:"output_token"`
	LimitKey         string     `json:"limit_key"`
	MoreResults      string     `json:"more_results"`
	ResultKey        StringList `json:"result_key"`
	NonAggregateKeys StringList `json:"non_aggregate_keys"`
}

type paginatorsFile struct {
	Pagination map[string]*Paginator `json:"pagination"`
}

// Waiter describes polling an operation until the resource reaches a state.
type Waiter struct {
	Name        string     `json:"-"`
	Description string     `json:"description"`
	Operation   string     `json:"operation"`
	Delay       int        `json:"delay"`
	MaxAttempts int        `json:"maxAttempts"`
	Acceptors   []Acceptor `json:"acceptors"`
}

// Acceptor matches one state of a waiter.
type Acceptor struct {
	Matcher  string `json:"matcher"`
	Expected any    `json:"expected"`
	State    string `json:"state"`
	Argument string `json:"argument"`
}

type waitersFile struct {
	Version int                `json:"version"`
	Waiters map[string]*Waiter `json:"waiters"`
}
