// Package picker implements the search-and-select flow used by related-model
// fields.
//
// A Picker moves through Closed, OpenEmpty, Loading and Results. Queries
// shorter than model.MinRelatedQueryLength never reach the searcher, and a
// newer query cancels the one in flight; results of superseded queries are
// discarded by generation number.
package picker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-hitasforms/internal/subscription"
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
)

// DefaultLimit bounds the number of candidates requested per search.
const DefaultLimit = 10

var (
	ErrClosed        = errors.New("picker: closed")
	ErrNoResults     = errors.New("picker: no results to commit")
	ErrIndexRange    = errors.New("picker: candidate index out of range")
	ErrMissingSearch = errors.New("picker: searcher is required")
)

// State is the picker lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpenEmpty
	StateLoading
	StateResults
)

func (s State) String() string {
	switch s {
	case StateOpenEmpty:
		return "open"
	case StateLoading:
		return "loading"
	case StateResults:
		return "results"
	default:
		return "closed"
	}
}

type (
	Searcher = model.Searcher
	Filter   = model.SearchFilter
	Page     = model.SearchPage
)

// Candidate is one search result as shown to the user.
type Candidate struct {
	Label  string
	Value  any
	Entity model.Entity
}

// Selection is the committed candidate.
type Selection struct {
	Label  string
	Value  any
	Entity model.Entity
}

// Option customises a Picker.
type Option func(*Picker)

// WithLogger sets the picker logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Picker) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLimit overrides the per-search limit.
func WithLimit(limit int) Option {
	return func(p *Picker) {
		if limit > 0 {
			p.limit = limit
		}
	}
}

// Picker is safe for concurrent use.
type Picker struct {
	spec     model.RelatedSpec
	searcher Searcher
	logger   logging.Logger
	limit    int

	mu         sync.Mutex
	state      State
	query      string
	candidates []Candidate
	total      int
	err        error
	generation uint64
	cancel     context.CancelFunc

	subs subscription.Set[State]
}

// New builds a closed picker for spec. The searcher argument wins over
// spec.Searcher when both are set.
func New(spec model.RelatedSpec, searcher Searcher, opts ...Option) (*Picker, error) {
	if searcher == nil {
		searcher = spec.Searcher
	}
	if searcher == nil {
		return nil, ErrMissingSearch
	}
	p := &Picker{
		spec:     spec,
		searcher: searcher,
		logger:   logging.NoOp(),
		limit:    DefaultLimit,
	}
	if spec.Limit > 0 {
		p.limit = spec.Limit
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Spec returns the related-model configuration.
func (p *Picker) Spec() model.RelatedSpec { return p.spec }

// Open shows the picker with an empty query. Opening an open picker resets it.
func (p *Picker) Open() {
	p.mu.Lock()
	p.resetLocked()
	p.state = StateOpenEmpty
	p.mu.Unlock()
	p.subs.Notify(StateOpenEmpty)
}

// SetQuery updates the query and, once it is long enough, runs a search.
// It blocks until the search finishes or is superseded; a superseded search
// returns nil and leaves the newer query's state untouched.
func (p *Picker) SetQuery(ctx context.Context, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	gen := p.generation
	p.query = query
	p.candidates = nil
	p.total = 0
	p.err = nil

	if utf8.RuneCountInString(strings.TrimSpace(query)) < model.MinRelatedQueryLength {
		p.state = StateOpenEmpty
		p.mu.Unlock()
		p.subs.Notify(StateOpenEmpty)
		return nil
	}

	searchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = StateLoading
	filter := p.filterLocked(strings.TrimSpace(query))
	p.mu.Unlock()
	p.subs.Notify(StateLoading)

	p.logger.Debug("picker search", "resource", filter.Resource, "query", filter.Query, "generation", gen)
	page, err := p.searcher.Search(searchCtx, filter)
	cancel()

	p.mu.Lock()
	if gen != p.generation || p.state != StateLoading {
		p.mu.Unlock()
		p.logger.Trace("picker search superseded", "generation", gen)
		return nil
	}
	p.cancel = nil
	p.state = StateResults
	if err != nil {
		p.err = err
		p.mu.Unlock()
		p.subs.Notify(StateResults)
		p.logger.Warn("picker search failed", "resource", filter.Resource, "error", err)
		return err
	}
	p.candidates = p.candidatesFor(page.Contents)
	p.total = page.TotalItems
	p.mu.Unlock()
	p.subs.Notify(StateResults)
	return nil
}

// Commit selects the candidate at index, closes the picker and returns the
// value to store together with its display label.
func (p *Picker) Commit(index int) (Selection, error) {
	p.mu.Lock()
	switch p.state {
	case StateClosed:
		p.mu.Unlock()
		return Selection{}, ErrClosed
	case StateResults:
	default:
		p.mu.Unlock()
		return Selection{}, ErrNoResults
	}
	if index < 0 || index >= len(p.candidates) {
		p.mu.Unlock()
		return Selection{}, ErrIndexRange
	}
	candidate := p.candidates[index]
	p.resetLocked()
	p.state = StateClosed
	p.mu.Unlock()

	p.subs.Notify(StateClosed)
	return Selection{Label: candidate.Label, Value: candidate.Value, Entity: candidate.Entity}, nil
}

// Close discards the query and any results without committing.
func (p *Picker) Close() {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}
	p.resetLocked()
	p.state = StateClosed
	p.mu.Unlock()
	p.subs.Notify(StateClosed)
}

func (p *Picker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Picker) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Results returns a copy of the current candidates.
func (p *Picker) Results() []Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Candidate(nil), p.candidates...)
}

// Total returns the total item count reported by the last search.
func (p *Picker) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// Err returns the error of the last completed search.
func (p *Picker) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Picker) resetLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	p.query = ""
	p.candidates = nil
	p.total = 0
	p.err = nil
}

func (p *Picker) filterLocked(query string) Filter {
	param := strings.TrimSpace(p.spec.LabelField)
	if param == "" {
		param = "q"
	}
	var params map[string]string
	if len(p.spec.Params) > 0 {
		params = make(map[string]string, len(p.spec.Params))
		for k, v := range p.spec.Params {
			params[k] = v
		}
	}
	return Filter{
		Resource:   p.spec.Resource,
		Query:      query,
		QueryParam: param,
		Params:     params,
		Limit:      p.limit,
	}
}

func (p *Picker) candidatesFor(entities []model.Entity) []Candidate {
	out := make([]Candidate, 0, len(entities))
	field := p.spec.ValueField()
	for _, entity := range entities {
		value, _ := entity.Lookup(field)
		out = append(out, Candidate{
			Label:  p.spec.DisplayLabel(entity),
			Value:  value,
			Entity: entity,
		})
	}
	return out
}
