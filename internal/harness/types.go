package harness

// QueryResult is the outcome of one scenario query.
type QueryResult struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`

	// Predicate and Args are what the query compiled to. Args are rendered
	// with ir.Format.
	Predicate string   `json:"predicate,omitempty"`
	Args      []string `json:"args,omitempty"`
	Hash      string   `json:"hash,omitempty"`

	// Results holds the matching object ids in insertion order.
	Results []string `json:"results"`

	// Error is the compile or execution error, if any.
	Error string `json:"error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// addError adds an assertion failure and marks the query as failed.
func (q *QueryResult) addError(msg string) {
	q.Errors = append(q.Errors, msg)
	q.Pass = false
}

// Result is the outcome of a scenario execution.
type Result struct {
	Name string `json:"name"`

	// Pass is true if every query passed.
	Pass bool `json:"pass"`

	Queries []QueryResult `json:"queries"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:    name,
		Pass:    true,
		Queries: []QueryResult{},
	}
}

// Add records a query outcome.
func (r *Result) Add(q QueryResult) {
	r.Queries = append(r.Queries, q)
	if !q.Pass {
		r.Pass = false
	}
}

// Failures returns the assertion failures of every failed query, prefixed
// with the query name.
func (r *Result) Failures() []string {
	var out []string
	for _, q := range r.Queries {
		for _, e := range q.Errors {
			out = append(out, q.Name+": "+e)
		}
	}
	return out
}
