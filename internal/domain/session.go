package domain

import "time"

// Session is the aggregate owned by a single run. It holds the prompts in
// input order and one pre-allocated result slot per prompt.
//
// Slots are written by exactly one goroutine each, and only read after all
// writers have finished, so Session carries no lock. Two runs never share a
// Session.
type Session struct {
	StartedAt time.Time

	prompts []Prompt
	index   map[string]int
	slots   [][]EvaluationResult
}

// NewSession allocates a session for the given prompts. Prompt ids must be
// unique.
func NewSession(prompts []Prompt, startedAt time.Time) (*Session, error) {
	s := &Session{
		StartedAt: startedAt,
		prompts:   make([]Prompt, len(prompts)),
		index:     make(map[string]int, len(prompts)),
		slots:     make([][]EvaluationResult, len(prompts)),
	}
	copy(s.prompts, prompts)
	for i, p := range prompts {
		if _, dup := s.index[p.ID]; dup {
			return nil, NewSessionError(p.ID, "new", ErrDuplicatePrompt)
		}
		s.index[p.ID] = i
	}
	return s, nil
}

// Prompts returns the prompts in input order.
func (s *Session) Prompts() []Prompt { return s.prompts }

// Record stores the results for the prompt at position i.
func (s *Session) Record(i int, results []EvaluationResult) {
	s.slots[i] = results
}

// Results returns the recorded results for a prompt id.
func (s *Session) Results(promptID string) ([]EvaluationResult, error) {
	i, ok := s.index[promptID]
	if !ok {
		return nil, NewSessionError(promptID, "results", ErrPromptNotFound)
	}
	return s.slots[i], nil
}

// ByPrompt returns every prompt's results keyed by prompt id.
func (s *Session) ByPrompt() map[string][]EvaluationResult {
	out := make(map[string][]EvaluationResult, len(s.prompts))
	for i, p := range s.prompts {
		rs := s.slots[i]
		if rs == nil {
			rs = []EvaluationResult{}
		}
		out[p.ID] = rs
	}
	return out
}

// EligibleResults returns every successful result in pool order: prompt
// order, then the order results were recorded within a prompt.
func (s *Session) EligibleResults() []EvaluationResult {
	var pool []EvaluationResult
	for i := range s.prompts {
		pool = append(pool, Eligible(s.slots[i])...)
	}
	return pool
}

// Eligible filters out failed results, preserving order.
func Eligible(results []EvaluationResult) []EvaluationResult {
	out := make([]EvaluationResult, 0, len(results))
	for _, r := range results {
		if !r.IsFailure() {
			out = append(out, r)
		}
	}
	return out
}

// RunMetadata describes a completed run.
type RunMetadata struct {
	StartedAt   string `json:"startedAt"`
	EvaluatedAt string `json:"evaluatedAt"`
	PromptCount int    `json:"promptCount"`
	ModelCount  int    `json:"modelCount"`
	RepeatCount int    `json:"repeatCount"`
}

// RunSummary is the persisted record of a run.
type RunSummary struct {
	Prompts            map[string][]EvaluationResult `json:"prompts"`
	SimilarityMatrix   *SimilarityMatrix             `json:"similarityMatrix"`
	SimilarityByPrompt map[string]*SimilarityMatrix  `json:"similarityByPrompt,omitempty"`
	Metadata           RunMetadata                   `json:"metadata"`

	// Location is where the summary was persisted. It is not serialized.
	Location string `json:"-"`
}
