// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/citeseek-dev/citeseek/internal/index"
	"github.com/citeseek-dev/citeseek/internal/observability/metrics"
	"github.com/citeseek-dev/citeseek/internal/research"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Services are the pipeline dependencies the routes delegate to.
type Services struct {
	Sessions    *research.Manager
	Gatherer    *research.Gatherer
	Synthesizer *research.Synthesizer
	Searcher    index.TextSearcher
	Metrics     *metrics.PipelineMetrics

	// GatherDefaults seed each gather call; request fields override.
	GatherDefaults research.GatherOptions
	MaxSources     int
}

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()

	if svc.Metrics != nil {
		s.router.Handle("/metrics", svc.Metrics.Handler())
	}
}

func (s *Server) registerRoutes() {
	// Session endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Start a research session for a question",
		Tags:        []string{"sessions"},
	}, s.handleCreateSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions",
		Summary:     "List research sessions",
		Tags:        []string{"sessions"},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session details and gathered evidence",
		Tags:        []string{"sessions"},
	}, s.handleGetSession)

	// Pipeline endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "gather-evidence",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/gather",
		Summary:     "Gather evidence for the session's question",
		Tags:        []string{"pipeline"},
	}, s.handleGather)

	huma.Register(s.api, huma.Operation{
		OperationID: "generate-answer",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/answer",
		Summary:     "Synthesize a cited answer from gathered evidence",
		Tags:        []string{"pipeline"},
	}, s.handleAnswer)

	// Search endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "search-papers",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Keyword search over indexed documents",
		Tags:        []string{"search"},
	}, s.handleSearch)
}

// --- Request/Response types for huma ---

type createSessionInput struct {
	Body struct {
		Question string `json:"question" minLength:"1" doc:"Question to research"`
	}
}
type createSessionOutput struct {
	Body SessionSummary
}

type listSessionsOutput struct {
	Body struct {
		Sessions []SessionSummary `json:"sessions"`
	}
}

type sessionIDInput struct {
	ID string `path:"id"`
}
type getSessionOutput struct {
	Body SessionDetail
}

type gatherInput struct {
	ID   string `path:"id"`
	Body struct {
		EvidenceK      int      `json:"evidence_k,omitempty" doc:"Chunks to retrieve"`
		Lambda         *float64 `json:"lambda,omitempty" doc:"MMR relevance/diversity trade-off"`
		ScoreThreshold *float64 `json:"score_threshold,omitempty" doc:"Minimum exclusive relevance score"`
	}
}
type gatherOutput struct {
	Body GatherSummary
}

type answerOutput struct {
	Body AnswerBody
}

type searchInput struct {
	Query   string `query:"q" minLength:"1" doc:"Keyword query"`
	MinYear int    `query:"min_year" doc:"Earliest publication year, inclusive"`
	MaxYear int    `query:"max_year" doc:"Latest publication year, inclusive"`
	Limit   int    `query:"limit" doc:"Maximum hits to return"`
}
type searchOutput struct {
	Body struct {
		Hits []SearchHit `json:"hits"`
	}
}

// SessionSummary is the list-level view of a session.
type SessionSummary struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	State     string    `json:"state"`
	Evidence  int       `json:"evidence"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionDetail adds gathered evidence, usage, and any answer.
type SessionDetail struct {
	SessionSummary
	Contexts []EvidenceItem `json:"contexts"`
	Usage    UsageBody      `json:"usage"`
	Answer   *AnswerBody    `json:"answer,omitempty"`
}

// EvidenceItem is one gathered context.
type EvidenceItem struct {
	ChunkID  string  `json:"chunk_id"`
	DocID    string  `json:"doc_id"`
	Summary  string  `json:"summary"`
	Score    float64 `json:"score"`
	Citation string  `json:"citation"`
}

// UsageBody reports accumulated collaborator consumption.
type UsageBody struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Calls        int     `json:"calls"`
	CostUSD      float64 `json:"cost_usd"`
}

// AnswerBody is a synthesized answer.
type AnswerBody struct {
	Text         string   `json:"text"`
	Bibliography []string `json:"bibliography"`
	Stale        bool     `json:"stale"`
}

// GatherSummary reports one gather call.
type GatherSummary struct {
	Retrieved int `json:"retrieved"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Filtered  int `json:"filtered"`
	Added     int `json:"added"`
	Evidence  int `json:"evidence"`
}

// SearchHit is one keyword search result.
type SearchHit struct {
	ChunkID string `json:"chunk_id"`
	DocID   string `json:"doc_id"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Snippet string `json:"snippet"`
}

// --- Handlers ---

func (s *Server) handleCreateSession(_ context.Context, input *createSessionInput) (*createSessionOutput, error) {
	session := s.services.Sessions.Create(input.Body.Question)

	out := &createSessionOutput{}
	out.Body = sessionSummary(session)
	return out, nil
}

func (s *Server) handleListSessions(_ context.Context, _ *struct{}) (*listSessionsOutput, error) {
	sessions := s.services.Sessions.List()

	out := &listSessionsOutput{}
	out.Body.Sessions = make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out.Body.Sessions = append(out.Body.Sessions, sessionSummary(session))
	}
	sort.Slice(out.Body.Sessions, func(i, j int) bool {
		return out.Body.Sessions[i].CreatedAt.Before(out.Body.Sessions[j].CreatedAt)
	})
	return out, nil
}

func (s *Server) handleGetSession(_ context.Context, input *sessionIDInput) (*getSessionOutput, error) {
	session, err := s.services.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	detail := SessionDetail{SessionSummary: sessionSummary(session)}
	for _, c := range session.Contexts() {
		detail.Contexts = append(detail.Contexts, EvidenceItem{
			ChunkID:  c.Chunk.ID,
			DocID:    c.Chunk.DocID,
			Summary:  c.Summary,
			Score:    c.Score,
			Citation: c.Citation,
		})
	}

	usage := session.Usage()
	detail.Usage = UsageBody{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Calls:        usage.Calls,
		CostUSD:      usage.CostUSD,
	}

	if answer, ok := session.Answer(); ok {
		detail.Answer = &AnswerBody{
			Text:         answer.Text,
			Bibliography: answer.Bibliography,
			Stale:        answer.Stale,
		}
	}

	return &getSessionOutput{Body: detail}, nil
}

func (s *Server) handleGather(ctx context.Context, input *gatherInput) (*gatherOutput, error) {
	session, err := s.services.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	opts := s.services.GatherDefaults
	if input.Body.EvidenceK > 0 {
		opts.EvidenceK = input.Body.EvidenceK
	}
	if input.Body.Lambda != nil {
		opts.Lambda = input.Body.Lambda
	}
	if input.Body.ScoreThreshold != nil {
		opts.ScoreThreshold = *input.Body.ScoreThreshold
	}

	result, err := s.services.Gatherer.Gather(ctx, session, opts)
	if err != nil {
		return nil, humaError(err)
	}

	out := &gatherOutput{}
	out.Body = GatherSummary{
		Retrieved: result.Retrieved,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		Filtered:  result.Filtered,
		Added:     result.Added,
		Evidence:  session.ContextCount(),
	}
	return out, nil
}

func (s *Server) handleAnswer(ctx context.Context, input *sessionIDInput) (*answerOutput, error) {
	session, err := s.services.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	answer, err := s.services.Synthesizer.Synthesize(ctx, session, s.services.MaxSources)
	if err != nil {
		return nil, humaError(err)
	}

	out := &answerOutput{}
	out.Body = AnswerBody{
		Text:         answer.Text,
		Bibliography: answer.Bibliography,
		Stale:        answer.Stale,
	}
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	hits, err := s.services.Searcher.SearchText(ctx, input.Query, index.SearchOpts{
		Limit:   input.Limit,
		MinYear: input.MinYear,
		MaxYear: input.MaxYear,
	})
	if err != nil {
		return nil, humaError(err)
	}

	out := &searchOutput{}
	out.Body.Hits = make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		out.Body.Hits = append(out.Body.Hits, SearchHit{
			ChunkID: h.ChunkID,
			DocID:   h.DocID,
			Title:   h.Title,
			Year:    h.Year,
			Snippet: h.Snippet,
		})
	}
	return out, nil
}

func sessionSummary(session *research.Session) SessionSummary {
	return SessionSummary{
		ID:        session.ID,
		Question:  session.Question,
		State:     string(session.State()),
		Evidence:  session.ContextCount(),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt(),
	}
}

// humaError maps pipeline error codes onto HTTP statuses: not-found to
// 404, busy sessions to 409, invalid input to 400, upstream trouble to
// 502/504.
func humaError(err error) error {
	return huma.NewError(cserr.HTTPStatus(err), err.Error())
}
