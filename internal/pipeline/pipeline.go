// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline turns a farmer's raw question into an AdvisoryResponse.
// Every path returns a response; the only error surfaced is an invalid query.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/advisory"
	"github.com/your-org/agri-advisor/internal/extract"
	"github.com/your-org/agri-advisor/internal/grounding"
	"github.com/your-org/agri-advisor/internal/history"
	"github.com/your-org/agri-advisor/internal/metrics"
	"github.com/your-org/agri-advisor/internal/normalize"
	"github.com/your-org/agri-advisor/internal/openai"
	"github.com/your-org/agri-advisor/internal/resilience"
	"github.com/your-org/agri-advisor/internal/synth"
)

// Outcomes recorded per request
const (
	OutcomeAnswered         = "answered"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeGenerationFailed = "generation_failed"
	OutcomeInvalid          = "invalid"
	OutcomeFallback         = "fallback"
)

// Disclaimers attached to degraded responses
const (
	DisclaimerGenerationUnavailable = "The answer generation service is currently unavailable. " +
		"This response is based only on retrieved data and general guidance."

	DisclaimerSystemUnavailable = "The advisory system is temporarily unavailable. " +
		"This is general guidance only; please consult your local Krishi Vigyan Kendra."

	DisclaimerInsufficientData = "Not enough current data was available to answer this question."
	DisclaimerStaleData        = "Some data shown is last known data and may be out of date."
)

// Retriever gathers data for a query context
type Retriever interface {
	Retrieve(ctx context.Context, qc advisory.QueryContext) []advisory.RetrievedDatum
}

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) openai.Result
}

// Saver stores answered queries in the background
type Saver interface {
	Save(rec history.Record)
}

// Pipeline wires the advisory stages together
type Pipeline struct {
	retriever Retriever
	generator Generator
	saver     Saver
	logger    *zap.Logger
	errs      *resilience.ErrorHandler
	now       func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSaver stores every answered query for users with an id
func WithSaver(s Saver) Option {
	return func(p *Pipeline) {
		p.saver = s
	}
}

// WithLogger sets the pipeline logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the time source used for query timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a pipeline over a retriever and a generator
func New(retriever Retriever, generator Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever: retriever,
		generator: generator,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.errs = resilience.NewErrorHandler(p.logger)
	return p
}

// Advise answers raw for an anonymous user
func (p *Pipeline) Advise(ctx context.Context, raw string) (advisory.AdvisoryResponse, error) {
	return p.AdviseUser(ctx, "", raw)
}

// AdviseUser answers raw and, when userID is set, stores the answer in the
// background. The returned error is always a *resilience.ServiceError wrapping
// normalize.ErrInvalidQuery.
func (p *Pipeline) AdviseUser(ctx context.Context, userID, raw string) (resp advisory.AdvisoryResponse, err error) {
	start := time.Now()
	var (
		q  = advisory.Query{OriginalText: raw}
		qc advisory.QueryContext
	)

	defer func() {
		if r := recover(); r != nil {
			failure := resilience.NewSystemUnavailable("advisory pipeline failed", fmt.Errorf("panic: %v", r))
			p.errs.LogError(failure, "advise", zap.Stack("stack"))
			resp = fallbackResponse(q, qc)
			err = nil
			metrics.ObserveAdvisory(OutcomeFallback, start, resp.Confidence)
		}
	}()

	q = normalize.Normalize(raw)
	if checkErr := normalize.Check(q); checkErr != nil {
		p.logger.Info("Rejected invalid query",
			zap.String("reason", q.Error),
			zap.Int("length", len([]rune(raw))))
		metrics.ObserveAdvisory(OutcomeInvalid, start, 0)
		return advisory.AdvisoryResponse{}, resilience.NewInvalidQueryError(q.Error, checkErr)
	}

	qc = extract.Extract(q, p.now())
	p.logger.Debug("Extracted query context",
		zap.String("language", string(q.DetectedLanguage)),
		zap.String("location", qc.Location.Key()),
		zap.String("crop", qc.CropName()))

	resp, outcome := p.answer(ctx, q, qc)
	metrics.ObserveAdvisory(outcome, start, resp.Confidence)

	p.logger.Info("Advisory answered",
		zap.String("outcome", outcome),
		zap.Int("sources", len(resp.Sources)),
		zap.Float64("confidence", resp.Confidence),
		zap.String("factual_basis", string(resp.FactualBasis)),
		zap.Duration("elapsed", time.Since(start)))

	if userID != "" && p.saver != nil {
		p.saver.Save(history.NewRecord(userID, q, resp, p.now()))
	}
	return resp, nil
}

// answer runs retrieval, assessment, generation and formatting for a valid query
func (p *Pipeline) answer(ctx context.Context, q advisory.Query, qc advisory.QueryContext) (advisory.AdvisoryResponse, string) {
	var draft string

	needs := grounding.Decide(qc, "")
	if needs == grounding.No {
		result := p.generate(ctx, "draft", synth.BuildDraftPrompt(q, qc))
		if !result.OK() {
			return p.generationFailed(q, qc, nil, ""), OutcomeGenerationFailed
		}
		draft = result.Text()
		needs = grounding.Decide(qc, draft)
		if needs == grounding.No {
			return p.respond(q, qc, draft, nil, false), OutcomeAnswered
		}
	}

	data := p.retriever.Retrieve(ctx, qc)
	if len(data) == 0 {
		p.logger.Info("Grounding required but no data found")
		return insufficientDataResponse(q, qc), OutcomeInsufficientData
	}
	relevant := grounding.RelevantData(qc, data)

	if draft == "" {
		result := p.generate(ctx, "draft", synth.BuildDraftPrompt(q, qc))
		if !result.OK() {
			return p.generationFailed(q, qc, data, ""), OutcomeGenerationFailed
		}
		draft = result.Text()
	}

	result := p.generate(ctx, "grounded", synth.BuildGroundedPrompt(q, qc, draft, relevant))
	if !result.OK() {
		return p.generationFailed(q, qc, data, draft), OutcomeGenerationFailed
	}
	return p.respond(q, qc, result.Text(), data, false), OutcomeAnswered
}

func (p *Pipeline) generate(ctx context.Context, pass, prompt string) openai.Result {
	result := p.generator.Generate(ctx, prompt)
	label := "success"
	if !result.OK() {
		label = "failure"
		p.errs.LogError(resilience.NewGenerationFailure(result.Reason(), nil), "generate",
			zap.String("pass", pass))
	}
	metrics.GenerationCalls.WithLabelValues(pass, label).Inc()
	return result
}

// respond formats the final answer with confidence and factual basis
func (p *Pipeline) respond(q advisory.Query, qc advisory.QueryContext, answer string, data []advisory.RetrievedDatum, generationFailed bool) advisory.AdvisoryResponse {
	confidence := grounding.Confidence(qc, data)
	basis := grounding.FactualBasis(data)
	disclaimer := ""
	if generationFailed {
		basis = advisory.FactualBasisLow
		disclaimer = DisclaimerGenerationUnavailable
	} else if hasStale(data) {
		disclaimer = DisclaimerStaleData
	}

	text := synth.Format(synth.Report{
		Query:        q,
		Context:      qc,
		Answer:       answer,
		Data:         data,
		Confidence:   confidence,
		FactualBasis: basis,
	})

	return advisory.AdvisoryResponse{
		AnswerText:   text,
		Sources:      advisory.References(data),
		Confidence:   confidence,
		FactualBasis: basis,
		Disclaimer:   disclaimer,
	}
}

// generationFailed keeps the best available text: the draft if one was
// produced, the apology otherwise
func (p *Pipeline) generationFailed(q advisory.Query, qc advisory.QueryContext, data []advisory.RetrievedDatum, draft string) advisory.AdvisoryResponse {
	answer := draft
	if answer == "" {
		answer = openai.ApologyText
	}
	return p.respond(q, qc, answer, data, true)
}

func insufficientDataResponse(q advisory.Query, qc advisory.QueryContext) advisory.AdvisoryResponse {
	return advisory.AdvisoryResponse{
		AnswerText:   synth.SuggestedQuestions(q, qc),
		Sources:      []advisory.SourceReference{},
		Confidence:   grounding.Confidence(qc, nil),
		FactualBasis: advisory.FactualBasisLow,
		Disclaimer:   DisclaimerInsufficientData,
	}
}

func fallbackResponse(q advisory.Query, qc advisory.QueryContext) advisory.AdvisoryResponse {
	return advisory.AdvisoryResponse{
		AnswerText:   synth.FallbackAnswer(q, qc),
		Sources:      []advisory.SourceReference{},
		Confidence:   0,
		FactualBasis: advisory.FactualBasisLow,
		Disclaimer:   DisclaimerSystemUnavailable,
	}
}

func hasStale(data []advisory.RetrievedDatum) bool {
	for _, d := range data {
		if d.Freshness == advisory.FreshnessStale {
			return true
		}
	}
	return false
}
