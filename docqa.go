// Package docqa wires the OODGate, Retriever, GateEngine, TagClusterer,
// AmbiguityResolver, CoverageGate, and EntityAugmenter into a single
// Invoke entry point: a linear chain of pure stages over a query,
// routing on status exactly like original_source/src/rag/chain.py's
// build_retrieve_and_gate_l2, generalized from the teacher's Engine
// interface in goreason.go.
package docqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/brunobiangulo/docqa/embedproviders"
	"github.com/brunobiangulo/docqa/internal/ambiguity"
	"github.com/brunobiangulo/docqa/internal/coverage"
	"github.com/brunobiangulo/docqa/internal/doc"
	"github.com/brunobiangulo/docqa/internal/entity"
	"github.com/brunobiangulo/docqa/internal/gate"
	"github.com/brunobiangulo/docqa/internal/metrics"
	"github.com/brunobiangulo/docqa/internal/ood"
	"github.com/brunobiangulo/docqa/internal/options"
	"github.com/brunobiangulo/docqa/internal/retrieve"
	"github.com/brunobiangulo/docqa/internal/simtext"
	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// Status is the caller-facing discriminant for an Outcome.
type Status string

const (
	StatusOK        Status = "ok"
	StatusRefuse    Status = "refuse"
	StatusAmbiguous Status = "ambiguous"
)

// Request is a single Invoke call. On a first call, only Input is set.
// On a second call (the caller resolving a prior ambiguous Outcome),
// SelectedOption and Options must both be set, Options carrying back
// exactly the list the first call returned.
type Request struct {
	Input          string
	SelectedOption *int
	Options        []options.Option
}

// Outcome is the terminal, user-visible result of an Invoke call
// (spec.md §4.9/§6). Generation of a natural-language answer from Docs
// is the caller's concern (see the generate package) — Invoke never
// calls an LLM itself.
type Outcome struct {
	RequestID      string
	Input          string
	Status         Status
	Docs           []doc.Document
	RefusalReason  string
	Options        []options.Option
	SelectedOption *int
}

// Engine holds every compiled stage config plus the store and embedder
// it was built with. Construct via New; Engine is safe for concurrent
// Invoke calls once built.
type Engine struct {
	store retrieve.Store

	fetchK int
	finalK int

	oodCfg       ood.Config
	gateCfg      gate.Config
	ambiguityCfg ambiguity.Config
	coverageCfg  coverage.Config
}

// New compiles cfg into an Engine backed by store for candidate
// retrieval. Every pattern and entity alias is compiled here, so a
// malformed config fails at construction, never mid-query.
func New(cfg Config, store retrieve.Store) (*Engine, error) {
	oodCfg, err := ood.Compile(cfg.OOD.Enabled, cfg.OOD.AllowPatterns, cfg.OOD.DenyPatterns)
	if err != nil {
		return nil, fmt.Errorf("docqa: ood config: %w", err)
	}

	coverageCfg, err := coverage.Compile(cfg.Coverage.Enabled, cfg.Coverage.CompareMarkers, cfg.Coverage.GenericMarkers, cfg.Entities.Order, cfg.Entities.Aliases)
	if err != nil {
		return nil, fmt.Errorf("docqa: coverage config: %w", err)
	}

	extractor, err := entity.Compile(cfg.Entities.Order, cfg.Entities.Aliases)
	if err != nil {
		return nil, fmt.Errorf("docqa: entities config: %w", err)
	}

	genericPatterns, err := compilePatterns(cfg.Ambiguity.GenericQueryPatterns)
	if err != nil {
		return nil, fmt.Errorf("docqa: ambiguity.generic_query_patterns: %w", err)
	}
	facetPatterns, err := compilePatterns(cfg.Ambiguity.FacetQueryPatterns)
	if err != nil {
		return nil, fmt.Errorf("docqa: ambiguity.facet_query_patterns: %w", err)
	}

	var embedder embedproviders.Provider
	var cache *simtext.Cache
	if cfg.Ambiguity.EnableSigTiebreak || cfg.Ambiguity.EnableAnchorTiebreak {
		embedder, err = embedproviders.New(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("docqa: embedding config: %w", err)
		}
		cache = simtext.NewCache(cfg.Embedding.Provider + ":" + cfg.Embedding.Model)
	}

	ambiguityCfg := ambiguity.Config{
		MaxOptions:                     cfg.Ambiguity.MaxOptions,
		MinGroupGap:                    cfg.Ambiguity.MinGroupGap,
		StrictSig:                      cfg.Ambiguity.StrictSig,
		Embedder:                       embedder,
		Cache:                          cache,
		EnableSigTiebreak:              cfg.Ambiguity.EnableSigTiebreak,
		MinSigSim:                      cfg.Ambiguity.MinSigSim,
		MinSigSimGap:                   cfg.Ambiguity.MinSigSimGap,
		EnableAnchorTiebreak:           cfg.Ambiguity.EnableAnchorTiebreak,
		MinAnchorSim:                   cfg.Ambiguity.MinAnchorSim,
		MinAnchorSimGap:                cfg.Ambiguity.MinAnchorSimGap,
		EnableEntityResolve:            cfg.Ambiguity.EnableEntityResolve,
		RequireFullEntityCoverage:      cfg.Ambiguity.RequireFullEntityCoverage,
		Entities:                       &extractor,
		KeepAmbiguousForGenericQueries: cfg.Ambiguity.KeepAmbiguousForGenericQueries,
		GenericQueryPatterns:           genericPatterns,
		FacetQueryPatterns:             facetPatterns,
	}

	gateCfg := gate.Config{
		FinalK:    cfg.Gate.FinalK,
		MaxL2:     cfg.Gate.MaxL2,
		MinKeep:   cfg.Gate.MinKeep,
		MinGap:    cfg.Gate.MinGap,
		SoftMaxL2: cfg.Gate.SoftMaxL2,
	}

	finalK := cfg.Gate.FinalK
	if finalK < 1 {
		finalK = 1
	}

	return &Engine{
		store:        store,
		fetchK:       cfg.FetchK,
		finalK:       finalK,
		oodCfg:       oodCfg,
		gateCfg:      gateCfg,
		ambiguityCfg: ambiguityCfg,
		coverageCfg:  coverageCfg,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Invoke runs query through the full pipeline, or resolves a prior
// ambiguous Outcome when req.SelectedOption is set. It recovers from
// any panic raised by a stage and turns it into a generic refusal
// (spec.md §7) rather than propagating it. Every failure a stage can
// raise — out-of-domain, backend failure, cancellation, invalid
// selection, missing coverage — is normalized into a refuse Outcome
// before it crosses this boundary (spec.md §7); err is returned only
// for defects in Invoke itself and should always be nil in practice.
func (e *Engine) Invoke(ctx context.Context, req Request) (out Outcome, err error) {
	requestID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("docqa: panic recovered", "request_id", requestID, "panic", r)
			out = e.refuse(requestID, req.Input, "Internal error")
			err = nil
		}
		metrics.OutcomesTotal.WithLabelValues(string(out.Status)).Inc()
	}()

	if req.SelectedOption != nil {
		return e.invokeSelection(requestID, req), nil
	}

	return e.invokeFirstCall(ctx, requestID, req), nil
}

func (e *Engine) invokeSelection(requestID string, req Request) Outcome {
	for _, opt := range req.Options {
		if opt.ID == *req.SelectedOption {
			return e.ok(requestID, req.Input, opt.Docs)
		}
	}
	return e.refuseWithCause(requestID, req.Input, "Invalid selection: "+strconv.Itoa(*req.SelectedOption), ErrInvalidSelection)
}

func (e *Engine) invokeFirstCall(ctx context.Context, requestID string, req Request) Outcome {
	if ctx.Err() != nil {
		return e.refuseWithCause(requestID, req.Input, "Cancelled", ErrCancelled)
	}

	query := strings.TrimSpace(req.Input)

	var oodResult ood.Result
	metrics.ObserveStage("ood", func() error {
		oodResult = ood.Check(query, e.oodCfg)
		return nil
	})
	if oodResult.Refused {
		return e.refuseWithCause(requestID, req.Input, oodResult.Reason, ErrOutOfDomain)
	}

	var scored []doc.ScoredDocument
	fetchErr := metrics.ObserveStage("retrieve", func() error {
		var err error
		scored, err = retrieve.Fetch(ctx, e.store, query, e.fetchK, e.finalK, e.ambiguityCfg.MaxOptions)
		return err
	})
	if fetchErr != nil {
		return e.refuseForBackendError(ctx, requestID, req.Input, "retrieve", fetchErr)
	}

	var gateResult gate.Result
	metrics.ObserveStage("gate", func() error {
		gateResult = gate.Run(scored, e.gateCfg)
		return nil
	})

	switch gateResult.Status {
	case gate.StatusRefuse:
		return e.refuseWithCause(requestID, req.Input, "No relevant documents found", ErrInsufficientRelevance)

	case gate.StatusOK:
		if len(gateResult.Docs) == 0 {
			return e.refuse(requestID, req.Input, "OK status but empty documents (unexpected)")
		}
		return e.finishOK(requestID, req.Input, query, docsOf(gateResult.Docs))

	case gate.StatusAmbiguous:
		var resolution ambiguity.Resolution
		resErr := metrics.ObserveStage("ambiguity", func() error {
			var err error
			resolution, err = ambiguity.Resolve(ctx, scored, query, e.finalK, e.ambiguityCfg)
			return err
		})
		if resErr != nil {
			return e.refuseForBackendError(ctx, requestID, req.Input, "ambiguity-resolution", resErr)
		}

		if resolution.AutoResolved {
			return e.finishOK(requestID, req.Input, query, resolution.Docs)
		}

		switch len(resolution.Options) {
		case 0:
			return e.refuse(requestID, req.Input, "Ambiguous gate produced no valid options")
		case 1:
			return e.finishOK(requestID, req.Input, query, resolution.Options[0].Docs)
		default:
			return e.ambiguous(requestID, req.Input, resolution.Options)
		}

	default:
		return e.refuse(requestID, req.Input, "Unknown status (unexpected)")
	}
}

// refuseForBackendError classifies a backend failure: if ctx was
// cancelled or deadlined, that takes precedence over the stage's own
// error (spec.md §7's Cancelled kind) and never leaks the underlying
// error across the boundary; otherwise it's a generic backend failure
// tagged with the stage that raised it.
func (e *Engine) refuseForBackendError(ctx context.Context, requestID, input, stage string, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return e.refuseWithCause(requestID, input, "Cancelled", ErrCancelled)
	}
	return e.refuseWithCause(requestID, input, "Backend error: "+stage, ErrBackendFailure)
}

// finishOK applies CoverageGate — the only stage that runs after a
// status has already reached ok — and turns a coverage refusal into a
// refuse Outcome rather than letting a worse status slip through.
func (e *Engine) finishOK(requestID, rawInput, query string, docs []doc.Document) Outcome {
	covResult := coverage.Check(query, docs, e.coverageCfg)
	if covResult.Refused {
		return e.refuseWithCause(requestID, rawInput, covResult.Reason, ErrCoverageMissing)
	}
	return e.ok(requestID, rawInput, docs)
}

func docsOf(scored []doc.ScoredDocument) []doc.Document {
	out := make([]doc.Document, len(scored))
	for i, sd := range scored {
		out[i] = sd.Doc
	}
	return out
}

func (e *Engine) ok(requestID, input string, docs []doc.Document) Outcome {
	return Outcome{RequestID: requestID, Input: input, Status: StatusOK, Docs: docs}
}

func (e *Engine) refuse(requestID, input, reason string) Outcome {
	return Outcome{RequestID: requestID, Input: input, Status: StatusRefuse, RefusalReason: reason}
}

// refuseWithCause is like refuse but logs the sentinel error behind the
// refusal kind. The sentinel never reaches Outcome itself — only
// RefusalReason's text crosses the caller boundary (spec.md §7) — it
// exists so operators can grep logs by error kind instead of by the
// human-readable reason string.
func (e *Engine) refuseWithCause(requestID, input, reason string, cause error) Outcome {
	slog.Warn("docqa: refused", "request_id", requestID, "reason", reason, "cause", cause)
	return e.refuse(requestID, input, reason)
}

func (e *Engine) ambiguous(requestID, input string, opts []options.Option) Outcome {
	return Outcome{RequestID: requestID, Input: input, Status: StatusAmbiguous, Options: opts}
}
