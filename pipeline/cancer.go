package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/agent"
	"github.com/hupe1980/medflow/logging"
)

const (
	cancerPreviewChars = 1500

	defaultCancerMaxChunks       = 10
	defaultCheckerAttempts       = 3
	defaultCancerChunkContext    = 3
	minExtractedCancerPatterns   = 5
	defaultCancerMaxPatternCount = 20
)

// issueKeywords drive the checker retry loop: the checker reply is scanned
// for these to decide whether the summary needs another pass.
var issueKeywords = []string{"issue", "error", "incorrect", "missing", "fix", "problem"}

// defaultCancerPatterns pad the pattern list when the keyword agent returns
// too few oncology patterns to search with.
var defaultCancerPatterns = []string{
	`cancer|carcinoma|tumor|malignant`,
	`chemotherapy|radiation|oncolog`,
	`stage [IVX]+|T[0-4]N[0-3]M[0-1]`,
	`metasta|progression|remission`,
	`grade [1-4]|poorly differentiated|well differentiated`,
}

// CancerOptions configure NewCancer.
type CancerOptions struct {
	MaxPatterns     int
	MaxChunks       int
	CheckerAttempts int

	Logger logging.Logger
}

// Cancer runs the fixed 12-step oncology pipeline: keyword, grep, chunk,
// temporal tagging, encounter grouping, reconciliation, summary extraction,
// timeline building, a bounded checker loop, unified extraction, unified
// verification and narrative synthesis.
type Cancer struct {
	caller Caller
	opts   CancerOptions
}

// NewCancer creates the oncology pipeline orchestrator.
func NewCancer(caller Caller, optFns ...func(o *CancerOptions)) *Cancer {
	opts := CancerOptions{
		MaxPatterns:     defaultCancerMaxPatternCount,
		MaxChunks:       defaultCancerMaxChunks,
		CheckerAttempts: defaultCheckerAttempts,
		Logger:          logging.NewNoOpLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Cancer{caller: caller, opts: opts}
}

// CancerResult is the pipeline outcome. When a step fails midway, Narrative
// holds the furthest partial result available and Partial is set.
type CancerResult struct {
	Narrative       string
	Partial         bool
	CheckerAttempts int
	Steps           []string
	Elapsed         time.Duration
}

// Run executes the oncology pipeline on a document.
func (p *Cancer) Run(ctx context.Context, document string) (*CancerResult, error) {
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("empty document")
	}

	start := time.Now()
	log := p.opts.Logger
	results := map[string]string{}
	result := &CancerResult{}

	done := func(step, value string) {
		results[step] = value
		result.Steps = append(result.Steps, step)
	}
	partial := func(stepErr error) (*CancerResult, error) {
		log.Error("pipeline step failed", "completed", strings.Join(result.Steps, ","), "error", stepErr)
		result.Elapsed = time.Since(start)
		result.Partial = true

		switch {
		case results["verified"] != "":
			result.Narrative = "Partial results (verified data):\n\n" + results["verified"]
		case results["summary"] != "":
			result.Narrative = "Partial results (summary):\n\n" + results["summary"]
		default:
			return nil, fmt.Errorf("pipeline failed after steps [%s]: %w",
				strings.Join(result.Steps, ", "), stepErr)
		}

		return result, nil
	}

	// Step 1: cancer-focused keyword generation.
	log.Info("step 1: keyword generation")
	patterns := defaultCancerPatterns
	keywordReply, err := p.caller.CallText(ctx, agent.NameKeyword, cancerKeywordPrompt(document))
	if err != nil {
		log.Warn("keyword agent failed, using default cancer patterns", "error", err)
	} else {
		done("keyword", keywordReply.Text)
		patterns = p.cancerPatterns(keywordReply)
	}
	log.Info("patterns ready", "count", len(patterns))

	// Step 2: grep search.
	log.Info("step 2: pattern search")
	grepReply, err := p.caller.CallData(ctx, agent.NameGrep, map[string]any{
		"patterns":         patterns,
		"document_content": document,
		"case_sensitive":   false,
		"focus":            "cancer-related matches",
	})
	if err != nil {
		return partial(err)
	}
	done("grep", grepReply.Text)
	matches := parseMatches(grepReply)
	log.Info("matches found", "count", len(matches))

	// Step 3: context chunks for the top unique matches.
	log.Info("step 3: context extraction")
	unique := dedupeByLine(matches)
	if len(unique) > p.opts.MaxChunks {
		unique = unique[:p.opts.MaxChunks]
	}

	var chunks []string
	for i, m := range unique {
		chunkReply, err := p.caller.CallData(ctx, agent.NameChunk, map[string]any{
			"match_info":       m,
			"document_content": document,
			"context_size":     defaultCancerChunkContext,
			"focus":            "cancer context",
		})
		if err != nil {
			log.Warn("chunk extraction failed", "index", i, "error", err)
			continue
		}
		if chunkReply.Text != "" {
			chunks = append(chunks, chunkReply.Text)
		}
	}
	combined := strings.Join(chunks, "\n\n")
	done("chunks", combined)
	log.Info("chunks extracted", "count", len(chunks))

	// Step 4: temporal tagging.
	log.Info("step 4: temporal extraction")
	temporal, err := p.callText(ctx, agent.NameTemporalTagging, cancerTemporalPrompt(combined))
	if err != nil {
		return partial(err)
	}
	done("temporal", temporal)

	// Step 5: encounter grouping.
	log.Info("step 5: encounter grouping")
	encounters, err := p.callText(ctx, agent.NameEncounterGrouping, newPayload().
		set("temporal_data", temporal).
		set("clinical_content", combined).
		set("focus", "oncology visits and treatments").
		String())
	if err != nil {
		return partial(err)
	}
	done("encounters", encounters)

	// Step 6: reconciliation.
	log.Info("step 6: data reconciliation")
	reconciled, err := p.callText(ctx, agent.NameReconciliation, newPayload().
		set("encounter_groups", encounters).
		set("temporal_data", temporal).
		set("resolve", "conflicting dates and information").
		String())
	if err != nil {
		return partial(err)
	}
	done("reconciled", reconciled)

	// Step 7: structured summary extraction.
	log.Info("step 7: summary extraction")
	summary, err := p.callText(ctx, agent.NameSummaryExtractor, newPayload().
		set("reconciled_data", reconciled).
		set("focus", "cancer diagnosis, staging, treatment, outcomes").
		set("extract", "structured medical summary").
		String())
	if err != nil {
		return partial(err)
	}
	done("summary", summary)

	// Step 8: timeline building.
	log.Info("step 8: timeline construction")
	timeline, err := p.callText(ctx, agent.NameTimelineBuilder, newPayload().
		set("summary", summary).
		set("temporal_data", temporal).
		set("encounters", encounters).
		set("build", "chronological cancer journey").
		String())
	if err != nil {
		return partial(err)
	}
	done("timeline", timeline)

	// Step 9: quality check with bounded retry.
	log.Info("step 9: quality check")
	checked := summary
	for attempt := 1; attempt <= p.opts.CheckerAttempts; attempt++ {
		result.CheckerAttempts = attempt
		log.Info("checker attempt", "attempt", attempt, "max", p.opts.CheckerAttempts)

		checkerReply, err := p.callText(ctx, agent.NameChecker, newPayload().
			set("summary", checked).
			set("timeline", timeline).
			set("original_data", reconciled).
			set("check_for", "accuracy, completeness, consistency").
			String())
		if err != nil {
			return partial(err)
		}

		if !hasIssues(checkerReply) {
			log.Info("checker approved")
			break
		}

		if attempt == p.opts.CheckerAttempts {
			log.Warn("max checker attempts reached, proceeding with current summary")
			break
		}

		log.Info("issues found, requesting summary fixes")
		checked, err = p.callText(ctx, agent.NameSummaryExtractor, newPayload().
			set("original_data", reconciled).
			set("checker_feedback", checkerReply).
			set("instruction", "Please fix the issues identified by the checker").
			set("attempt", attempt).
			String())
		if err != nil {
			return partial(err)
		}
		results["summary"] = checked
	}

	// Step 10: unified entity extraction.
	log.Info("step 10: unified extraction")
	unified, err := p.callText(ctx, agent.NameUnifiedExtractor, newPayload().
		set("summary", checked).
		set("timeline", timeline).
		set("reconciled_data", reconciled).
		set("extract_all", "medications, procedures, diagnoses, labs, imaging").
		String())
	if err != nil {
		return partial(err)
	}
	done("unified", unified)

	// Step 11: final verification.
	log.Info("step 11: final verification")
	verified, err := p.callText(ctx, agent.NameUnifiedVerifier, newPayload().
		set("extracted_data", unified).
		set("original_summary", checked).
		set("timeline", timeline).
		set("verify", "completeness, accuracy, medical validity").
		String())
	if err != nil {
		return partial(err)
	}
	done("verified", verified)

	// Step 12: narrative synthesis.
	log.Info("step 12: narrative synthesis")
	narrative, err := p.callText(ctx, agent.NameNarrativeSynthesis, newPayload().
		set("verified_data", verified).
		set("summary", checked).
		set("timeline", timeline).
		set("synthesize", "comprehensive cancer patient narrative").
		set("focus", "oncology journey from diagnosis to current status").
		String())
	if err != nil {
		return partial(err)
	}

	result.Narrative = narrative
	result.Elapsed = time.Since(start)
	log.Info("pipeline complete",
		"duration", result.Elapsed.String(),
		"checker_attempts", result.CheckerAttempts,
		"narrative_chars", len(narrative))

	return result, nil
}

func (p *Cancer) callText(ctx context.Context, agentName, text string) (string, error) {
	reply, err := p.caller.CallText(ctx, agentName, text)
	if err != nil {
		return "", fmt.Errorf("%s agent: %w", agentName, err)
	}
	return reply.Text, nil
}

// cancerPatterns extracts patterns from the keyword reply and pads with the
// defaults when too few oncology patterns came back.
func (p *Cancer) cancerPatterns(reply *a2a.Reply) []string {
	patterns := ExtractPatterns(reply, p.opts.MaxPatterns)
	if len(patterns) < minExtractedCancerPatterns {
		patterns = append(patterns, defaultCancerPatterns...)
	}
	if len(patterns) > p.opts.MaxPatterns {
		patterns = patterns[:p.opts.MaxPatterns]
	}
	return patterns
}

func hasIssues(checkerResponse string) bool {
	lower := strings.ToLower(checkerResponse)
	for _, word := range issueKeywords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func cancerKeywordPrompt(document string) string {
	return fmt.Sprintf(`Generate comprehensive regex patterns for finding cancer-related information in this medical document:

%s

Focus on:
- Cancer types, stages, grades
- Oncology treatments (chemotherapy, radiation, surgery)
- Tumor markers and genetic mutations
- Metastasis and progression
- Response to treatment
- Side effects and complications

Generate patterns for all cancer-related medical information.`,
		head(document, cancerPreviewChars))
}

func cancerTemporalPrompt(chunks string) string {
	return fmt.Sprintf(`Extract all temporal information from this cancer patient data:

%s

Focus on:
- Diagnosis dates
- Treatment start/end dates
- Follow-up appointments
- Progression timelines
- Remission periods`, chunks)
}
