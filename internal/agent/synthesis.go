package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/llm"
)

// evolutionSafetyBanner is prepended, verbatim, to every synthesis in
// evolution mode before it is persisted. Code produced by that mode is
// a proposal, and the banner keeps it from being mistaken for an
// applied change.
const evolutionSafetyBanner = "NOTE: Any code or parameter changes below are unapplied suggestions. " +
	"Nothing has been changed in the strategy; review and apply them manually after your own verification."

const synthesisSystemPrompt = "You are the synthesis stage of a multi-agent research workbench. " +
	"Combine the agent reports you are given into one answer to the objective. " +
	"Work only from the reports; do not invent findings they do not contain."

// Per-mode synthesis instructions, chosen by pure lookup on the mode
// tag. Only the agent-outputs listing is shared across modes.
var synthesisInstructions = map[string]string{
	"research": "Synthesize the agents' findings into a single coherent research brief: where they agree, " +
		"where they conflict (resolve the conflict or flag it), and what remains open. " +
		"End with the conclusions best supported by the evidence cited.",
	"evolution": "Synthesize the agents' strategy experiments: rank the proposed changes by the evidence in " +
		"their backtest results, reconcile return findings against risk findings, and recommend " +
		"which change, if any, to adopt.",
	"audit": "Merge the agents' audit findings into one report, deduplicated and ordered by severity. " +
		"Preserve every file and line citation, and note which findings were reported independently " +
		"by more than one auditor.",
	"analysis": "Combine the agents' analyses into one structural overview of the code base, reconciling " +
		"any inconsistencies between their maps and keeping the clearest explanation of each part.",
}

const synthesisDefaultInstructions = "Synthesize the agents' outputs below into one coherent answer to the objective, " +
	"noting agreements, conflicts, and open questions."

// SynthesisResult is the outcome of one synthesis request.
type SynthesisResult struct {
	JobID            string `json:"job_id"`
	Synthesis        string `json:"synthesis"`
	TasksSynthesized int    `json:"tasks_synthesized"`
	TokensUsed       int    `json:"tokens_used"`
	Mode             string `json:"mode"`
	Cached           bool   `json:"cached"`
}

// synthesisMetadata is what SetSynthesis stores alongside the text.
type synthesisMetadata struct {
	TasksSynthesized int       `json:"tasks_synthesized"`
	TokensUsed       int       `json:"tokens_used"`
	Mode             string    `json:"mode"`
	SynthesizedAt    time.Time `json:"synthesized_at"`
}

// SynthesisConfig holds synthesis request parameters.
type SynthesisConfig struct {
	MaxTokens int

	// Tier routes the synthesis call; empty uses the default tier.
	Tier string
}

// Synthesizer combines a job's settled task outputs into one answer.
type Synthesizer struct {
	manager *llm.Manager
	jobs    *repository.JobRepository
	tasks   *repository.TaskRepository
	events  Publisher
	config  SynthesisConfig
}

// NewSynthesizer creates a new synthesizer. events may be nil.
func NewSynthesizer(manager *llm.Manager, jobs *repository.JobRepository, tasks *repository.TaskRepository, events Publisher, config SynthesisConfig) *Synthesizer {
	return &Synthesizer{
		manager: manager,
		jobs:    jobs,
		tasks:   tasks,
		events:  events,
		config:  config,
	}
}

// Synthesize combines the completed tasks of a job. With an existing
// result and force false it returns the cached text without a backend
// call. A job with zero completed, non-empty task outputs fails with
// ErrSynthesisPrecondition, also without a backend call. Success marks
// the job completed. Concurrent force-synthesis is resolved by an
// optimistic version check: the loser of the race returns the winner's
// persisted result instead of overwriting it.
func (s *Synthesizer) Synthesize(ctx context.Context, jobID string, force bool) (*SynthesisResult, error) {
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	if job.SynthesisResult != "" && !force {
		return s.cachedResult(job), nil
	}

	tasks, err := s.tasks.ListCompletedByJobID(job.ID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrSynthesisPrecondition
	}

	provider, model, err := s.manager.Route(s.config.Tier)
	if err != nil {
		return nil, err
	}

	req := &llm.Request{
		Model:       model,
		System:      synthesisSystemPrompt,
		Messages:    []llm.Message{{Role: string(llm.RoleUser), Content: buildSynthesisPrompt(job, tasks)}},
		Temperature: 0.3,
		MaxTokens:   s.config.MaxTokens,
	}

	outcome, err := provider.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	text, ok := outcome.(llm.TextOutcome)
	if !ok {
		return nil, fmt.Errorf("synthesis backend returned tool invocations instead of text")
	}

	synthesis := text.Text
	if job.Mode == "evolution" {
		synthesis = evolutionSafetyBanner + "\n\n" + synthesis
	}

	md := synthesisMetadata{
		TasksSynthesized: len(tasks),
		TokensUsed:       text.Usage.TotalTokens,
		Mode:             job.Mode,
		SynthesizedAt:    time.Now(),
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis metadata: %w", err)
	}

	won, err := s.jobs.SetSynthesis(job.ID, synthesis, string(mdJSON), job.SynthesisVersion)
	if err != nil {
		return nil, err
	}
	if !won {
		// Someone else synthesized this job concurrently; their result
		// is the persisted one, so return it rather than our own.
		current, err := s.jobs.GetByID(job.ID)
		if err != nil {
			return nil, err
		}
		if current == nil || current.SynthesisResult == "" {
			return nil, fmt.Errorf("synthesis race on job %s left no persisted result", job.ID)
		}
		return s.cachedResult(current), nil
	}

	if s.events != nil {
		s.events.Publish(job.SessionID, Event{
			Type:      EventSynthesisComplete,
			JobID:     job.ID,
			Status:    repository.JobStatusCompleted,
			Timestamp: time.Now(),
		})
	}

	return &SynthesisResult{
		JobID:            job.ID,
		Synthesis:        synthesis,
		TasksSynthesized: md.TasksSynthesized,
		TokensUsed:       md.TokensUsed,
		Mode:             job.Mode,
	}, nil
}

func (s *Synthesizer) cachedResult(job *repository.Job) *SynthesisResult {
	var md synthesisMetadata
	if job.SynthesisMetadata != "" {
		if err := json.Unmarshal([]byte(job.SynthesisMetadata), &md); err != nil {
			log.Printf("failed to decode synthesis metadata for job %s: %v", job.ID, err)
		}
	}
	return &SynthesisResult{
		JobID:            job.ID,
		Synthesis:        job.SynthesisResult,
		TasksSynthesized: md.TasksSynthesized,
		TokensUsed:       md.TokensUsed,
		Mode:             job.Mode,
		Cached:           true,
	}
}

// buildSynthesisPrompt embeds the completed task outputs, sorted by
// agent_index ascending, each labeled "Agent i (role)".
func buildSynthesisPrompt(job *repository.Job, tasks []*repository.Task) string {
	instructions, ok := synthesisInstructions[job.Mode]
	if !ok {
		instructions = synthesisDefaultInstructions
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Objective: %s\n\n", job.Objective)
	sb.WriteString(instructions)
	sb.WriteString("\n\nAgent outputs:\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "\n## Agent %d (%s)\n%s\n", t.AgentIndex, t.AgentRole, t.OutputContent)
	}
	return sb.String()
}
