package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/llm"
)

type synthesisEnv struct {
	synth  *Synthesizer
	jobs   *repository.JobRepository
	tasks  *repository.TaskRepository
	events *capturePublisher
}

func newSynthesisEnv(t *testing.T, provider llm.Provider) *synthesisEnv {
	t.Helper()

	db := newTestDB(t)
	jobs := repository.NewJobRepository(db.DB)
	tasks := repository.NewTaskRepository(db.DB)

	mgr := llm.NewManager(map[string]llm.TierRoute{
		"balanced": {Provider: "fake", Model: "fake-model"},
	}, "balanced")
	mgr.RegisterProvider(provider)

	events := &capturePublisher{}
	return &synthesisEnv{
		synth:  NewSynthesizer(mgr, jobs, tasks, events, SynthesisConfig{MaxTokens: 2048}),
		jobs:   jobs,
		tasks:  tasks,
		events: events,
	}
}

// seedJob creates a job whose tasks completed with the given outputs.
func seedJob(t *testing.T, env *synthesisEnv, mode string, outputs ...string) *repository.Job {
	t.Helper()
	job, err := env.jobs.Create("sess-1", "default", "what moves the market?", mode, len(outputs))
	require.NoError(t, err)
	for i, output := range outputs {
		task, err := env.tasks.Create(job.ID, "agent", i, "prompt")
		require.NoError(t, err)
		require.NoError(t, env.tasks.Complete(task.ID, output, 10))
	}
	return job
}

func TestSynthesizeCombinesCompletedTasks(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "the combined view", Usage: llm.Usage{TotalTokens: 42}}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "research", "finding A", "finding B", "finding C")

	res, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	assert.Equal(t, job.ID, res.JobID)
	assert.Equal(t, "the combined view", res.Synthesis)
	assert.Equal(t, 3, res.TasksSynthesized)
	assert.Equal(t, 42, res.TokensUsed)
	assert.Equal(t, "research", res.Mode)
	assert.False(t, res.Cached)

	stored, err := env.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.JobStatusCompleted, stored.Status)
	assert.Equal(t, "the combined view", stored.SynthesisResult)
	assert.Equal(t, 1, stored.SynthesisVersion)
}

func TestSynthesizePromptOrdersByAgentIndex(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "ok"}},
	}}
	env := newSynthesisEnv(t, provider)

	// Created out of order on purpose: indices 2, 0, 1.
	job, err := env.jobs.Create("sess-1", "default", "objective", "research", 3)
	require.NoError(t, err)
	for _, seed := range []struct {
		index  int
		role   string
		output string
	}{
		{2, "late", "out-two"},
		{0, "early", "out-zero"},
		{1, "middle", "out-one"},
	} {
		task, err := env.tasks.Create(job.ID, seed.role, seed.index, "p")
		require.NoError(t, err)
		require.NoError(t, env.tasks.Complete(task.ID, seed.output, 1))
	}

	_, err = env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	prompt := provider.request(0).Messages[0].Content
	zero := strings.Index(prompt, "## Agent 0 (early)\nout-zero")
	one := strings.Index(prompt, "## Agent 1 (middle)\nout-one")
	two := strings.Index(prompt, "## Agent 2 (late)\nout-two")
	require.NotEqual(t, -1, zero)
	require.NotEqual(t, -1, one)
	require.NotEqual(t, -1, two)
	assert.Less(t, zero, one)
	assert.Less(t, one, two)
}

func TestSynthesizeCachedResultSkipsBackend(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "first synthesis", Usage: llm.Usage{TotalTokens: 20}}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "research", "finding")

	first, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, "first synthesis", second.Synthesis)
	assert.Equal(t, first.TasksSynthesized, second.TasksSynthesized)
	assert.Equal(t, first.TokensUsed, second.TokensUsed)
	assert.Equal(t, 1, provider.callCount(), "a cached result must not call the backend")
}

func TestSynthesizeForceCallsBackendAgain(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "first"}},
		{outcome: llm.TextOutcome{Text: "second"}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "research", "finding")

	_, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	res, err := env.synth.Synthesize(context.Background(), job.ID, true)
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, "second", res.Synthesis)
	assert.Equal(t, 2, provider.callCount())

	stored, err := env.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", stored.SynthesisResult)
	assert.Equal(t, 2, stored.SynthesisVersion)
}

func TestSynthesizePreconditionWithoutBackendCall(t *testing.T) {
	provider := &fakeProvider{}
	env := newSynthesisEnv(t, provider)

	job, err := env.jobs.Create("sess-1", "default", "objective", "research", 2)
	require.NoError(t, err)
	// One task still pending, one failed: nothing synthesizable.
	_, err = env.tasks.Create(job.ID, "a", 0, "p")
	require.NoError(t, err)
	failing, err := env.tasks.Create(job.ID, "b", 1, "p")
	require.NoError(t, err)
	require.NoError(t, env.tasks.Fail(failing.ID, "boom"))

	_, err = env.synth.Synthesize(context.Background(), job.ID, false)
	assert.ErrorIs(t, err, ErrSynthesisPrecondition)
	assert.Equal(t, 0, provider.callCount())
}

func TestSynthesizeSkipsEmptyOutputs(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "ok"}},
	}}
	env := newSynthesisEnv(t, provider)

	job, err := env.jobs.Create("sess-1", "default", "objective", "research", 2)
	require.NoError(t, err)
	good, err := env.tasks.Create(job.ID, "good", 0, "p")
	require.NoError(t, err)
	require.NoError(t, env.tasks.Complete(good.ID, "real output", 5))
	empty, err := env.tasks.Create(job.ID, "empty", 1, "p")
	require.NoError(t, err)
	require.NoError(t, env.tasks.Complete(empty.ID, "", 5))

	res, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TasksSynthesized)
}

func TestSynthesizeJobNotFound(t *testing.T) {
	env := newSynthesisEnv(t, &fakeProvider{})

	_, err := env.synth.Synthesize(context.Background(), "11111111-2222-3333-4444-555555555555", false)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSynthesizeEvolutionBanner(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "raise the lookback to 40"}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "evolution", "experiment result")

	res, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Synthesis,
		"NOTE: Any code or parameter changes below are unapplied suggestions."),
		"evolution synthesis must lead with the safety banner")
	assert.Contains(t, res.Synthesis, "raise the lookback to 40")

	stored, err := env.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.SynthesisResult, "NOTE:"),
		"the banner is part of the persisted text")
}

func TestSynthesizeNoBannerOutsideEvolution(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "plain brief"}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "research", "finding")

	res, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "plain brief", res.Synthesis)
}

func TestSynthesizeModeInstructionSelection(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "ok"}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "audit", "finding")

	_, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	prompt := provider.request(0).Messages[0].Content
	assert.Contains(t, prompt, "Objective: what moves the market?")
	assert.Contains(t, prompt, "ordered by severity", "audit mode picks the audit instructions")
}

func TestSynthesizeUnknownModeFallsBack(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "ok"}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "bespoke-mode", "finding")

	_, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	prompt := provider.request(0).Messages[0].Content
	assert.Contains(t, prompt, "noting agreements, conflicts, and open questions")
}

func TestSynthesizeBackendToolOutcomeRejected(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.ToolCallOutcome{Invocations: []llm.ToolCall{{ID: "c1", Name: "x"}}}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "research", "finding")

	_, err := env.synth.Synthesize(context.Background(), job.ID, false)
	assert.ErrorContains(t, err, "tool invocations instead of text")
}

func TestSynthesizeRaceLoserReturnsWinner(t *testing.T) {
	env := newSynthesisEnv(t, &fakeProvider{})
	job := seedJob(t, env, "research", "finding")

	// The backend call lands after a competing writer has already
	// persisted its synthesis, so our version check must lose.
	provider := &fakeProvider{respond: func(*llm.Request) (llm.Outcome, error) {
		won, err := env.jobs.SetSynthesis(job.ID, "winner text", `{"tasks_synthesized":1,"tokens_used":9}`, 0)
		require.NoError(t, err)
		require.True(t, won)
		return llm.TextOutcome{Text: "loser text"}, nil
	}}
	mgr := llm.NewManager(map[string]llm.TierRoute{
		"balanced": {Provider: "fake", Model: "fake-model"},
	}, "balanced")
	mgr.RegisterProvider(provider)
	env.synth = NewSynthesizer(mgr, env.jobs, env.tasks, env.events, SynthesisConfig{MaxTokens: 2048})

	res, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, "winner text", res.Synthesis)
	assert.Equal(t, 9, res.TokensUsed)

	stored, err := env.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "winner text", stored.SynthesisResult, "the loser must not overwrite")
}

func TestSynthesizePublishesCompletionEvent(t *testing.T) {
	provider := &fakeProvider{script: []providerStep{
		{outcome: llm.TextOutcome{Text: "done"}},
	}}
	env := newSynthesisEnv(t, provider)
	job := seedJob(t, env, "research", "finding")

	_, err := env.synth.Synthesize(context.Background(), job.ID, false)
	require.NoError(t, err)

	events := env.events.byType(EventSynthesisComplete)
	require.Len(t, events, 1)
	assert.Equal(t, job.ID, events[0].JobID)
	assert.Equal(t, repository.JobStatusCompleted, events[0].Status)
}
