package triage

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/ai/prompt"
)

// Step is one node of the linear pipeline. Build sees the outputs of every
// earlier step.
type Step struct {
	Name  string
	Build func(symptoms string, prev []domain.StepOutput) domain.Instruction
}

// Pipeline runs its steps in order, one model call each, without retry.
type Pipeline struct {
	Mode  domain.Mode
	Steps []Step
}

// NewPipeline builds the direct (one step) or agents (research then triage) pipeline.
func NewPipeline(mode domain.Mode, lang string, temperature float32) (*Pipeline, error) {
	switch mode {
	case domain.ModeDirect:
		return &Pipeline{Mode: mode, Steps: []Step{{
			Name: "analysis",
			Build: func(symptoms string, _ []domain.StepOutput) domain.Instruction {
				return domain.Instruction{
					Persona:     prompt.Assistant,
					Guidelines:  prompt.Guidelines(lang),
					Prompt:      prompt.UserPrompt(symptoms),
					Temperature: temperature,
				}
			},
		}}}, nil
	case domain.ModeAgents:
		return &Pipeline{Mode: mode, Steps: []Step{
			{
				Name: "research",
				Build: func(symptoms string, _ []domain.StepOutput) domain.Instruction {
					return domain.Instruction{
						Persona:     prompt.Researcher,
						Prompt:      prompt.ResearchPrompt(symptoms),
						Temperature: temperature,
					}
				},
			},
			{
				Name: "triage",
				Build: func(symptoms string, prev []domain.StepOutput) domain.Instruction {
					return domain.Instruction{
						Persona:     prompt.TriageNurse,
						Prompt:      prompt.TriagePrompt(symptoms, prev[len(prev)-1].Output),
						Temperature: temperature,
					}
				},
			},
		}}, nil
	default:
		return nil, domain.ErrInvalidMode
	}
}

// Run executes every step in sequence. The first failure aborts the run and
// no partial output is returned.
func (p *Pipeline) Run(ctx context.Context, m domain.Model, symptoms string) ([]domain.StepOutput, error) {
	out := make([]domain.StepOutput, 0, len(p.Steps))
	for _, s := range p.Steps {
		text, err := m.Complete(ctx, s.Build(symptoms, out))
		if err != nil {
			return nil, fmt.Errorf("%s step: %w", s.Name, err)
		}
		out = append(out, domain.StepOutput{Step: s.Name, Output: text})
	}
	return out, nil
}

// Combine joins step outputs into the analysis text.
func Combine(steps []domain.StepOutput) string {
	if len(steps) == 1 {
		return steps[0].Output
	}
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", titleCase(s.Step), strings.TrimSpace(s.Output)))
	}
	return strings.Join(parts, "\n\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
