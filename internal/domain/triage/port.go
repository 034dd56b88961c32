package triage

import "context"

// Model is the model-invocation channel.
type Model interface {
	Complete(ctx context.Context, in Instruction) (string, error)
	Name() string
}

// ModelFactory builds a Model bound to one credential.
type ModelFactory func(apiKey string) (Model, error)

// CredentialSource looks up a named secret.
type CredentialSource interface {
	Lookup(name string) (string, bool)
}

// ReportStore archives rendered reports and returns their location.
type ReportStore interface {
	PutReport(ctx context.Context, r *AnalysisResult) (string, error)
}
