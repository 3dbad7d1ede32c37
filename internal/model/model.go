// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model abstracts the generative-model endpoint used by the
// filter and synthesis stages. The agent depends only on the Model
// interface so tests can supply a deterministic mock.
package model

import "context"

// Model is the capability the pipeline needs from a generative model:
// one prompt in, one text reply out.
type Model interface {
	// Invoke sends a system instruction and a user prompt to the model
	// and returns the text of its reply.
	Invoke(ctx context.Context, system, prompt string) (string, error)
}

// ModelError wraps a transport or authentication failure against the
// model endpoint. It is fatal to a run: unlike schema failures it is
// not recoverable by re-prompting.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return "model: " + e.Err.Error() }

func (e *ModelError) Unwrap() error { return e.Err }
