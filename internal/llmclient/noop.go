package llmclient

import "context"

// NoopClient is a Client with no backend behind it (spec §6.7:
// "optional"). Every call fails with ErrUnavailable so callers take the
// same degrade path as a real backend error, without a separate nil
// check.
type NoopClient struct{}

func (NoopClient) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (NoopClient) Chat(context.Context, string, []Message) (string, error) {
	return "", ErrUnavailable
}
