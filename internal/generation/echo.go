package generation

import "context"

// EchoGenerator answers with the rendered prompt. It needs no network access
// and is used offline and in tests.
type EchoGenerator struct{}

// Generate returns the rendered prompt.
func (EchoGenerator) Generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Render(template, vars), nil
}
