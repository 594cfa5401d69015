package utils

import (
	"context"
	"strings"
	"sync"
)

// FakeResponse is the canned result of one fake invocation.
type FakeResponse struct {
	Out string
	Err error
}

// FakeRunner answers commands from a table keyed by the joined command line
// and records every call. Unknown commands behave like a missing tool.
type FakeRunner struct {
	mu        sync.Mutex
	Responses map[string]FakeResponse
	Calls     []string
}

func NewFakeRunner(responses map[string]FakeResponse) *FakeRunner {
	if responses == nil {
		responses = map[string]FakeResponse{}
	}
	return &FakeRunner{Responses: responses}
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	f.Calls = append(f.Calls, line)
	resp, ok := f.Responses[line]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrToolNotFound
	}
	return []byte(resp.Out), resp.Err
}

func (f *FakeRunner) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}
