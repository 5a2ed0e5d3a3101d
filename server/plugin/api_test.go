package plugin

import (
	"context"
	"testing"
)

func TestAPIContextReplacesBackground(t *testing.T) {
	t.Parallel()

	api := newAPI(nil, testHost{}, "ctx")
	if err := api.Context().Err(); err != nil {
		t.Fatalf("initial context error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	api.setContext(ctx)
	if api.Context() != ctx {
		t.Fatalf("Context() did not return the context that was set")
	}
	cancel()
	if api.Context().Err() == nil {
		t.Fatalf("Context() not cancelled")
	}

	api.setContext(nil)
	if api.Context() == nil || api.Context().Err() != nil {
		t.Fatalf("setContext(nil) did not fall back to a background context")
	}
}

func TestManagerEnableStaticProvidesCancellableContext(t *testing.T) {
	t.Parallel()

	manager := NewManager(testHost{}, Config{Enabled: true, Directory: t.TempDir()})
	var got context.Context
	manager.Register("Context", func(api *API) (Plugin, error) {
		got = api.Context()
		return newClosingPlugin("Context"), nil
	})

	if _, err := manager.EnableStatic("Context"); err != nil {
		t.Fatalf("EnableStatic() error = %v", err)
	}
	if got == nil || got.Err() != nil {
		t.Fatalf("factory context = %v, want a live context", got)
	}
	if _, err := manager.Disable("Context"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if got.Err() == nil {
		t.Fatalf("context not cancelled after Disable")
	}
}
