package resource

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/sandbox"
)

// env is a controller setup backed by the in-memory sandbox.
type env struct {
	sandbox  *sandbox.Server
	client   *api.Client
	registry *Registry
	notes    *notify.Channel
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sb, err := sandbox.New(sandbox.Config{})
	require.NoError(t, err)
	ts := httptest.NewServer(sb.Handler())
	t.Cleanup(ts.Close)

	client, err := api.NewClient(api.Config{BaseURL: ts.URL, Logger: log.Discard()})
	require.NoError(t, err)
	token, err := sb.IssueToken(sandbox.DefaultAdminEmail)
	require.NoError(t, err)
	client.SetToken(token)

	return &env{
		sandbox:  sb,
		client:   client,
		registry: NewRegistry(RegistryOptions{ContactURL: ts.URL + "/contact"}),
		notes:    notify.NewChannel(0),
	}
}

func (e *env) controller(t *testing.T, kind string) *Controller {
	t.Helper()
	return NewController(e.registry.MustLookup(kind), e.options(e.client))
}

func (e *env) options(c Client) Options {
	return Options{Client: c, Notifier: e.notes, Logger: log.Discard()}
}

// spyClient wraps a Client and runs beforeGet ahead of every GET.
type spyClient struct {
	Client
	beforeGet func(path string)
}

func (s *spyClient) Get(ctx context.Context, path string, out any, opts ...api.RequestOption) error {
	if s.beforeGet != nil {
		s.beforeGet(path)
	}
	return s.Client.Get(ctx, path, out, opts...)
}

// blockingClient holds every call until release is closed.
type blockingClient struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	body    string
	err     error
}

func newBlockingClient(body string) *blockingClient {
	return &blockingClient{started: make(chan struct{}), release: make(chan struct{}), body: body}
}

func (b *blockingClient) wait(ctx context.Context) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingClient) Get(ctx context.Context, _ string, out any, _ ...api.RequestOption) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = json.RawMessage(b.body)
	}
	return nil
}

func (b *blockingClient) Post(ctx context.Context, _ string, _, _ any, _ ...api.RequestOption) error {
	return b.wait(ctx)
}

func (b *blockingClient) Put(ctx context.Context, _ string, _, _ any, _ ...api.RequestOption) error {
	return b.wait(ctx)
}

func (b *blockingClient) Delete(ctx context.Context, _ string, _ any, _ ...api.RequestOption) error {
	return b.wait(ctx)
}
