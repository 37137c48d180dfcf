package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/api"
	"github.com/graphscout/graphscout/internal/config"
	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/notify"
	"github.com/graphscout/graphscout/internal/progress"
	"github.com/graphscout/graphscout/internal/snapshot"
	"github.com/graphscout/graphscout/internal/store"
)

// mockApp satisfies the App interface without touching real services.
type mockApp struct {
	cfg     config.Config
	tracker *api.RunTracker
	closed  bool
}

func (m *mockApp) Close(context.Context)           { m.closed = true }
func (m *mockApp) Config() config.Config           { return m.cfg }
func (m *mockApp) GetLogger() *zap.Logger          { return zap.NewNop() }
func (m *mockApp) GetStore() graph.RecordStore     { return store.NoOp{} }
func (m *mockApp) GetSnapshots() snapshot.Provider { return snapshot.NoOpProvider{} }
func (m *mockApp) GetNotifier() notify.Notifier    { return notify.NoOpNotifier{} }
func (m *mockApp) GetHub() *progress.Hub           { return nil }
func (m *mockApp) GetRunTracker() *api.RunTracker  { return m.tracker }

func withMockApp(t *testing.T) *mockApp {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	mock := &mockApp{cfg: cfg, tracker: api.NewRunTracker(0)}

	orig := newApp
	newApp = func(context.Context, config.Config) (App, error) {
		return mock, nil
	}
	t.Cleanup(func() { newApp = orig })
	return mock
}

func TestAnalyzeSiteCommand(t *testing.T) {
	mock := withMockApp(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer srv.Close()

	root := newRootCmd()
	root.SetArgs([]string{"analyze-site", "--host", srv.URL})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.True(t, mock.closed)
}

func TestResolveAppMissing(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
