package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ligacli/internal/config"
)

func testImportConfig() config.ImportConfig {
	return config.ImportConfig{
		RemoteBaseURL:  "http://localhost:9090",
		MaxUploadBytes: 1 << 20,
		SessionTTL:     time.Hour,
	}
}

func TestNewImportService(t *testing.T) {
	_, err := NewImportService(config.ImportConfig{}, nil, nil)
	require.Error(t, err)

	svc, err := NewImportService(testImportConfig(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc.Executor())
	assert.NotNil(t, svc.Registry())
	assert.Equal(t, int64(1<<20), svc.MaxUploadBytes())
}

func TestSessionLifecycle(t *testing.T) {
	svc, err := NewImportService(testImportConfig(), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	id, wizard := svc.CreateSession(ctx)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, wizard.Session().ID())
	assert.Equal(t, 1, svc.SessionCount())

	got, ok := svc.Wizard(id)
	require.True(t, ok)
	assert.Same(t, wizard, got)

	_, ok = svc.Wizard("no-such-session")
	assert.False(t, ok)

	assert.True(t, svc.DropSession(ctx, id))
	assert.False(t, svc.DropSession(ctx, id))
	assert.Equal(t, 0, svc.SessionCount())
}

func TestReapIdleDropsOnlyExpiredSessions(t *testing.T) {
	cfg := testImportConfig()
	cfg.SessionTTL = 50 * time.Millisecond
	svc, err := NewImportService(cfg, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	oldID, _ := svc.CreateSession(ctx)
	time.Sleep(80 * time.Millisecond)
	freshID, _ := svc.CreateSession(ctx)

	svc.reapIdle(ctx)

	_, ok := svc.Wizard(oldID)
	assert.False(t, ok)
	_, ok = svc.Wizard(freshID)
	assert.True(t, ok)
}
