package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineconfig "feedpipe/internal/config"
)

func TestNew_WiresEveryComponent(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := pipelineconfig.DefaultPipelineConfig()
	p, err := New(db, cfg)
	require.NoError(t, err)

	assert.NotNil(t, p.Feeds)
	assert.NotNil(t, p.Items)
	assert.NotNil(t, p.FetchLogs)
	assert.NotNil(t, p.ReadStates)
	assert.NotNil(t, p.Categories)
	assert.NotNil(t, p.Committer)
	assert.NotNil(t, p.Jobs)
	assert.NotNil(t, p.Events)
	assert.NotNil(t, p.Scheduler)
	assert.NotNil(t, p.Consumers)
	assert.NotNil(t, p.Control)
}

func TestNew_RejectsUnknownExtractionEngine(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := pipelineconfig.DefaultPipelineConfig()
	cfg.ExtractionEngine = "boilerpipe"
	_, err = New(db, cfg)
	assert.Error(t, err)
}

func TestStartShutdown_DrainsPromptly(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := pipelineconfig.DefaultPipelineConfig()
	cfg.ExtractionEngine = "none"
	cfg.ShutdownDrain = 2 * time.Second
	p, err := New(db, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return after cancellation")
	}
}
