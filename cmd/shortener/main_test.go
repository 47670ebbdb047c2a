package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Totarae/shortlinks/internal/config"
	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/repositories"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		cfg    *config.Config
		assert func(t *testing.T, s storage.LinkStore)
	}{
		{
			name: "memory",
			cfg:  &config.Config{Mode: config.ModeMemory},
			assert: func(t *testing.T, s storage.LinkStore) {
				assert.IsType(t, &storage.URLStore{}, s)
			},
		},
		{
			name: "file",
			cfg:  &config.Config{Mode: config.ModeFile, FileStoragePath: filepath.Join(dir, "links.jsonl")},
			assert: func(t *testing.T, s storage.LinkStore) {
				assert.IsType(t, &storage.URLStore{}, s)
				require.NoError(t, s.Create(context.Background(), &model.Link{UserID: "u", OriginalURL: "a.com", ShortURL: "abc"}))
				assert.FileExists(t, filepath.Join(dir, "links.jsonl"))
			},
		},
		{
			name: "sqlite",
			cfg:  &config.Config{Mode: config.ModeSQLite, SQLiteDSN: filepath.Join(dir, "links.db")},
			assert: func(t *testing.T, s storage.LinkStore) {
				assert.IsType(t, &repositories.SQLiteRepository{}, s)
				assert.NoError(t, s.Ping(context.Background()))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openStore(context.Background(), tt.cfg, zap.NewNop())
			require.NoError(t, err)
			defer closeStore()
			tt.assert(t, store)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		ServerAddress: "127.0.0.1:0",
		BaseURL:       "http://localhost",
		GRPCAddress:   "127.0.0.1:0",
		JWTSecret:     "x",
		CodeBytes:     9,
		CodeAttempts:  5,
		QRSize:        64,
		Mode:          config.ModeMemory,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, run(ctx, cfg, zap.NewNop()))
}
