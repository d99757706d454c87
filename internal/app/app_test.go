package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/domain"
)

func TestNew_RequiresPlatformApplication(t *testing.T) {
	cfg := &config.Config{AWSRegion: "ap-southeast-1", SNSRegion: "ap-southeast-1"}

	a, err := New(context.Background(), cfg, zap.NewNop(), Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Nil(t, a)
}
