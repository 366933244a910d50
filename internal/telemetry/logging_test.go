package telemetry_test

import (
	"testing"

	"github.com/srujan00123/shiprocket-fulfillment/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "DEBUG", "info", "warn", "error", "", "bogus"} {
		logger, err := telemetry.NewLogger(level, "shiprocket-fulfillment")
		require.NoError(t, err, "level %q", level)
		assert.NotNil(t, logger)
	}
}
