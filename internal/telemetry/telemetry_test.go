// internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "hinlibs"}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewResourceCarriesServiceName(t *testing.T) {
	res := newResource(Config{ServiceName: "hinlibs-test"})

	var name, version string
	for _, kv := range res.Attributes() {
		switch kv.Key {
		case "service.name":
			name = kv.Value.AsString()
		case "service.version":
			version = kv.Value.AsString()
		}
	}
	assert.Equal(t, "hinlibs-test", name)
	assert.Equal(t, "dev", version)
}
