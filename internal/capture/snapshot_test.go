package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{URL: "http://127.0.0.1:8080/", OutputPath: "out/preview.png"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultReadySelect, o.ReadySelector)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

func TestSnapshotValidatesBeforeLaunch(t *testing.T) {
	assert.Error(t, Snapshot(context.Background(), Options{OutputPath: "x.png"}))
	assert.Error(t, Snapshot(context.Background(), Options{URL: "http://localhost/"}))
}
