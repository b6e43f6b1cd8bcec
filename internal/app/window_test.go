package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"essaim.dev/depthbasics/depth"
)

func TestConfigViewerOptions(t *testing.T) {
	assert.Len(t, Config{Mode: depth.ModeScaled}.ViewerOptions(), 1)
	assert.Len(t, Config{EveryFrame: true, PointCloud: "cloud.pcd"}.ViewerOptions(), 2)
}
