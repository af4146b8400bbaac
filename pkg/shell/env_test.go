package shell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaceEnvVars(t *testing.T) {
	t.Setenv("GENCAM_TEST_DEV", "/dev/video2")

	require.Equal(t, "device: /dev/video2", ReplaceEnvVars("device: ${GENCAM_TEST_DEV}"))
	require.Equal(t, "device: /dev/video0", ReplaceEnvVars("device: ${GENCAM_TEST_MISSING:/dev/video0}"))
	require.Equal(t, "device: ${GENCAM_TEST_MISSING}", ReplaceEnvVars("device: ${GENCAM_TEST_MISSING}"))
}
