package cli

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("GENERATION_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("PRESETS_FILE", "")
	t.Setenv("LOG_FILE", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		askPreset = ""
		consolePlain = false
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestPresetsCommand(t *testing.T) {
	out, err := execute(t, "presets")
	require.NoError(t, err)

	assert.Contains(t, out, "wsod")
	assert.Contains(t, out, "White Screen of Death")
	assert.Contains(t, out, "https://wordpress.org/support/")
}

func TestAskRequiresQuestion(t *testing.T) {
	_, err := execute(t, "ask")
	assert.EqualError(t, err, "a question or --preset is required")
}

func TestAskRequiresCredentials(t *testing.T) {
	_, err := execute(t, "ask", "site is blank")
	assert.ErrorContains(t, err, "credentials not configured")
}

func TestConsoleRequiresCredentials(t *testing.T) {
	_, err := execute(t, "console", "--plain")
	assert.Error(t, err)
}
