package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kakehashi/pkg/cli/config"
)

func TestLoggerConfigure(t *testing.T) {
	t.Run("defaults are accepted", func(t *testing.T) {
		cfg := config.NewLoggerForTest("info", "console", "stdout")

		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("json format is accepted", func(t *testing.T) {
		cfg := config.NewLoggerForTest("debug", "json", "stderr")

		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		cfg := config.NewLoggerForTest("loud", "console", "stdout")

		_, err := cfg.Configure()
		gt.Error(t, err)
	})

	t.Run("invalid format is rejected", func(t *testing.T) {
		cfg := config.NewLoggerForTest("info", "xml", "stdout")

		_, err := cfg.Configure()
		gt.Error(t, err)
	})
}
