package cli_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/norikmb/nifcloud-sdk-go/internal/cli"
	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
	"github.com/stretchr/testify/assert"
)

//nolint:tparallel // Tests change the global default logger.
func TestSetVerbosity(t *testing.T) {
	tests := map[string]struct {
		pattern []int
	}{
		"info":            {pattern: []int{1}},
		"none":            {pattern: []int{0}},
		"info none":       {pattern: []int{1, 0}},
		"info debug":      {pattern: []int{1, 2}},
		"info debug none": {pattern: []int{1, 2, 0}},
		"debug":           {pattern: []int{2}},
		"above debug":     {pattern: []int{5}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for _, p := range tc.pattern {
				cli.SetVerbosity(p)

				switch p {
				case 0:
					assert.True(t, slog.Default().Enabled(context.Background(), constants.DefaultLogLevel))
					assert.False(t, slog.Default().Enabled(context.Background(), constants.DefaultLogLevel-1))
				case 1:
					assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
					assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo-1))
				default:
					assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
					assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug-1))
				}
			}
		})
	}
	cli.SetVerbosity(0)
}
