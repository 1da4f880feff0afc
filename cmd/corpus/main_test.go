package main

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// testApp builds a minimal app carrying the global flags the command
// actions read.
func testApp(commands ...*cli.Command) *cli.App {
	return &cli.App{
		Name: "corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Value:   "./corpus_db",
			},
			&cli.StringFlag{
				Name:  "ai-host",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:  "classifier-model",
				Value: "qwen2.5:3b",
			},
		},
		Commands: commands,
	}
}

func TestAddCommandRequiresURL(t *testing.T) {
	app := testApp(&cli.Command{
		Name:   "add",
		Action: addCommand,
		Flags:  ingestFlags(),
	})

	err := app.Run([]string{"corpus", "--db", t.TempDir(), "add"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL argument is required")
}

func TestDeleteCommand(t *testing.T) {
	app := testApp(&cli.Command{
		Name:   "delete",
		Action: deleteCommand,
	})

	t.Run("requires a URL", func(t *testing.T) {
		err := app.Run([]string{"corpus", "--db", t.TempDir(), "delete"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "URL argument is required")
	})

	t.Run("empty database removes nothing", func(t *testing.T) {
		err := app.Run([]string{"corpus", "--db", t.TempDir(), "delete", "https://example.com/doc"})
		require.NoError(t, err)
	})
}

func TestStatsCommandEmptyDatabase(t *testing.T) {
	app := testApp(&cli.Command{
		Name:   "stats",
		Action: statsCommand,
	})

	err := app.Run([]string{"corpus", "--db", t.TempDir(), "stats"})
	require.NoError(t, err)
}

func TestApproveCommandRequiresIDs(t *testing.T) {
	app := testApp(&cli.Command{
		Name:   "reject",
		Action: rejectCommand,
		Flags:  approvalFlags(),
	})

	err := app.Run([]string{"corpus", "--db", t.TempDir(), "reject"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no item ids")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short text", 50))
	assert.Equal(t, "col lapsed", snippet("col\n\nlapsed", 50))
	assert.Equal(t, "abcde...", snippet("abcdefghij", 5))
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		testCases := []string{
			"DEBUG",
			"Info",
			"WaRn",
			"ERROR",
		}

		for _, tc := range testCases {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
		assert.Contains(t, err.Error(), "invalid")
	})

	t.Run("default log level is info", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				level := c.String("log-level")
				assert.Equal(t, "info", level)
				return nil
			},
		}

		err := app.Run([]string{"test"})
		require.NoError(t, err)
	})
}

func TestMain(m *testing.M) {
	// Run tests
	code := m.Run()
	os.Exit(code)
}
