// Command artifactstream serves and inspects streamed web-page artifacts.
//
// Usage:
//
//	artifactstream serve                      # HTTP API with SSE streaming
//	artifactstream generate -p "a clock"      # one generation, updates on stdout
//	artifactstream recover < response.txt     # recover a document from raw text
//	artifactstream replay response.txt        # stream a saved response through the pipeline
//	curl -N ... | artifactstream replay       # stream stdin as it arrives
//	artifactstream schema --openai            # wire-document JSON Schema
//	artifactstream history                    # recent generations
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "artifactstream",
		Usage:           "stream HTML/CSS/JS artifacts out of LLM responses",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringSliceFlag{Name: "env-file", Usage: "dotenv files to load (default .env)"},
			&cli.StringFlag{Name: "provider", Usage: "gemini, openai or replay"},
			&cli.StringFlag{Name: "model", Usage: "provider model name"},
			&cli.StringFlag{Name: "store", Usage: "SQLite history path"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serveAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "listen address"},
				},
			},
			{
				Name:   "generate",
				Usage:  "run one generation and print field updates",
				Action: generateAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Required: true},
					&cli.StringFlag{Name: "system", Usage: "override the default system prompt"},
					&cli.BoolFlag{Name: "no-save", Usage: "do not record the generation"},
				},
			},
			{
				Name:      "recover",
				Usage:     "recover a document from a complete response",
				ArgsUsage: "[file]",
				Action:    recoverAction,
			},
			{
				Name:      "replay",
				Usage:     "stream a saved response, or stdin as it arrives, through the pipeline",
				ArgsUsage: "[file]",
				Action:    replayAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Usage: "chunk size in bytes"},
					&cli.DurationFlag{Name: "delay", Usage: "pause between chunks"},
				},
			},
			{
				Name:   "schema",
				Usage:  "print the wire-document JSON Schema",
				Action: schemaAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "openai", Usage: "strict-mode form for OpenAI"},
					&cli.BoolFlag{Name: "no-error", Usage: "omit the error property"},
				},
			},
			{
				Name:   "history",
				Usage:  "list recent generations",
				Action: historyAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
			},
		},
	}
}
