package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/wordmaster/internal"
	"github.com/starford/wordmaster/internal/importer"
	"github.com/starford/wordmaster/internal/session"
	pkgconfig "github.com/starford/wordmaster/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

// withSession runs fn against the opened word store.
func withSession(cmd *cli.Command, fn func(*internal.Session) error) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if w := cmd.Root().ErrWriter; w != nil {
		opts = append(opts, internal.WithLogOutput(w))
	}
	sess, err := internal.Open(opts...)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

func runStudy(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Study(ctx, opts...)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func runImport(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: import FILE")
	}
	text, err := importer.ReadFile(path)
	if err != nil {
		return err
	}
	return withSession(cmd, func(sess *internal.Session) error {
		_, n, err := sess.Import(text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Root().Writer, "imported %d words\n", n)
		return nil
	})
}

func runList(_ context.Context, cmd *cli.Command) error {
	filter := session.FilterAll
	if cmd.Bool("unknown") {
		filter = session.FilterUnknown
	}
	return withSession(cmd, func(sess *internal.Session) error {
		for _, w := range session.Apply(sess.Store().Words(), filter) {
			fmt.Fprintf(cmd.Root().Writer, "%s\t%s\t%s\n", w.Status, w.Term, w.Definition)
		}
		return nil
	})
}

func runStats(_ context.Context, cmd *cli.Command) error {
	return withSession(cmd, func(sess *internal.Session) error {
		st := sess.Store().Stats()
		fmt.Fprintf(cmd.Root().Writer, "total %d\nfamiliar %d\nunknown %d\nunrated %d\n",
			st.Total, st.Familiar, st.Unknown, st.Unrated)
		return nil
	})
}

func runShuffle(_ context.Context, cmd *cli.Command) error {
	return withSession(cmd, func(sess *internal.Session) error {
		_, err := sess.Shuffle()
		return err
	})
}

// confirm asks question on the command's reader unless --yes was given.
func confirm(cmd *cli.Command, question string) bool {
	if cmd.Bool("yes") {
		return true
	}
	fmt.Fprintf(cmd.Root().Writer, "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.Root().Reader).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runReset(_ context.Context, cmd *cli.Command) error {
	if !confirm(cmd, "Mark every word unknown?") {
		fmt.Fprintln(cmd.Root().Writer, "cancelled")
		return nil
	}
	return withSession(cmd, func(sess *internal.Session) error {
		_, err := sess.ResetProgress()
		return err
	})
}

func runClear(_ context.Context, cmd *cli.Command) error {
	if !confirm(cmd, "Delete all words? This cannot be undone.") {
		fmt.Fprintln(cmd.Root().Writer, "cancelled")
		return nil
	}
	return withSession(cmd, func(sess *internal.Session) error {
		_, err := sess.Clear()
		return err
	})
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Do not ask for confirmation",
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "wordmaster",
		Usage:  "Study vocabulary with flashcards, dictation and word lists",
		Action: runStudy,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "study",
				Usage:  "Open the terminal study view (default)",
				Action: runStudy,
			},
			{
				Name:      "import",
				Usage:     "Replace all words with the contents of a term;definition file",
				ArgsUsage: "FILE",
				Action:    runImport,
			},
			{
				Name:  "list",
				Usage: "Print words in collection order",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "unknown", Aliases: []string{"u"}, Usage: "Only words not yet familiar"},
				},
				Action: runList,
			},
			{
				Name:   "stats",
				Usage:  "Count words per status",
				Action: runStats,
			},
			{
				Name:   "shuffle",
				Usage:  "Shuffle the collection order",
				Action: runShuffle,
			},
			{
				Name:   "reset",
				Usage:  "Mark every word unknown",
				Flags:  []cli.Flag{yesFlag()},
				Action: runReset,
			},
			{
				Name:   "clear",
				Usage:  "Delete all words and the saved data",
				Flags:  []cli.Flag{yesFlag()},
				Action: runClear,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with a server-sent event stream",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMCP,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
