package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwtly10/jscc"
	jcli "github.com/jwtly10/jscc/internal/cli"
	"github.com/jwtly10/jscc/internal/config"
	"github.com/jwtly10/jscc/internal/selector"
	"github.com/jwtly10/jscc/internal/transformer"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "jscc",
		Usage:   "Conditional comments and compile-time variables for JavaScript and friends",
		Version: version,
		Flags:   commonFlags(),
		// Values are JSON, which has commas of its own.
		DisableSliceFlagSeparator: true,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "print",
				Usage:     "Process a file and write the result to stdout",
				ArgsUsage: "<file | ->",
				Action:    printAction,
			},
			{
				Name:      "build",
				Usage:     "Process a file or every selected file under a directory",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "shared", Usage: "Share variables across files, processing them in order"},
					&cli.BoolFlag{Name: "line-map", Usage: "Write <output>.map.json line maps"},
				},
				Action: buildAction,
			},
			{
				Name:      "tangle",
				Usage:     "Extract and process the JavaScript blocks of a markdown file",
				ArgsUsage: "<file.md>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "line-map", Usage: "Write <output>.map.json line maps"},
				},
				Action: tangleAction,
			},
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "Config file (default: nearest " + config.FileName + ")"},
		&cli.StringSliceFlag{Name: "value", Aliases: []string{"D"}, Usage: "Set a variable, NAME=VALUE with VALUE as JSON or YAML"},
		&cli.StringFlag{Name: "values", Usage: "YAML file of variables"},
		&cli.StringSliceFlag{Name: "prefix", Usage: "Comment prefix that introduces directives (default: // and /*)"},
		&cli.BoolFlag{Name: "keep-lines", Usage: "Keep dropped lines as empty lines"},
		&cli.StringSliceFlag{Name: "ext", Usage: "File extensions to process (default: js, jsx, tag; * for all)"},
		&cli.StringSliceFlag{Name: "include", Usage: "Only process paths matching these globs"},
		&cli.StringSliceFlag{Name: "exclude", Usage: "Skip paths matching these globs"},
		&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Usage: "Write outputs under this directory"},
		&cli.StringFlag{Name: "root", Usage: "Directory _FILE and --out-dir paths are relative to (default: working directory)"},
		&cli.BoolFlag{Name: "no-backup", Usage: "Do not back up outputs before overwriting them"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
	}
}

// settings is the merged result of the config file and the flags.
type settings struct {
	engine    jscc.Options
	selector  selector.Options
	transform transformer.TransformOptions
}

func loadSettings(cmd *cli.Command, target string) (*settings, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		dir := target
		if info, statErr := os.Stat(target); statErr != nil || !info.IsDir() {
			dir = filepath.Dir(target)
		}
		cfg, err = config.Find(dir)
	}
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if path := cmd.String("values"); path != "" {
		if values, err = config.LoadValues(path); err != nil {
			return nil, err
		}
	}
	for _, raw := range cmd.StringSlice("value") {
		name, v, err := config.ParseValue(raw)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}

	s := &settings{
		engine: jscc.Options{
			Values:    cfg.Merge(values),
			Prefixes:  firstNonEmpty(cmd.StringSlice("prefix"), cfg.Prefixes),
			KeepLines: cmd.Bool("keep-lines") || cfg.KeepLines,
			Root:      cmd.String("root"),
		},
		selector: selector.Options{
			Extensions: splitList(firstNonEmpty(cmd.StringSlice("ext"), cfg.Extensions)),
			Include:    firstNonEmpty(cmd.StringSlice("include"), cfg.Include),
			Exclude:    firstNonEmpty(cmd.StringSlice("exclude"), cfg.Exclude),
		},
	}
	if s.engine.Root == "" && cfg.Path != "" {
		s.engine.Root = filepath.Dir(cfg.Path)
	}
	s.selector.Root = s.engine.Root

	outDir := cmd.String("out-dir")
	if outDir == "" && cfg.OutDir != "" {
		outDir = filepath.Join(filepath.Dir(cfg.Path), cfg.OutDir)
	}
	s.transform = transformer.TransformOptions{
		Engine:       s.engine,
		NoBackup:     cmd.Bool("no-backup") || !cfg.BackupEnabled(),
		OutDir:       outDir,
		WriteLineMap: cmd.Bool("line-map"),
	}

	slog.Debug("loaded settings", "config", cfg.Path, "options", s.engine.Pretty(), "transform", s.transform.Pretty())
	return s, nil
}

func firstNonEmpty(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

// splitList accepts both repeated flags and comma separated lists.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func printAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: jscc print <file | ->")
	}
	target := cmd.Args().First()

	var (
		src  []byte
		err  error
		name = target
	)
	if target == "-" {
		name = "<stdin>"
		src, err = io.ReadAll(cmd.Root().Reader)
		target = "."
	} else {
		src, err = os.ReadFile(target)
	}
	if err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	s, err := loadSettings(cmd, target)
	if err != nil {
		return err
	}

	var res *jscc.Result
	if jscc.IsMarkdown(name) {
		doc, err := jscc.NewParser().ParseMarkdownDoc(bytes.NewReader(src), jscc.MetaData{AbsSource: name})
		if err != nil {
			return fmt.Errorf("parse error: %w", err)
		}
		res, err = jscc.Tangle(doc, s.engine)
		if err != nil {
			return err
		}
	} else if res, err = jscc.Process(src, name, s.engine); err != nil {
		return err
	}

	_, err = io.WriteString(cmd.Root().Writer, res.Code)
	return err
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: jscc build <path>")
	}
	target := cmd.Args().First()

	s, err := loadSettings(cmd, target)
	if err != nil {
		return err
	}
	if cmd.Bool("shared") {
		s.transform.Engine.Store = jscc.NewStore()
	}

	results, err := jcli.NewProcessor(s.transform, s.selector).ProcessPath(target)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(cmd.Root().Writer, "%s -> %s\n", r.Path, r.OutPath)
	}
	slog.Info("build finished", "files", len(results))
	return nil
}

func tangleAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: jscc tangle <file.md>")
	}
	target := cmd.Args().First()
	if !jscc.IsMarkdown(target) {
		return fmt.Errorf("%s is not a markdown file", target)
	}

	s, err := loadSettings(cmd, target)
	if err != nil {
		return err
	}

	f, err := os.Open(target)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	outPath, err := transformer.NewTransformer(s.transform).Transform(transformer.Source{
		Content:  f,
		Metadata: jscc.MetaData{AbsSource: jscc.MustAbs(target)},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Wrote %s to %s\n", target, outPath)
	return nil
}
