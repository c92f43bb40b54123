package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/shundroid/three-blockly/blockxml"
	"github.com/shundroid/three-blockly/controller"
	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/generator"
	"github.com/shundroid/three-blockly/hostfunc"
	"github.com/shundroid/three-blockly/internal/config"
	"github.com/shundroid/three-blockly/internal/logging"
	"github.com/shundroid/three-blockly/language/javascript"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/workspace"
)

var rootCmd = &cobra.Command{
	Use:   "blockcode",
	Short: "Block program editor and sandbox",
	Long: `blockcode - Edit, render and run block programs.

Programs are workspace trees in the block editor's XML format. They are
turned into JavaScript and executed in a WebAssembly sandbox. Every loop is
guarded, so a runaway loop stops with an error instead of hanging.

Settings come from flags, BLOCKCODE_* environment variables and an optional
blockcode.yaml or blockcode.toml file.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfg  = config.Default()
	logs *logging.Logging
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logs != nil {
		logs.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	def := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.String(config.KeyLocale, def.Locale, "Interface language code")
	pf.Int(config.KeyLoopLimit, def.LoopLimit, "Loop iterations allowed per run")
	pf.Duration(config.KeyTimeout, def.Timeout, "Run timeout (0 for none)")
	pf.String(config.KeyMemory, def.Memory, "Sandbox memory limit: 16mb, 64mb, 256mb, 1gb, none")
	pf.String(config.KeyLogLevel, def.LogLevel, "Log level: debug, info, warn, error")
	pf.String(config.KeyLogFile, "", "Also append JSON logs to this file")
	pf.Bool(config.KeyNoCache, false, "Disable compilation cache")
}

// setup loads configuration and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	l, err := logging.New(logging.Options{
		Level:  c.LogLevel,
		File:   c.LogFile,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if logs != nil {
		logs.Close()
	}
	cfg, logs = c, l
	return nil
}

func logger() *slog.Logger {
	if logs == nil {
		return slog.Default()
	}
	return logs.Logger
}

// resolveLocale returns code when it is a known language, otherwise the
// default with a warning naming the closest match.
func resolveLocale(code string) string {
	if _, ok := locale.Names[code]; ok {
		return code
	}
	if s, ok := locale.Suggest(code, locale.Names); ok {
		logger().Warn("unknown locale", "locale", code, "suggestion", s)
	} else {
		logger().Warn("unknown locale", "locale", code)
	}
	return locale.Default
}

func newExecutor() (*executor.Executor, error) {
	pages, err := cfg.MemoryPages()
	if err != nil {
		return nil, err
	}

	execOpts := []executor.ExecutorOption{
		executor.WithLogger(logger()),
		executor.WithPrecompile(javascript.New()),
	}
	if !cfg.NoCache {
		execOpts = append(execOpts, executor.WithDiskCache())
	}
	if pages > 0 {
		execOpts = append(execOpts, executor.WithMemoryLimit(pages))
	}
	return executor.New(hostfunc.NewRegistry(), execOpts...)
}

// newController wires a page controller with the configured limits.
func newController(ws *workspace.Workspace, page controller.Host, runner controller.Runner, lang string, opts ...controller.Option) *controller.Controller {
	base := []controller.Option{
		controller.WithMessages(locale.MessagesFor(lang)),
		controller.WithLoopLimit(cfg.LoopLimit),
		controller.WithRunTimeout(cfg.Timeout),
		controller.WithLogger(logger()),
	}
	return controller.New(ws, generator.New(), page, runner, append(base, opts...)...)
}

// readSource returns the workspace text from the file argument or stdin.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no program: pass a file or pipe workspace XML on stdin")
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// loadWorkspace parses text into a new workspace.
func loadWorkspace(text string) (*workspace.Workspace, error) {
	tree, err := blockxml.Parse(text)
	if err != nil {
		return nil, err
	}
	ws := workspace.New()
	if err := ws.Load(tree); err != nil {
		return nil, err
	}
	return ws, nil
}

// since formats an elapsed duration for terminal output.
func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
