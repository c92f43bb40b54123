package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shundroid/three-blockly/host"
)

var runCmd = &cobra.Command{
	Use:   "run [file.xml]",
	Short: "Run a block program",
	Long: `Run a block program in the sandbox.

The workspace XML is read from the file argument or stdin. Alerts are
printed as they happen. Prompts take their answers from --answer in order;
a prompt with no answer left is cancelled.

  blockcode run hello.xml
  blockcode run --answer 20 ask.xml
  cat hello.xml | blockcode run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArray("answer", nil, "Answer for the next prompt (repeatable)")
	runCmd.Flags().Bool("show-code", false, "Print the generated JavaScript before running")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	answers, _ := cmd.Flags().GetStringArray("answer")
	showCode, _ := cmd.Flags().GetBool("show-code")

	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(source)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	page := host.NewPage(host.WithDialogHook(func(d host.Dialog) {
		switch d.Kind {
		case host.KindAlert:
			fmt.Fprintln(out, d.Message)
		case host.KindPrompt:
			fmt.Fprintf(out, "%s %s\n", d.Message, d.Answer)
		}
	}))
	for _, a := range answers {
		page.QueuePrompt(a, true)
	}

	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	ctl := newController(ws, page, exec, resolveLocale(cfg.Locale))
	if err := ctl.Start(); err != nil {
		return err
	}

	start := time.Now()
	r, err := ctl.Run(cmd.Context())
	if err != nil {
		return err
	}
	if showCode {
		fmt.Fprintln(cmd.ErrOrStderr(), r.Code)
	}
	result := r.Wait()
	logger().Debug("run complete", "run", r.ID, "elapsed", since(start))
	return result.Error
}
