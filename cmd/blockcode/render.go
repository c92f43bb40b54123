package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shundroid/three-blockly/controller"
	"github.com/shundroid/three-blockly/generator"
	"github.com/shundroid/three-blockly/host"
	"github.com/shundroid/three-blockly/language/javascript"
	"github.com/shundroid/three-blockly/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [file.xml]",
	Short: "Print the JavaScript or normalized XML of a block program",
	Long: `Render a block program the way the editor's code tabs show it.

  --view javascript   generated JavaScript (default)
  --view xml          serialized tree without block ids

With --exec the JavaScript is printed as it is run: loop guards inserted
and procedures made asynchronous.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("view", controller.ViewGeneratedCode.String(), "Tab to render: javascript or xml")
	renderCmd.Flags().Bool("exec", false, "Print the program as executed")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	viewName, _ := cmd.Flags().GetString("view")
	execForm, _ := cmd.Flags().GetBool("exec")

	view, err := controller.ParseView(viewName)
	if err != nil {
		return err
	}
	if view == controller.ViewBlocks {
		return errors.New("the blocks view has no text form: use javascript or xml")
	}

	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(source)
	if err != nil {
		return err
	}

	if execForm {
		code, err := generator.New().GenerateWithLoopTrap(ws.Serialize(), javascript.LoopTrap)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), render.TransformForExecution(code))
		return nil
	}

	page := host.NewPage()
	ctl := newController(ws, page, nil, resolveLocale(cfg.Locale))
	if err := ctl.Start(); err != nil {
		return err
	}
	if err := ctl.SwitchTo(view); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), page.Pane(view).Text)
	return nil
}
