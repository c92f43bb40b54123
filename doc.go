// Package threeblockly is a block program editor page and sandbox.
//
// # Overview
//
// A page shows one of three tabs: the block workspace, the JavaScript
// generated from it and the workspace serialized as XML. The XML tab is
// editable; leaving it loads the text back into the workspace. Programs run
// in a WebAssembly sandbox with a loop guard, so a runaway loop ends with an
// error instead of hanging the page.
//
// # Basic Usage
//
//	exec, _ := executor.New(hostfunc.NewRegistry())
//	defer exec.Close()
//
//	page := host.NewPage()
//	ctl := controller.New(workspace.New(), generator.New(), page, exec,
//	    controller.WithInitialTree(xml))
//	ctl.Start()
//
//	ctl.SwitchTo(controller.ViewGeneratedCode)
//	fmt.Println(page.PaneText(controller.ViewGeneratedCode))
//
//	run, _ := ctl.Run(ctx)
//	run.Wait()
//	fmt.Println(page.Alerts())
//
// See the [controller], [generator], [render], [locale], [executor] and
// [language/javascript] packages for detailed API documentation. The
// blockcode command serves pages over HTTP and in a terminal.
package threeblockly
