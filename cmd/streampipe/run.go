package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kranzdev/streampipe/internal/config"
	"github.com/kranzdev/streampipe/internal/dashboard"
	"github.com/kranzdev/streampipe/internal/demo"
	logginginfra "github.com/kranzdev/streampipe/internal/infrastructure/logging"
	"github.com/kranzdev/streampipe/internal/pipeline"
	"github.com/kranzdev/streampipe/internal/trace"
)

type runOptions struct {
	ConfigPath string
	Key        string
	Condition  bool
	Vars       []string
}

func newRunCmd(root *rootFlags, app *AppContext) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile a pipeline config and run one package through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := validateConfigPath(opts.ConfigPath)
			if err != nil {
				return err
			}
			nonInteractive := !term.IsTerminal(int(os.Stdout.Fd()))
			return runPipeline(cmd, app, abs, opts, nonInteractive, root.verbose)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the pipeline YAML config")
	cmd.Flags().StringVar(&opts.Key, "key", "hello", "Initial value for the demo payload's Key field")
	cmd.Flags().BoolVar(&opts.Condition, "condition", true, "Initial value for the demo payload's Condition field")
	cmd.Flags().StringArrayVarP(&opts.Vars, "var", "e", nil, "key=value pair added to the demo payload's Vars map (repeatable)")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runPipeline(cmd *cobra.Command, app *AppContext, configPath string, opts runOptions, nonInteractive, verbose bool) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	spec, err := config.Parse(f)
	if err != nil {
		return err
	}

	runLogger := app.Logger
	if verbose {
		debugLogger, err := logginginfra.New(logginginfra.Options{Level: "debug", Console: true, Component: "pipeline"})
		if err != nil {
			return fmt.Errorf("create verbose logger: %w", err)
		}
		runLogger = debugLogger
	}

	p, err := config.Compile(spec, config.DefaultRegistry(), app.Metrics, runLogger)
	if err != nil {
		return err
	}

	instanceID := p.RegisterInstance()
	defer p.UnregisterInstance(instanceID)

	model := dashboard.NewModel(spec.Name, len(spec.Controllers))

	var program *tea.Program
	done := make(chan struct{})
	var programErr error
	interactive := !nonInteractive

	if interactive {
		program = tea.NewProgram(model)
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	}

	data := demo.Data{Key: opts.Key, Condition: opts.Condition, Vars: parseVars(opts.Vars)}

	resultCh := make(chan *trace.Package[demo.Data], 1)
	cb := pipeline.Callbacks[demo.Data]{
		OnSuccess: func(pkg *trace.Package[demo.Data]) { resultCh <- pkg },
		OnExit:    func(pkg *trace.Package[demo.Data]) { resultCh <- pkg },
		OnError:   func(pkg *trace.Package[demo.Data]) { resultCh <- pkg },
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := p.Execute(ctx, data, instanceID, cb); err != nil {
		if interactive {
			program.Send(tea.QuitMsg{})
			<-done
		}
		return err
	}

	result := <-resultCh
	dispatchDashboardMsg(interactive, program, &model, dashboard.PackageUpdateMsg{Pkg: result})

	if interactive {
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), model.View())
	}

	if !result.Success {
		return fmt.Errorf("pipeline run failed: %d error(s) recorded", len(result.Errors))
	}
	return nil
}

func dispatchDashboardMsg(interactive bool, program *tea.Program, model *dashboard.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
			program.Send(tea.QuitMsg{})
		}
		return
	}
	updated, _ := model.Update(msg)
	if m, ok := updated.(dashboard.Model); ok {
		*model = m
	}
}
