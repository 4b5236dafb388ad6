package main

import (
	"context"
	"fmt"

	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/runner"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var extractCommand = &cli.Command{
	Name:  "extract",
	Usage: "Extract an archive and report its entries",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "job",
			Aliases: []string{"j"},
			Usage:   "Job file describing the extraction (the archive argument is ignored)",
		},
		&cli.StringFlag{
			Name:  "worker",
			Usage: "Worker running the decoder (inprocess, process)",
		},
		&cli.StringSliceFlag{
			Name:  "worker-program",
			Usage: "Program and arguments of the process worker (implies --worker process)",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "CEL expression selecting reported entries, e.g. 'name.endsWith(\".json\")'",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Abort the extraction after this duration",
		},
		&cli.StringFlag{
			Name:  "show",
			Usage: "Report format (text, json, yaml); defaults to text on a terminal and json otherwise",
		},
		&cli.BoolFlag{
			Name:  "content",
			Usage: "Include entry content in json and yaml reports",
		},
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "Archive path, http(s):// URL, s3://bucket/key, or - for stdin",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := loggerFrom(ctx)

		job, err := loadExtractJob(command)
		if err != nil {
			return err
		}

		if job.Spec.Output == nil || job.Spec.Output.Show == "" {
			if job.Spec.Output == nil {
				job.Spec.Output = &v1.OutputSpec{}
			}
			job.Spec.Output.Show = defaultShow(reportsToTerminal(ctx))
		}

		variables, err := runner.BuildVariables(job, command.StringSlice("allowed-env"))
		if err != nil {
			return fmt.Errorf("failed to build variables: %w", err)
		}

		if err := runner.ExpandTemplates(&job, variables); err != nil {
			return fmt.Errorf("failed to expand templates: %w", err)
		}

		program, err := workerProgram()
		if err != nil {
			logger.Warn("process workers need an explicit program", zap.Error(err))
		}

		injector := runner.BuildContainer(logger, runner.ContainerConfig{WorkerProgram: program})

		r, err := runner.New(ctx, injector, job)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		if _, err := r.Run(ctx); err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		return nil
	},
}

func loadExtractJob(command *cli.Command) (v1.ExtractJob, error) {
	var (
		job v1.ExtractJob
		err error
	)

	if jobFilename := command.String("job"); jobFilename != "" {
		data, err := readJobFile(jobFilename)
		if err != nil {
			return v1.ExtractJob{}, fmt.Errorf("failed to read job file '%s': %w", jobFilename, err)
		}
		job, err = runner.ParseExtractJob(data)
		if err != nil {
			return v1.ExtractJob{}, formatValidationError(err)
		}
	} else {
		job, err = adhocJob(command.StringArg("archive"))
		if err != nil {
			return v1.ExtractJob{}, err
		}
	}

	var overrides jobOverrides
	if command.IsSet("worker") {
		overrides.Worker = lo.ToPtr(command.String("worker"))
	}
	overrides.Program = command.StringSlice("worker-program")
	if command.IsSet("filter") {
		overrides.Filter = lo.ToPtr(command.String("filter"))
	}
	if command.IsSet("timeout") {
		overrides.Timeout = lo.ToPtr(command.Duration("timeout"))
	}
	if command.IsSet("show") {
		overrides.Show = lo.ToPtr(command.String("show"))
	}
	if command.IsSet("content") {
		overrides.Content = lo.ToPtr(command.Bool("content"))
	}

	if err := applyOverrides(&job, overrides); err != nil {
		return v1.ExtractJob{}, formatValidationError(err)
	}
	return job, nil
}
