package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KevinKickass/FlasherCore/internal/codegen"
	"github.com/KevinKickass/FlasherCore/internal/pipeline"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

var requestFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a request against the catalog and controller",
	Long: `Validate the slot configuration of a request file.

Exits with status 2 when the request is rejected.

Examples:
  flasherctl validate -f node1.yaml
  cat node1.yaml | flasherctl validate -f -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, req, err := loadWithRequest()
		if err != nil {
			return err
		}
		errs := a.pipeline.Validate(req)
		if err := printJSON(os.Stdout, map[string]any{"valid": len(errs) == 0, "errors": errs}); err != nil {
			return err
		}
		if len(errs) > 0 {
			return failWith(2, "")
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print the program statements for a request",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, req, err := loadWithRequest()
		if err != nil {
			return err
		}
		if errs := a.pipeline.Validate(req); len(errs) > 0 {
			_ = printJSON(os.Stderr, errs)
			return failWith(2, "request rejected with %d validation error(s)", len(errs))
		}
		lines, err := codegen.Generate(&req.Slots, a.catalog)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the program diff and deploy command without writing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, req, err := loadWithRequest()
		if err != nil {
			return err
		}
		preview, err := a.pipeline.Preview(req)
		if err != nil {
			return err
		}
		if !preview.Valid {
			_ = printJSON(os.Stdout, preview)
			return failWith(2, "")
		}

		if preview.Diff == "" {
			fmt.Println("# program unchanged")
		} else {
			fmt.Print(preview.Diff)
		}
		if preview.Command != nil {
			fmt.Printf("# %s -> %s\n%s\n", preview.Command.TransportLabel, preview.Command.Endpoint, preview.Command.Command)
			if preview.Command.Warning != "" {
				fmt.Fprintln(os.Stderr, "warning:", preview.Command.Warning)
			}
		}
		if preview.Error != "" {
			return failWith(1, "%s", preview.Error)
		}
		return nil
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Scaffold, generate and flash a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, req, err := loadWithRequest()
		if err != nil {
			return err
		}
		return reportResult(a.pipeline.Deploy(cmd.Context(), req))
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the node scaffold and merge credentials only",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		req, err := loadInitRequest(requestFile)
		if err != nil {
			return err
		}
		return reportResult(a.pipeline.Init(cmd.Context(), req))
	},
}

func loadWithRequest() (*app, *types.DeployRequest, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	req, err := loadDeployRequest(requestFile)
	if err != nil {
		return nil, nil, err
	}
	return a, req, nil
}

func reportResult(res *types.Result) error {
	if err := printJSON(os.Stdout, res); err != nil {
		return err
	}
	if res.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", res.Warning)
	}
	if res.Success {
		return nil
	}
	if res.Stage == pipeline.StageValidate {
		return failWith(2, "")
	}
	return failWith(1, "failed at %s: %s", res.Stage, res.Error)
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, generateCmd, previewCmd, deployCmd, initCmd} {
		c.Flags().StringVarP(&requestFile, "file", "f", "", "request file (YAML or JSON, - for stdin)")
		_ = c.MarkFlagRequired("file")
		rootCmd.AddCommand(c)
	}
}
