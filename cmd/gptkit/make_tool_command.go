package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gptkit/internal/scaffold"
)

func newMakeToolCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var pkg string
	var toolsImport string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "make-tool <name>",
		Short: "Generate a new tool skeleton",
		Long: "Generate a Go file implementing tools.Tool. The name may be PascalCase " +
			"(WeatherLookup), snake_case (weather_lookup), or prefixed with subdirectories " +
			"(web/HttpFetcher); subdirectories become their own package.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targetDir := strings.TrimSpace(dir)
			if targetDir == "" {
				targetDir = cfg.Scaffold.Dir
			}
			packageName := strings.TrimSpace(pkg)
			if packageName == "" {
				packageName = cfg.Scaffold.Package
			}

			result, err := scaffold.Generate(scaffold.Options{
				Dir:         targetDir,
				Package:     packageName,
				Name:        args[0],
				Overwrite:   overwrite,
				ToolsImport: toolsImport,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tool %s created at %s\n", result.Type, result.Path)
			fmt.Fprintf(out, "Default tool name: %s (package %s)\n", result.ToolName, result.Package)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Target directory (default: scaffold.dir)")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Package name (default: scaffold.package)")
	cmd.Flags().StringVar(&toolsImport, "tools-import", scaffold.DefaultToolsImport, "Import path of the tools package")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}
