// Package main provides the xlsx-extract CLI entry point.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	xlsxextract "github.com/optilude/xlsx-extract"
	"github.com/optilude/xlsx-extract/document"
)

var (
	update          bool
	allowFailures   bool
	configSheet     string
	sourceDirectory string
	sourceFile      string
	verbose         bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlsx-extract target.xlsx [output.xlsx]",
		Short: "Extract data from Excel workbooks into a templated target workbook",
		Long: `xlsx-extract reads an extract configuration from a sheet in the target
workbook, finds the configured cells and tables in one or more source
workbooks, and writes the results into the target.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: run,

		SilenceUsage: true,
	}

	rootCmd.Flags().BoolVar(&update, "update", false, "Overwrite the target with the extract results instead of naming an output file")
	rootCmd.Flags().BoolVar(&allowFailures, "allow-failures", false, "Write the output file even if some extracts failed")
	rootCmd.Flags().StringVar(&configSheet, "config-sheet", "Config", "Name of the worksheet in the target file with the extract configuration")
	rootCmd.Flags().StringVar(&sourceDirectory, "source-directory", "", "Directory where source files are found (default: current directory)")
	rootCmd.Flags().StringVar(&sourceFile, "source-file", "", "Source file to extract from; can be overridden in the configuration")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	targetPath := args[0]

	var outputPath string
	switch {
	case update && len(args) > 1:
		return fmt.Errorf("--update cannot be combined with an output file")
	case update:
		outputPath = targetPath
	case len(args) > 1:
		outputPath = args[1]
	default:
		return fmt.Errorf("an output file is required unless --update is given")
	}

	if sourceDirectory == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		sourceDirectory = cwd
	}

	if info, err := os.Stat(sourceDirectory); err != nil || !info.IsDir() {
		return fmt.Errorf("source directory %s not found", sourceDirectory)
	}
	if sourceFile != "" {
		if info, err := os.Stat(sourceFile); err != nil || info.IsDir() {
			return fmt.Errorf("source file %s not found", sourceFile)
		}
	}

	targetWb, err := document.Open(targetPath)
	if err != nil {
		return fmt.Errorf("open target %s: %w", targetPath, err)
	}
	defer targetWb.Close()

	history := xlsxextract.Run(targetWb, sourceDirectory, sourceFile, configSheet)
	if history == nil {
		return fmt.Errorf("configuration sheet %q not found in %s", configSheet, targetPath)
	}

	success := true
	for _, action := range history {
		fmt.Println(action)
		if !action.Success {
			success = false
		}
	}

	if success || allowFailures {
		if err := targetWb.SaveAs(outputPath); err != nil {
			return fmt.Errorf("write output %s: %w", outputPath, err)
		}
	}

	if !success {
		return fmt.Errorf("one or more extracts failed")
	}
	return nil
}
