package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "docparse",
		Short:         "Parse PDF, DOCX and PPTX documents with docling or LLMWhisperer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading DOCPARSER_* variables")

	root.AddCommand(parseCmd(&envFile), serveCmd(&envFile))
	return root
}
