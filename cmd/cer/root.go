package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sensiblebit/certfields"
	"github.com/sensiblebit/certfields/internal"
)

var (
	logLevel     string
	listAll      bool
	password     string
	passwordFile string
	outputFormat string
	forceBinary  bool
)

var rootCmd = &cobra.Command{
	Use:   "cer [file]",
	Short: "Extract certificate fields from PEM or PKCS#12 files",
	Long: "Print the common names, subject and issuer names, DNS subject alternative names, " +
		"expiration and SHA-1 thumbprint of X.509 certificates. Input is PEM text or a " +
		"PKCS#12/PFX bundle, read from a file or stdin.",
	Example: `  cer cert.pem
  cer --list chain.pem
  cat bundle.pfx | cer --password changeit --format yaml
  cer mcp`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return internal.SetupLogger(os.Stderr, logLevel)
	},
	RunE: runCer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")

	rootCmd.Flags().BoolVarP(&listAll, "list", "a", false, "Print every certificate instead of only the first")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "PKCS#12 password")
	rootCmd.Flags().StringVar(&passwordFile, "password-file", "", "File whose first non-blank line is the PKCS#12 password")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json, yaml, or table")
	rootCmd.Flags().BoolVar(&forceBinary, "binary", false, "Treat input as PKCS#12 even if it is valid UTF-8")
	rootCmd.MarkFlagsMutuallyExclusive("password", "password-file")

	for name, complete := range flagCompletions {
		if err := rootCmd.RegisterFlagCompletionFunc(name, complete); err != nil {
			panic(err)
		}
	}
	rootCmd.ValidArgsFunction = completeInputArg

	rootCmd.AddCommand(mcpCmd)
}

// flagCompletions holds the shell suggestions for root flags that take a value.
var flagCompletions = map[string]cobra.CompletionFunc{
	"format": cobra.FixedCompletions(internal.OutputFormats, cobra.ShellCompDirectiveNoFileComp),
	"log-level": cobra.FixedCompletions([]cobra.Completion{
		cobra.CompletionWithDesc("debug", "decoder and container details"),
		cobra.CompletionWithDesc("info", "default"),
		cobra.CompletionWithDesc("warn", "skipped input only"),
		cobra.CompletionWithDesc("error", "failures only"),
	}, cobra.ShellCompDirectiveNoFileComp),
	"password-file": cobra.FixedCompletions(nil, cobra.ShellCompDirectiveDefault),
}

// completeInputArg offers file names for the one positional argument.
func completeInputArg(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveDefault
}

func runCer(cmd *cobra.Command, args []string) error {
	pwd, err := internal.ResolvePassword(passwordOptions(cmd.Flags()))
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}
	data, err := internal.ReadInput(path, os.Stdin)
	if err != nil {
		return err
	}

	records, err := certfields.Decode(internal.ClassifyInput(data, forceBinary), pwd)
	if err != nil {
		return err
	}
	out, err := certfields.Select(records, listAll)
	if err != nil {
		return err
	}
	text, err := internal.FormatRecords(out, outputFormat)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}

// passwordOptions collects the password flags, keeping an explicit empty
// --password apart from an absent one.
func passwordOptions(flags *pflag.FlagSet) internal.PasswordOptions {
	return internal.PasswordOptions{
		Password:    password,
		PasswordSet: flags.Changed("password"),
		File:        passwordFile,
	}
}
