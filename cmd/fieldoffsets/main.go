// Command fieldoffsets generates a method per struct type that lists the byte
// offset of each named field, in declaration order. It is meant to run from a
// go:generate line:
//
//	//go:generate fieldoffsets -type=Data
//
// Single-dash long flags are accepted for that reason.
//
// Subcommands:
//
//	fieldoffsets inspect [-i] [--goarch arch] [packages]
//	fieldoffsets check --wit file.wit [--record name] [packages]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/fieldoffsets/generator"
	"github.com/wippyai/fieldoffsets/witabi"
)

var (
	// Global flags
	verbose    bool
	typeNames  []string
	buildTags  []string
	method     string
	configPath string

	// Generate flags
	output string
	dryRun bool

	// invocation is the argument list recorded in generated headers
	invocation []string

	logger = zap.NewNop()
)

// newRootCmd builds the command tree. Flags are bound to the package
// variables, resetting them to their defaults.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldoffsets [flags] [packages]",
		Short: "Generate field offset tables for Go structs",
		Long: `fieldoffsets writes a <type>_fieldoffsets.go file next to each package.
Every selected struct gets a method returning the name and byte offset of each
of its fields, in declaration order. Offsets come from unsafe.Offsetof, so they
are whatever the compiler decides for the target platform.

Structs are selected with -type, or by a //fieldoffsets:generate comment on the
type declaration. Packages default to the current directory.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			config.Encoding = "console"
			config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			} else {
				config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			generator.SetLogger(logger.Named("generator"))
			witabi.SetLogger(logger.Named("witabi"))

			return applyConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runGenerate,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringSliceVarP(&typeNames, "type", "t", nil, "Comma-separated struct type names (default: types marked //fieldoffsets:generate)")
	root.PersistentFlags().StringSliceVar(&buildTags, "tags", nil, "Comma-separated build tags applied while loading")
	root.PersistentFlags().StringVar(&method, "method", generator.DefaultMethod, "Name of the generated method")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+defaultConfigFile+" if present)")

	root.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <type>_fieldoffsets.go in the package directory)")
	root.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the generated source instead of writing it")

	root.AddCommand(newInspectCmd())
	root.AddCommand(newCheckCmd())
	return root
}

func main() {
	invocation = os.Args[1:]
	root := newRootCmd()
	root.SetArgs(normalizeArgs(root, invocation))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fieldoffsets:", err)
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func packagePatterns(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	g := generator.New(generator.Options{
		Types:  typeNames,
		Method: method,
		Output: output,
		Tags:   buildTags,
		Args:   invocation,
		DryRun: dryRun,
	})

	results, err := g.Run(ctx, packagePatterns(args)...)
	if err != nil {
		return err
	}

	if dryRun {
		for _, res := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "// %s\n%s", res.Path, res.Source)
		}
	}
	return nil
}
