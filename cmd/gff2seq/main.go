// Package main provides the gff2seq command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/gff2seq/internal/duckdb"
	"github.com/inodb/gff2seq/internal/extract"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".gff2seq.yaml"

var envKeyReplacer = strings.NewReplacer("-", "_")

// usageError marks errors caused by invalid invocation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(viper.New())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var uerr usageError
	if errors.As(err, &uerr) {
		if cmd == nil {
			cmd = root
		}
		fmt.Fprintln(stderr, cmd.UsageString())
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gff2seq [flags] <annotation> <genome>",
		Short: "Extract transcript sequences from a genome using a GFF/GTF annotation",
		Long: `gff2seq reconstructs transcripts from the CDS or exon features of a GFF3 or
GTF annotation and writes their spliced sequences from a FASTA genome.

Either input may be gzip-compressed, and either (but not both) may be "-"
to read from stdin. Settings can also come from ~/.gff2seq.yaml or
GFF2SEQ_* environment variables.`,
		Example: `  gff2seq genes.gtf genome.fa > cds.fa
  gff2seq -t exon -i -v genes.gff3.gz genome.fa.gz
  gff2seq -I -T 20 --db catalog.duckdb genes.gff3 genome.fa`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageError{fmt.Errorf("expected <annotation> <genome>, got %d arguments", len(args))}
			}
			return runExtract(cmd, v, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringP("type", "t", "cds", "Child feature type to assemble: cds or exon")
	flags.BoolP("isoforms", "i", false, "Emit every isoform instead of the longest per gene")
	flags.BoolP("coordinate-isoforms", "c", false, "Also collapse overlapping transcripts of different genes")
	flags.BoolP("verbose-headers", "v", false, "Add assembled feature spans to headers")
	flags.String("tag", "", "Prefix for every header")
	flags.BoolP("non-coding", "n", false, "Use the full transcript span instead of its features")
	flags.BoolP("leave-lowercase", "L", false, "Preserve genome casing")
	flags.BoolP("introns", "I", false, "Include introns in lower case")
	flags.IntP("truncate-introns", "T", 0, "Truncate introns longer than this to their ends (0 disables)")
	flags.BoolP("translate", "p", false, "Emit amino acid sequences")
	flags.Int("workers", 0, "Assembly workers (0 = all CPUs)")
	flags.Int("wrap", 0, "Sequence line width (0 = no wrapping)")
	flags.String("db", "", "Record emitted sequences in a DuckDB catalog at this path")
	flags.StringP("output", "o", "", "Output file (default: stdout)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("config", "", "Config file (default: ~/"+configName+")")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	// BindPFlags only fails on a nil flag set.
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	cmd.AddCommand(newConfigCmd(v))
	return cmd
}

// initConfig loads the config file and environment into v. A missing config
// file is not an error.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix("GFF2SEQ")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		cfgFile = filepath.Join(home, configName)
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}
	return nil
}

// optionsFrom converts the merged flag, env and config settings into
// extract options.
func optionsFrom(v *viper.Viper) extract.Options {
	return extract.Options{
		ChildType:            v.GetString("type"),
		AllowIsoforms:        v.GetBool("isoforms"),
		CoordinateIsoforms:   v.GetBool("coordinate-isoforms"),
		VerboseHeaders:       v.GetBool("verbose-headers"),
		HeaderTag:            v.GetString("tag"),
		NonCoding:            v.GetBool("non-coding"),
		LeaveLowercase:       v.GetBool("leave-lowercase"),
		IncludeIntrons:       v.GetBool("introns"),
		IntronTruncateLength: v.GetInt("truncate-introns"),
		Translate:            v.GetBool("translate"),
		Workers:              v.GetInt("workers"),
		Wrap:                 v.GetInt("wrap"),
	}
}

// newLogger builds a console logger writing to w.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func runExtract(cmd *cobra.Command, v *viper.Viper, annotationPath, genomePath string) error {
	logger, err := newLogger(v.GetString("log-level"), cmd.ErrOrStderr())
	if err != nil {
		return usageError{fmt.Errorf("invalid log level: %w", err)}
	}
	defer logger.Sync() //nolint:errcheck

	ex, err := extract.New(optionsFrom(v))
	if err != nil {
		return usageError{err}
	}
	ex.SetLogger(logger)

	if dbPath := v.GetString("db"); dbPath != "" {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer store.Close()
		ex.SetCatalog(store)
	}

	out := cmd.OutOrStdout()
	if path := v.GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err = ex.Run(cmd.Context(), annotationPath, genomePath, out)
	return err
}
