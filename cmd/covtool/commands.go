package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-likely/codec"
	"github.com/n0madic/go-likely/covariance"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func (o *rootOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.logLevel, "log-level", "info", "Logging level: panic, fatal, error, warn, info, debug or trace")
	fs.StringVar(&o.logFormat, "log-format", "text", "Logging format: text or json")
}

func configureLogger(logger *logrus.Logger, o rootOptions, out io.Writer) error {
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger.SetLevel(level)
	logger.SetOutput(out)
	switch o.logFormat {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("--log-format must be text or json, got %q", o.logFormat)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	logger := logrus.New()
	log := logrus.NewEntry(logger).WithField("component", "covtool")

	cmd := &cobra.Command{
		Use:   "covtool",
		Short: "Work with covariance matrices described in YAML",
		Long: `Work with covariance matrices described in YAML.

Example:
$ covtool chi2 --config=matrix.yaml --residuals=1,0.5,-2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogger(logger, opts, cmd.ErrOrStderr())
		},
	}
	opts.addFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newInspectCmd(log),
		newChiSquareCmd(log),
		newSampleCmd(log),
		newPackCmd(log),
		newUnpackCmd(log),
	)
	return cmd
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "config", "", "Path to the matrix YAML description")
	cmd.MarkFlagRequired("config")
}

func matrixFromConfig(path string, log *logrus.Entry) (*covariance.Matrix, error) {
	c, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	return c.build(log.WithField("config", path))
}

func newInspectCmd(log *logrus.Entry) *cobra.Command {
	var (
		configPath string
		compress   bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print both representations and the memory state of a matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := matrixFromConfig(configPath, log)
			if err != nil {
				return err
			}
			if err := printSummary(cmd.OutOrStdout(), m); err != nil {
				return err
			}
			if compress {
				m.Compress()
				fmt.Fprintf(cmd.OutOrStdout(), "compressed memory: %s\n", m.MemoryState())
			}
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&compress, "compress", false, "Also compress the matrix and report the resulting memory state")
	return cmd
}

// printSummary writes the cache state and both representations of m. The
// memory state is reported before the inverse is computed.
func printSummary(w io.Writer, m *covariance.Matrix) error {
	fmt.Fprintf(w, "size: %d\n", m.Size())
	fmt.Fprintf(w, "state: %s\n", m.State())
	fmt.Fprintf(w, "memory: %s\n", m.MemoryState())

	cov, err := m.CovarianceDense()
	if err != nil {
		return err
	}
	icov, err := m.InverseCovarianceDense()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "covariance:\n%v\n", mat.Formatted(cov, mat.Prefix(""), mat.Squeeze()))
	fmt.Fprintf(w, "inverse covariance:\n%v\n", mat.Formatted(icov, mat.Prefix(""), mat.Squeeze()))
	return nil
}

func newChiSquareCmd(log *logrus.Entry) *cobra.Command {
	var (
		configPath string
		residuals  []float64
	)
	cmd := &cobra.Command{
		Use:   "chi2",
		Short: "Evaluate the chi-square of a residuals vector",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := matrixFromConfig(configPath, log)
			if err != nil {
				return err
			}
			chi2, err := m.ChiSquare(residuals)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(chi2, 'g', -1, 64))
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().Float64SliceVar(&residuals, "residuals", nil, "Comma-separated residuals, one per matrix row")
	cmd.MarkFlagRequired("residuals")
	return cmd
}

func newSampleCmd(log *logrus.Entry) *cobra.Command {
	var (
		configPath string
		count      int
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw Gaussian residual vectors with the matrix as covariance",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := matrixFromConfig(configPath, log)
			if err != nil {
				return err
			}
			samples, err := m.Sample(count)
			if err != nil {
				return err
			}
			n := m.Size()
			fields := make([]string, n)
			for s := 0; s < count; s++ {
				for i, v := range samples[s*n : (s+1)*n] {
					fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(fields, " "))
			}
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of vectors to draw")
	return cmd
}

func newPackCmd(log *logrus.Entry) *cobra.Command {
	var (
		configPath string
		output     string
		codecName  string
		compress   bool
	)
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build a matrix and save it in the binary state format",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("codec") {
				if _, err := codec.ParseType(codecName); err != nil {
					return fmt.Errorf("--codec: %w", err)
				}
				c.Codec = codecName
			}
			m, err := c.build(log.WithField("config", configPath))
			if err != nil {
				return err
			}
			if compress {
				m.Compress()
			}
			if err := saveMatrix(output, m); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"output": output,
				"memory": m.MemoryState(),
			}).Info("Saved matrix")
			return nil
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the state file to write")
	cmd.Flags().StringVar(&codecName, "codec", "zstd", "Payload codec: none, zstd, s2 or lz4; overrides the config")
	cmd.Flags().BoolVar(&compress, "compress", true, "Compress the matrix before saving")
	cmd.MarkFlagRequired("output")
	return cmd
}

func saveMatrix(path string, m *covariance.Matrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create state file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close state file: %w", cerr)
		}
	}()
	if err := m.Save(f); err != nil {
		return fmt.Errorf("cannot save matrix to %s: %w", path, err)
	}
	return nil
}

func newUnpackCmd(log *logrus.Entry) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "unpack",
		Short: "Load a saved matrix and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("cannot open state file: %w", err)
			}
			defer f.Close()
			m, err := covariance.Load(f, covariance.WithLogger(log.WithField("input", input)))
			if err != nil {
				return fmt.Errorf("cannot load matrix from %s: %w", input, err)
			}
			return printSummary(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Path of the state file to read")
	cmd.MarkFlagRequired("input")
	return cmd
}
