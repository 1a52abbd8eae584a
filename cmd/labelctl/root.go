package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	app "github.com/erp/labels/internal/application/labeling"
	"github.com/erp/labels/internal/bootstrap"
	"github.com/erp/labels/internal/domain/catalog"
	"github.com/erp/labels/internal/infrastructure/config"
	"github.com/erp/labels/internal/infrastructure/logger"
)

// cli carries the global flags and the seams the tests replace
type cli struct {
	configFile string
	verbose    bool

	loadConfig func(file string) (*config.Config, error)
	build      func(ctx context.Context, cfg *config.Config, log *zap.Logger, opts bootstrap.Options) (*bootstrap.Components, error)
}

func newCLI() *cli {
	return &cli{
		loadConfig: config.LoadFrom,
		build:      bootstrap.Build,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "labelctl",
		Short:         "Lay out and print product labels",
		Long:          "labelctl lays out product labels on sheets, thermal rolls and label rolls,\nand renders them as a printable HTML document or a PDF.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "Config file (default: ./config.toml or /etc/labels/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newFormatsCmd(c),
		newLayoutCmd(c),
		newPrintCmd(c),
		newPDFCmd(c),
		newProductsCmd(c),
		newScanCmd(c),
		newArchiveCmd(c),
	)
	return root
}

// components loads the configuration and builds what a command needs. Logs
// go to stderr so stdout stays usable for documents. Spans are exported when
// the telemetry section enables them.
func (c *cli) components(cmd *cobra.Command, opts bootstrap.Options) (*bootstrap.Components, error) {
	cfg, err := c.loadConfig(c.configFile)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, err
	}
	opts.Tracing = true
	return c.build(cmd.Context(), cfg, log.Named("labelctl"), opts)
}

// jobFlags are the flags every job command shares
type jobFlags struct {
	productFile string
	productID   string
	family      string
	format      string
	quantity    int
	fields      []string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.productFile, "product", "p", "", "JSON file holding the product")
	cmd.Flags().StringVar(&f.productID, "product-id", "", "Product ID in the inventory database")
	cmd.Flags().StringVarP(&f.family, "family", "f", "", "Printer family: SHEET, THERMAL or LABEL (default from config)")
	cmd.Flags().StringVar(&f.format, "format", "", "Format ID within the family")
	cmd.Flags().IntVarP(&f.quantity, "quantity", "n", 1, "Number of labels")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "Fields to print: name,price,code,barcode (default all)")
	cmd.MarkFlagsMutuallyExclusive("product", "product-id")
	cmd.MarkFlagsOneRequired("product", "product-id")
}

func (f *jobFlags) request() (app.JobRequest, error) {
	req := app.JobRequest{
		ProductID: f.productID,
		Family:    f.family,
		FormatID:  f.format,
		Quantity:  f.quantity,
		Fields:    f.fields,
	}
	if f.productFile != "" {
		var p catalog.Product
		if err := readJSON(f.productFile, &p); err != nil {
			return req, err
		}
		req.Product = &p
	}
	return req, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput writes data to path, or to w when path is empty or "-"
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
