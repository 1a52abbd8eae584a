package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/erp/labels/internal/bootstrap"
	"github.com/erp/labels/internal/domain/catalog"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/erp/labels/internal/infrastructure/storage"
	"github.com/erp/labels/internal/scanner"
)

func newFormatsCmd(c *cli) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List label formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			comp, err := c.components(cmd, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer comp.Close()

			families := []string{family}
			if family == "" {
				families = families[:0]
				for _, f := range comp.Catalog.Families() {
					families = append(families, f.ID)
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FAMILY\tID\tNAME\tSIZE (mm)\tPER PAGE")
			for _, name := range families {
				formats, err := comp.Catalog.Formats(name)
				if err != nil {
					return err
				}
				for _, f := range formats {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%sx%s\t%d\n", f.Family, f.ID, f.Name,
						trimFloat(f.WidthMM), trimFloat(f.HeightMM), max(f.PerPage, 1))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&family, "family", "f", "", "Only list this printer family")
	return cmd
}

func newLayoutCmd(c *cli) *cobra.Command {
	var jf jobFlags
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show where every label of a job lands, without printing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := jf.request()
			if err != nil {
				return err
			}
			comp, err := c.components(cmd, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer comp.Close()

			layout, err := comp.Catalog.Layout(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), layout)
		},
	}
	jf.register(cmd)
	return cmd
}

func newPrintCmd(c *cli) *cobra.Command {
	var (
		jf     jobFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Write the printable HTML document of a job",
		Long:  "print writes the job as an HTML document that opens the browser's print dialog when loaded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := jf.request()
			if err != nil {
				return err
			}
			comp, err := c.components(cmd, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer comp.Close()

			doc, err := comp.Assembler.PrintDocument(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, doc.HTML); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d labels on %d pages", doc.Labels, doc.Pages)
			if doc.BarcodeErrors > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), ", %d without barcode", doc.BarcodeErrors)
			}
			fmt.Fprintln(cmd.ErrOrStderr())
			return nil
		},
	}
	jf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newPDFCmd(c *cli) *cobra.Command {
	var (
		jf     jobFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Render a job to PDF with headless Chrome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := jf.request()
			if err != nil {
				return err
			}
			comp, err := c.components(cmd, bootstrap.Options{Rasterizer: true})
			if err != nil {
				return err
			}
			defer comp.Close()

			result, err := comp.Assembler.GeneratePDF(cmd.Context(), req)
			if err != nil {
				return err
			}
			if output == "" {
				output = result.Filename
			}
			if err := writeOutput(cmd.OutOrStdout(), output, result.Data); err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			fmt.Fprintf(stderr, "%d pages", result.Pages)
			if output != "-" {
				fmt.Fprintf(stderr, " written to %s", output)
			}
			fmt.Fprintln(stderr)
			if len(result.SkippedPages) > 0 {
				fmt.Fprintf(stderr, "skipped pages: %s\n", joinPages(result.SkippedPages))
			}
			if result.ArchiveURL != "" {
				fmt.Fprintf(stderr, "archived at %s\n", result.ArchiveURL)
			}
			return nil
		},
	}
	jf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default: the job's file name)")
	return cmd
}

func newProductsCmd(c *cli) *cobra.Command {
	var (
		file      string
		search    string
		category  string
		minStock  int
		maxStock  int
		favorites bool
		sortKey   string
	)
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Search products in the inventory or a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := catalog.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			filter := catalog.Filter{
				Text:          search,
				Category:      category,
				FavoritesOnly: favorites,
				Sort:          key,
			}
			if cmd.Flags().Changed("min-stock") {
				filter.MinStock = &minStock
			}
			if cmd.Flags().Changed("max-stock") {
				filter.MaxStock = &maxStock
			}

			var products []catalog.Product
			if file != "" {
				var all []catalog.Product
				if err := readJSON(file, &all); err != nil {
					return err
				}
				products = filter.Apply(all)
			} else {
				comp, err := c.components(cmd, bootstrap.Options{})
				if err != nil {
					return err
				}
				defer comp.Close()
				if products, err = comp.Catalog.ListProducts(cmd.Context(), filter); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tPRICE\tSTOCK\tCATEGORY")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.Code, p.Name, p.Price.StringFixed(2), p.StockQuantity, p.Category)
			}
			return tw.Flush()
		},
	}
	filterCmd.Flags().StringVar(&file, "file", "", "JSON file with a product array (default: the inventory database)")
	filterCmd.Flags().StringVarP(&search, "search", "s", "", "Match name or code, ignoring case and accents")
	filterCmd.Flags().StringVar(&category, "category", "", "Only this category")
	filterCmd.Flags().IntVar(&minStock, "min-stock", 0, "Minimum stock")
	filterCmd.Flags().IntVar(&maxStock, "max-stock", 0, "Maximum stock")
	filterCmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorites")
	filterCmd.Flags().StringVar(&sortKey, "sort", "", "name-asc, name-desc, price-asc, price-desc, stock-asc or stock-desc")

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Query products",
	}
	cmd.AddCommand(filterCmd)
	return cmd
}

func newScanCmd(c *cli) *cobra.Command {
	var (
		file   string
		keyGap time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read a barcode scanner on stdin and look every code up",
		Long: "scan reads keystrokes from a keyboard-wedge scanner on stdin. Keys typed\n" +
			"faster than the key gap form one code; Enter or a pause ends it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lookup, closeFn, err := c.productLookup(cmd, file)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			keys := make(chan rune)
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go readRunes(ctx, cmd.InOrStdin(), keys)

			wedge := scanner.NewWedge(scanner.WithKeyGap(keyGap))
			err = wedge.Run(ctx, keys, func(code string) {
				p, err := lookup(ctx, code)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", code, err)
					return
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", p.Code, p.Name, p.Price.StringFixed(2))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with a product array (default: the inventory database)")
	cmd.Flags().DurationVar(&keyGap, "key-gap", scanner.DefaultKeyGap, "Longest pause between two keys of one code")
	return cmd
}

type lookupFunc func(ctx context.Context, code string) (*catalog.Product, error)

// productLookup finds scanned codes in a JSON file or the inventory database
func (c *cli) productLookup(cmd *cobra.Command, file string) (lookupFunc, func(), error) {
	if file != "" {
		var products []catalog.Product
		if err := readJSON(file, &products); err != nil {
			return nil, nil, err
		}
		byCode := make(map[string]catalog.Product, len(products))
		for _, p := range products {
			byCode[strings.TrimSpace(p.Code)] = p
		}
		return func(_ context.Context, code string) (*catalog.Product, error) {
			p, ok := byCode[code]
			if !ok {
				return nil, shared.NewDomainError(shared.CodeNotFound, "No product with code "+code)
			}
			return &p, nil
		}, func() {}, nil
	}

	comp, err := c.components(cmd, bootstrap.Options{})
	if err != nil {
		return nil, nil, err
	}
	return comp.Catalog.FindProductByCode, func() { _ = comp.Close() }, nil
}

// readRunes feeds r into keys until EOF, then closes keys
func readRunes(ctx context.Context, r io.Reader, keys chan<- rune) {
	defer close(keys)
	br := bufio.NewReader(r)
	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			return
		}
		select {
		case keys <- ch:
		case <-ctx.Done():
			return
		}
	}
}

func newArchiveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage the PDF archive",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived PDFs older than a given age (filesystem archive only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			comp, err := c.components(cmd, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer comp.Close()

			fsStore, ok := comp.Archive.(*storage.FileSystemStore)
			if !ok {
				return fmt.Errorf("prune needs the filesystem archive, storage driver is %q", comp.Config.Storage.Driver)
			}
			deleted, err := fsStore.CleanupOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d documents\n", deleted)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age of the documents to delete")
	cmd.AddCommand(prune)
	return cmd
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
