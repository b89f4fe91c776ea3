package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pdfstore/internal/model"
	"pdfstore/internal/service"
)

type ingestFlags struct {
	title    string
	author   string
	comments string
	json     bool
}

func newIngestCmd() *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Store local PDF files through the ingestion pipeline",
		Long: `Parses each file, records its metadata and thumbnail, and writes it to the
configured storage, exactly as an HTTP upload of the same files would.
Exits non-zero when any file did not reach storage.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, f)
		},
	}
	cmd.Flags().StringVar(&f.title, "title", "", "Title applied to every file")
	cmd.Flags().StringVar(&f.author, "author", "", "Author applied to every file")
	cmd.Flags().StringVar(&f.comments, "comments", "", "Comments attached to every file")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print results as JSON")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string, f ingestFlags) error {
	meta, err := metadataFromFlags(cmd, f)
	if err != nil {
		return err
	}

	files := make([]service.UploadFile, 0, len(args))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, service.UploadFile{Name: filepath.Base(p), Data: data})
	}

	cfg := loadConfig()
	logger, err := commandLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, closeFn, err := buildIngester(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	outcomes, err := svc.Ingest(cmd.Context(), files, meta)
	if err != nil {
		return err
	}

	if f.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	} else {
		printOutcomes(cmd.OutOrStdout(), outcomes)
	}

	failed := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return nil
}

// metadataFromFlags returns nil when no metadata flag was given. A flag that
// was given must not be blank.
func metadataFromFlags(cmd *cobra.Command, f ingestFlags) (*model.Metadata, error) {
	var meta model.Metadata
	set := false
	for _, fl := range []struct {
		name string
		val  string
		dst  **string
	}{
		{"title", f.title, &meta.Title},
		{"author", f.author, &meta.Author},
		{"comments", f.comments, &meta.Comments},
	} {
		if !cmd.Flags().Changed(fl.name) {
			continue
		}
		if strings.TrimSpace(fl.val) == "" {
			return nil, fmt.Errorf("--%s must not be blank", fl.name)
		}
		v := fl.val
		*fl.dst = &v
		set = true
	}
	if !set {
		return nil, nil
	}
	return &meta, nil
}

func printOutcomes(w io.Writer, outcomes []service.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tPAGES\tSTORED AS\tDETAIL")
	for _, o := range outcomes {
		detail := o.Error
		if detail == "" && len(o.Warnings) > 0 {
			detail = strings.Join(o.Warnings, "; ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", o.FileName, o.Status, o.Pages, o.StoredAs, detail)
	}
	tw.Flush()
}
