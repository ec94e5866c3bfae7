package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/dashboard"
)

type listOptions struct {
	search string
	page   int
	size   int
}

func newListCommand(opts *options) *cobra.Command {
	lo := listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Aggregate all audits and print one page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := opts.controller(cmd, nil)
			if err != nil {
				return err
			}
			defer ctrl.Close()
			if err := ctrl.Reload(cmd.Context()); err != nil {
				return explain(err)
			}
			if lo.size > 0 {
				ctrl.SetPageSize(lo.size)
			}
			if lo.search != "" {
				ctrl.SearchNow(strings.TrimSpace(lo.search))
			}
			if lo.page > 1 {
				ctrl.GoTo(lo.page)
			}
			view := ctrl.View()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), jsonView(view))
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVarP(&lo.search, "search", "s", "", "filter by document type, inspection type or company")
	cmd.Flags().IntVar(&lo.page, "page", 1, "page to show")
	cmd.Flags().IntVar(&lo.size, "size", audits.DefaultPageSize, "rows per page")
	return cmd
}

func newDownloadCommand(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the document of one audit record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := opts.controller(cmd, nil)
			if err != nil {
				return err
			}
			defer ctrl.Close()
			if err := ctrl.Reload(cmd.Context()); err != nil {
				return explain(err)
			}
			path, err := saveDocument(cmd, ctrl, args[0], output)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file or directory to write to (default: generated name in the current directory)")
	return cmd
}

// saveDocument downloads id and writes it below output. An existing
// directory or an empty output keeps the generated file name.
func saveDocument(cmd *cobra.Command, ctrl *dashboard.Controller, id, output string) (string, error) {
	doc, err := ctrl.Download(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownRecord) {
			return "", fmt.Errorf("audit %s not found", id)
		}
		return "", explain(err)
	}
	path := doc.Name
	if output != "" {
		path = output
		if info, statErr := os.Stat(output); statErr == nil && info.IsDir() {
			path = filepath.Join(output, doc.Name)
		}
	}
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

type viewRow struct {
	Number            int    `json:"no"`
	ID                string `json:"id"`
	DocumentType      string `json:"documentType"`
	SubInspectionType string `json:"subInspectionType"`
	CompanyName       string `json:"companyName"`
	CreatedAt         string `json:"createdAt"`
}

type viewPayload struct {
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Search     string    `json:"search,omitempty"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	TotalItems int       `json:"totalItems"`
	Rows       []viewRow `json:"rows"`
}

func jsonView(v dashboard.View) viewPayload {
	out := viewPayload{
		Status:     v.Status.String(),
		Message:    v.Message,
		Search:     v.Term,
		Page:       v.Page,
		PageSize:   v.PageSize,
		TotalPages: v.TotalPages,
		TotalItems: v.TotalItems,
		Rows:       make([]viewRow, 0, len(v.Rows)),
	}
	for _, row := range v.Rows {
		out.Rows = append(out.Rows, viewRow{
			Number:            row.Number,
			ID:                row.ID,
			DocumentType:      row.DocumentType,
			SubInspectionType: row.SubInspectionType,
			CompanyName:       row.CompanyName,
			CreatedAt:         row.CreatedAt,
		})
	}
	return out
}

func printView(w io.Writer, v dashboard.View) {
	if v.Message != "" {
		fmt.Fprintln(w, v.Message)
	}
	if len(v.Rows) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NO\tID\tJENIS DOKUMEN\tJENIS INSPEKSI\tPERUSAHAAN\tTANGGAL")
		for _, row := range v.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", row.Number, row.ID, row.DocumentType, row.SubInspectionType, row.CompanyName, row.CreatedAt)
		}
		_ = tw.Flush()
	}
	if v.TotalItems > 0 {
		fmt.Fprintf(w, "%s Halaman %d dari %d.\n", v.Info, v.Page, v.TotalPages)
	}
}
