package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
	"predicacal/internal/service"
)

// monthFlags holds --year/--month; zero means the current month.
type monthFlags struct {
	year  int
	month int
}

func (m *monthFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&m.year, "year", 0, "calendar year (default: current)")
	cmd.Flags().IntVar(&m.month, "month", 0, "calendar month 1-12 (default: current)")
}

func (m monthFlags) resolve(svc *service.Service) (int, time.Month) {
	year, month := svc.CurrentMonth()
	if m.year != 0 {
		year = m.year
	}
	if m.month != 0 {
		month = time.Month(m.month)
	}
	return year, month
}

func (a *app) newRenderCmd() *cobra.Command {
	var (
		mf  monthFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a month to PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeDocument(cmd.Context(), mf, out, func(ctx context.Context, svc *service.Service, y int, m time.Month) (service.Document, error) {
				return svc.MonthPDF(ctx, y, m)
			})
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default: calendario_YYYY-MM.pdf)")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		mf   monthFlags
		out  string
		feed bool
	)
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Export a month as Apple and Google ICS files, or the subscription feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeDocument(cmd.Context(), mf, out, func(ctx context.Context, svc *service.Service, y int, m time.Month) (service.Document, error) {
				if feed {
					return svc.Feed(ctx)
				}
				return svc.MonthICS(ctx, y, m)
			})
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default: calendarios.zip)")
	cmd.Flags().BoolVar(&feed, "feed", false, "write the rolling subscription feed instead of one month")
	return cmd
}

func (a *app) newImportCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "import-ics [file]",
		Short: "Import the events of an ICS file or URL",
		Args: func(cmd *cobra.Command, args []string) error {
			if url == "" && len(args) != 1 {
				return fmt.Errorf("expected one ICS file or --url")
			}
			if url != "" && len(args) != 0 {
				return fmt.Errorf("give either a file or --url, not both")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			var res service.ImportResult
			if url != "" {
				res, err = svc.ImportURL(ctx, url)
			} else {
				var body []byte
				body, err = os.ReadFile(args[0])
				if err != nil {
					return apperr.Wrap(apperr.CodeInvalidArgument, err, "read %s", args[0])
				}
				res, err = svc.Import(ctx, body, filepath.Base(args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d events\n", res.Created)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "import from an http(s) or webcal URL")
	return cmd
}

type documentFunc func(ctx context.Context, svc *service.Service, year int, month time.Month) (service.Document, error)

// writeDocument generates a document and writes it to out. An empty out
// uses the document's filename in the working directory; an existing
// directory receives the file under that name.
func (a *app) writeDocument(ctx context.Context, mf monthFlags, out string, gen documentFunc) error {
	svc, closeFn, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	year, month := mf.resolve(svc)
	doc, err := gen(ctx, svc, year, month)
	if err != nil {
		return err
	}

	path := outputPath(out, doc.Filename)
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	appLog.Info("document written", "path", path, "bytes", len(doc.Body))
	return nil
}

func outputPath(out, filename string) string {
	if out == "" {
		return filename
	}
	if strings.HasSuffix(out, string(os.PathSeparator)) {
		return filepath.Join(out, filename)
	}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}
