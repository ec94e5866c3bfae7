package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/inspeksi/audit-dashboard/internal/dashboard"
)

const maxParallelDownloads = 3

const browseHelp = `Commands:
  /<text>     search (applied after a short pause; "/" alone clears)
  n, p        next / previous page
  g <page>    go to page
  s <size>    rows per page
  d <id>      download a document into --output
  r           reload all audits
  h           help
  q           quit`

// syncWriter serialises writes from the debounced search and the prompt loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) printView(v dashboard.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w)
	printView(s.w, v)
}

func newBrowseCommand(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively search and page through all audits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &syncWriter{w: cmd.OutOrStdout()}
			ctrl, err := opts.controller(cmd, out.printView)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Reload(cmd.Context()); err != nil {
				if fatal := explain(err); fatal != err {
					return fatal
				}
			}
			fmt.Fprintln(out, browseHelp)

			downloads := new(errgroup.Group)
			downloads.SetLimit(maxParallelDownloads)
			defer func() { _ = downloads.Wait() }()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if term, ok := strings.CutPrefix(line, "/"); ok {
					ctrl.Search(strings.TrimSpace(term))
					continue
				}
				ctrl.Flush()
				verb, arg, _ := strings.Cut(line, " ")
				arg = strings.TrimSpace(arg)
				switch verb {
				case "":
				case "q", "quit", "exit":
					return nil
				case "h", "help", "?":
					fmt.Fprintln(out, browseHelp)
				case "n":
					if !ctrl.Next() {
						fmt.Fprintln(out, "Already on the last page.")
					}
				case "p":
					if !ctrl.Prev() {
						fmt.Fprintln(out, "Already on the first page.")
					}
				case "g":
					n, err := strconv.Atoi(arg)
					if err != nil || !ctrl.GoTo(n) {
						fmt.Fprintf(out, "Cannot go to page %q.\n", arg)
					}
				case "s":
					size, err := strconv.Atoi(arg)
					if err != nil || size <= 0 {
						fmt.Fprintf(out, "Invalid page size %q.\n", arg)
						continue
					}
					ctrl.SetPageSize(size)
				case "r":
					if err := ctrl.Reload(cmd.Context()); err != nil {
						if fatal := explain(err); fatal != err {
							return fatal
						}
					}
				case "d":
					if arg == "" {
						fmt.Fprintln(out, "Usage: d <id>")
						continue
					}
					id := arg
					downloads.Go(func() error {
						path, err := saveDocument(cmd, ctrl, id, output)
						if err != nil {
							fmt.Fprintf(out, "Download %s failed: %v\n", id, err)
							return nil
						}
						fmt.Fprintf(out, "Saved %s\n", path)
						return nil
					})
				default:
					fmt.Fprintf(out, "Unknown command %q. Type h for help.\n", verb)
				}
			}
			ctrl.Flush()
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory for downloaded documents")
	return cmd
}
