package cli

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wumo-util/http-stack/client"
	"github.com/wumo-util/http-stack/client/download"
)

var errChecksumOnResume = errors.New("--sha256 cannot verify a resumed download")

type downloadFlags struct {
	output       string
	from         int64
	sha256       string
	skipExisting bool
	noProgress   bool
}

func (a *app) downloadCmd() *cobra.Command {
	var f downloadFlags

	cmd := &cobra.Command{
		Use:   "download URL -o FILE",
		Short: "Stream a response body to a file",
		Long: `Stream a response body to a file with a progress bar.

Without --from the body is written to a temporary file next to FILE and
renamed over it once complete. With --from the file is truncated to the
given offset and the rest is requested with a Range header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.from > 0 && f.sha256 != "" {
				return errChecksumOnResume
			}

			header, err := a.header()
			if err != nil {
				return err
			}

			return a.withClient(cmd, func(ctx context.Context, c *client.Client) error {
				if f.from > 0 {
					return a.resume(ctx, c, args[0], header, f)
				}
				return a.download(ctx, c, args[0], header, f)
			})
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "destination file")
	cmd.Flags().Int64Var(&f.from, "from", 0, "resume at this byte offset")
	cmd.Flags().StringVar(&f.sha256, "sha256", "", "expected SHA-256 of the whole body, hex encoded")
	cmd.Flags().BoolVar(&f.skipExisting, "skip-existing", false, "leave FILE alone if it already exists")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "log progress instead of drawing a bar")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *app) download(ctx context.Context, c *client.Client, rawURL string, header http.Header, f downloadFlags) error {
	opts := []client.DownloadOption{
		client.WithChunkSize(a.cfg.ParsedChunkSize),
		client.WithProgress(a.progress(f)),
	}
	if f.sha256 != "" {
		opts = append(opts, client.WithChecksum(sha256.New(), f.sha256))
	}
	if f.skipExisting {
		opts = append(opts, client.WithSkipExisting())
	}

	if err := c.DownloadFile(ctx, rawURL, header, f.output, opts...); err != nil {
		return err
	}

	return a.summary(f.output)
}

func (a *app) resume(ctx context.Context, c *client.Client, rawURL string, header http.Header, f downloadFlags) error {
	file, err := os.OpenFile(f.output, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}

	if err := seekTo(file, f.from); err != nil {
		file.Close()
		return err
	}

	// DownloadFrom closes file.
	if _, err := c.DownloadFrom(ctx, file, rawURL, header, f.from, a.progress(f), client.WithChunkSize(a.cfg.ParsedChunkSize)); err != nil {
		return err
	}

	return a.summary(f.output)
}

// seekTo positions file at offset, truncating anything past it.
func seekTo(file *os.File, offset int64) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("inspecting output: %w", err)
	}

	if info.Size() < offset {
		return fmt.Errorf("output holds %s, cannot resume at byte %d", humanize.IBytes(uint64(info.Size())), offset)
	}
	if info.Size() > offset {
		if err := file.Truncate(offset); err != nil {
			return fmt.Errorf("truncating output: %w", err)
		}
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking output: %w", err)
	}

	return nil
}

func (a *app) progress(f downloadFlags) download.ProgressFunc {
	if f.noProgress {
		return download.LogProgress(a.logger)
	}
	return progressBar(a.stderr, "downloading")
}

// progressBar draws a byte counting bar on w. The bar is created on the
// first report, once the total is known; a negative total shows a spinner.
func progressBar(w io.Writer, description string) download.ProgressFunc {
	var bar *progressbar.ProgressBar

	return func(n, total int64) {
		if bar == nil {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowBytes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(10),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionOnCompletion(func() { fmt.Fprint(w, "\n") }),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetRenderBlankState(true),
			)
		}

		if n == 0 {
			_ = bar.Finish()
			return
		}
		_ = bar.Add64(n)
	}
}

func (a *app) summary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("inspecting output: %w", err)
	}

	fmt.Fprintf(a.stdout, "saved %s (%s)\n", path, humanize.IBytes(uint64(info.Size())))

	return nil
}
