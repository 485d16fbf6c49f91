package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Fetch streams the content of one file into w. Blob files are downloaded
// directly; Google-native documents are export-converted to their
// interchange format first. Bytes are forwarded as they arrive — the file
// is never materialized in memory. Returns the number of bytes written.
//
// Failures are permanent from the caller's perspective: the client has
// already applied its HTTP-level retry policy. Export conversions that
// exceed the provider's size ceiling surface as ErrExportTooLarge.
func (c *Client) Fetch(ctx context.Context, file FileRecord, w io.Writer) (int64, error) {
	if target, ok := ExportTarget(file.MimeType); ok {
		return c.export(ctx, file, target, w)
	}

	return c.download(ctx, file, w)
}

// download streams a blob file's raw content (files.get with alt=media).
func (c *Client) download(ctx context.Context, file FileRecord, w io.Writer) (int64, error) {
	c.logger.Info("downloading file",
		slog.String("file_id", file.ID),
		slog.String("name", file.Name),
		slog.Int64("size", file.Size),
	)

	path := fmt.Sprintf("/files/%s?alt=media", url.PathEscape(file.ID))

	return c.stream(ctx, path, w)
}

// export streams a format-converted copy of a Google-native document
// (files.export). The provider rejects conversions above roughly 10 MB
// with exportSizeLimitExceeded, which classify() maps to ErrExportTooLarge.
func (c *Client) export(ctx context.Context, file FileRecord, targetMime string, w io.Writer) (int64, error) {
	c.logger.Info("exporting file",
		slog.String("file_id", file.ID),
		slog.String("name", file.Name),
		slog.String("source_mime", file.MimeType),
		slog.String("target_mime", targetMime),
	)

	path := fmt.Sprintf("/files/%s/export?mimeType=%s",
		url.PathEscape(file.ID), url.QueryEscape(targetMime))

	return c.stream(ctx, path, w)
}

// stream executes a GET and copies the response body to w in bounded
// chunks. Only the request/response cycle is retried by Do; a failure
// mid-stream is surfaced to the caller with the partial byte count.
func (c *Client) stream(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.Do(ctx, http.MethodGet, path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming file content failed",
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("drive: streaming file content: %w", copyErr)
	}

	return n, nil
}
