package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// defaultPageSize is the files.list page size when the caller passes 0.
// 1000 is the maximum the Drive API allows.
const defaultPageSize = 1000

// listFields selects exactly the file resource fields the backup pipeline
// consumes. Narrow field selection keeps listing pages small.
const listFields = "nextPageToken, files(id, name, mimeType, size, capabilities/canDownload)"

// ListPage fetches a single page of the user's file index. An empty
// pageToken starts from the beginning. Returns the page's records and the
// continuation token; an empty token means the listing is exhausted.
// Folders and shortcut entries are filtered out — they have no retrievable
// content stream.
func (c *Client) ListPage(ctx context.Context, pageToken string, pageSize int) ([]FileRecord, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("fields", listFields)
	q.Set("q", "trashed=false")

	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	resp, err := c.Do(ctx, http.MethodGet, "/files?"+q.Encode())
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lfr listFilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&lfr); err != nil {
		return nil, "", fmt.Errorf("drive: decoding file list response: %w", err)
	}

	records := make([]FileRecord, 0, len(lfr.Files))

	for i := range lfr.Files {
		rec := lfr.Files[i].toRecord()
		if rec.IsFolder() || rec.IsShortcut() {
			continue
		}

		records = append(records, rec)
	}

	c.logger.Debug("fetched file list page",
		slog.Int("count", len(records)),
		slog.Int("filtered", len(lfr.Files)-len(records)),
		slog.Bool("has_more", lfr.NextPageToken != ""),
	)

	return records, lfr.NextPageToken, nil
}

// Walk pages through the entire file index in provider order, invoking fn
// for every downloadable record as it arrives. If fn returns an error the
// walk stops and that error is returned unchanged, so callers can use a
// sentinel to stop early. Page fetch failures are returned as-is and are
// not retried here beyond the client's HTTP-level retry policy.
func (c *Client) Walk(ctx context.Context, pageSize int, fn func(FileRecord) error) error {
	var (
		pageToken string
		pages     int
		total     int
	)

	c.logger.Info("listing files")

	for {
		records, next, err := c.ListPage(ctx, pageToken, pageSize)
		if err != nil {
			return fmt.Errorf("drive: listing files (page %d): %w", pages+1, err)
		}

		pages++
		total += len(records)

		for i := range records {
			if err := fn(records[i]); err != nil {
				return err
			}
		}

		if next == "" {
			break
		}

		pageToken = next
	}

	c.logger.Info("file listing complete",
		slog.Int("pages", pages),
		slog.Int("total_files", total),
	)

	return nil
}
