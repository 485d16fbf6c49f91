package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "trashed=false", r.URL.Query().Get("q"))
		assert.Equal(t, "200", r.URL.Query().Get("pageSize"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"nextPageToken": "token-2",
			"files": [
				{"id": "f1", "name": "photo.jpg", "mimeType": "image/jpeg", "size": "2048"},
				{"id": "f2", "name": "Budget", "mimeType": "application/vnd.google-apps.spreadsheet"},
				{"id": "d1", "name": "Stuff", "mimeType": "application/vnd.google-apps.folder"},
				{"id": "s1", "name": "Link", "mimeType": "application/vnd.google-apps.shortcut"},
				{"id": "f3", "name": "locked.bin", "mimeType": "application/octet-stream",
				 "size": "10", "capabilities": {"canDownload": false}}
			]
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	records, next, err := client.ListPage(context.Background(), "", 200)
	require.NoError(t, err)

	assert.Equal(t, "token-2", next)
	require.Len(t, records, 3) // folder and shortcut filtered

	assert.Equal(t, "f1", records[0].ID)
	assert.Equal(t, int64(2048), records[0].Size)
	assert.True(t, records[0].CanDownload)
	assert.False(t, records[0].IsNativeDoc())

	assert.Equal(t, "f2", records[1].ID)
	assert.Equal(t, int64(SizeUnknown), records[1].Size)
	assert.True(t, records[1].IsNativeDoc())

	assert.Equal(t, "f3", records[2].ID)
	assert.False(t, records[2].CanDownload)
}

func TestListPage_PassesPageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-2", r.URL.Query().Get("pageToken"))
		fmt.Fprint(w, `{"files": []}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	records, next, err := client.ListPage(context.Background(), "token-2", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, next)
}

func TestWalk_FivePages(t *testing.T) {
	const pages = 5

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			_, err := fmt.Sscanf(tok, "page-%d", &page)
			require.NoError(t, err)
		}

		next := ""
		if page < pages {
			next = fmt.Sprintf("page-%d", page+1)
		}

		fmt.Fprintf(w, `{
			"nextPageToken": %q,
			"files": [
				{"id": "f%d-1", "name": "a.txt", "mimeType": "text/plain", "size": "1"},
				{"id": "f%d-2", "name": "b.txt", "mimeType": "text/plain", "size": "1"}
			]
		}`, next, page, page)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var seen []string
	err := client.Walk(context.Background(), 100, func(f FileRecord) error {
		seen = append(seen, f.ID)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, seen, pages*2)
	assert.Equal(t, "f1-1", seen[0])
	assert.Equal(t, "f5-2", seen[len(seen)-1])
}

func TestWalk_PageFailureSurfaced(t *testing.T) {
	var page int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		page++
		if page == 1 {
			fmt.Fprint(w, `{"nextPageToken": "t2", "files": [{"id": "f1", "name": "a", "mimeType": "text/plain", "size": "1"}]}`)
			return
		}

		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"token expired"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var seen int
	err := client.Walk(context.Background(), 100, func(FileRecord) error {
		seen++
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, seen) // page 1's record was delivered before the failure
}

func TestWalk_CallbackErrorStopsWalk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"nextPageToken": "more", "files": [{"id": "f1", "name": "a", "mimeType": "text/plain", "size": "1"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	errStop := errors.New("stop")
	err := client.Walk(context.Background(), 100, func(FileRecord) error {
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
}
