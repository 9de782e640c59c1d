package testserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/tiktok"
)

func newClient(t *testing.T, srv *Server) *tiktok.Client {
	t.Helper()
	client, err := tiktok.NewClient(tiktok.Options{
		BaseURL: srv.URL(),
		Cookie:  "msToken=test",
		Timeout: 2 * time.Second,
		Logger:  logger.NewNopLogger(),
	})
	require.NoError(t, err)
	return client
}

func TestServerPagesAccount(t *testing.T) {
	srv := New()
	defer srv.Close()
	srv.AddAccount(Account{Username: "creator", SecUID: "sec-1", Items: Items("c", 5)})

	client := newClient(t, srv)
	ctx := context.Background()

	identity, err := client.ResolveIdentity(ctx, "@creator")
	require.NoError(t, err)
	assert.Equal(t, models.ResourceHandle("sec-1"), identity.Handle)
	assert.Equal(t, 5, identity.ItemCountHint)

	page := client.FetchPage(ctx, models.PageRequest{Handle: "sec-1", Cursor: 0, PageSize: 3})
	require.Equal(t, models.OutcomeSuccess, page.Outcome)
	assert.Len(t, page.Items, 3)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, 3, *page.NextCursor)
	assert.True(t, page.HasMore)

	page = client.FetchPage(ctx, models.PageRequest{Handle: "sec-1", Cursor: 3, PageSize: 3})
	require.Equal(t, models.OutcomeSuccess, page.Outcome)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)

	page = client.FetchPage(ctx, models.PageRequest{Handle: "sec-1", Cursor: 5, PageSize: 3})
	assert.Equal(t, models.OutcomeEmpty, page.Outcome)

	calls := srv.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, Call{SecUID: "sec-1", Cursor: 3, Count: 3, Cookie: "msToken=test"}, calls[1])
	assert.Equal(t, 4, srv.RequestCount())
}

func TestServerScript(t *testing.T) {
	srv := New()
	defer srv.Close()
	srv.AddAccount(Account{Username: "creator", SecUID: "sec-1", Items: Items("c", 2)})
	srv.Script("sec-1", EmptyPage(), Response{Status: http.StatusTooManyRequests})

	client := newClient(t, srv)
	ctx := context.Background()
	req := models.PageRequest{Handle: "sec-1", PageSize: 10}

	assert.Equal(t, models.OutcomeEmpty, client.FetchPage(ctx, req).Outcome)

	limited := client.FetchPage(ctx, req)
	assert.Equal(t, models.OutcomeTransientError, limited.Outcome)
	assert.Equal(t, errors.ErrorTypeRateLimit, limited.Err.Type)

	assert.Equal(t, models.OutcomeSuccess, client.FetchPage(ctx, req).Outcome)
}

func TestServerUnknownAccount(t *testing.T) {
	srv := New()
	defer srv.Close()
	client := newClient(t, srv)
	ctx := context.Background()

	_, err := client.ResolveIdentity(ctx, "ghost")
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))

	page := client.FetchPage(ctx, models.PageRequest{Handle: "nope", PageSize: 10})
	assert.Equal(t, models.OutcomeTerminalError, page.Outcome)
	assert.Equal(t, errors.ErrorTypeNotFound, page.Err.Type)
}

func TestServerRejectsUnsignedRequests(t *testing.T) {
	srv := New()
	defer srv.Close()

	resp, err := http.Get(srv.URL() + "/api/post/item_list/?aid=1988")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, srv.Calls())
}
