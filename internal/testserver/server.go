// Package testserver is an in-process stand-in for the TikTok web endpoints.
// It decrypts x-tt-params exactly as the real service does, so a request
// signed for the wrong cursor is visible in Calls.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"ttscraper/pkg/models"
	"ttscraper/pkg/signer"
)

// Account is a profile the server knows about
type Account struct {
	Username string
	SecUID   string
	Nickname string
	// VideoCount is the advertised post count; defaults to len(Items)
	VideoCount int
	Private    bool
	// PageCap silently caps the count honoured per page when positive
	PageCap int
	Items   []models.RawItem
}

// Response is a canned reply for one listing request
type Response struct {
	Status int
	Body   string
}

// Call records one decoded listing request
type Call struct {
	SecUID string
	Cursor int
	Count  int
	Cookie string
}

// Server simulates profile pages and the item_list endpoint
type Server struct {
	server   *httptest.Server
	signer   *signer.XTTSigner
	mu       sync.Mutex
	accounts map[string]*Account // by username
	bySecUID map[string]*Account
	scripts  map[string][]Response // queued overrides by secUid
	failures map[string]map[int]Response
	calls    []Call
	requests int32
}

// New starts a server. Close it when done.
func New() *Server {
	s, err := signer.NewXTTSigner()
	if err != nil {
		panic(err)
	}

	m := &Server{
		signer:   s,
		accounts: make(map[string]*Account),
		bySecUID: make(map[string]*Account),
		scripts:  make(map[string][]Response),
		failures: make(map[string]map[int]Response),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/post/item_list/", m.handleItemList)
	mux.HandleFunc("/", m.handleProfile)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the base URL to point a client at
func (m *Server) URL() string {
	return m.server.URL
}

// Close shuts down the server
func (m *Server) Close() {
	m.server.Close()
}

// AddAccount registers a profile and its posts, newest first
func (m *Server) AddAccount(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.VideoCount == 0 {
		a.VideoCount = len(a.Items)
	}
	m.accounts[strings.ToLower(a.Username)] = &a
	m.bySecUID[a.SecUID] = &a
}

// Script queues responses that are served, in order, before the account's
// normal pages. Use it for empty pages and failures.
func (m *Server) Script(secUID string, responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[secUID] = append(m.scripts[secUID], responses...)
}

// FailAt makes every request for secUID at cursor answer with r
func (m *Server) FailAt(secUID string, cursor int, r Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[secUID] == nil {
		m.failures[secUID] = make(map[int]Response)
	}
	m.failures[secUID][cursor] = r
}

// Calls returns every decoded listing request so far
func (m *Server) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// RequestCount returns the number of requests of any kind
func (m *Server) RequestCount() int {
	return int(atomic.LoadInt32(&m.requests))
}

func (m *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requests, 1)

	username, ok := strings.CutPrefix(r.URL.Path, "/@")
	if !ok {
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	account := m.accounts[strings.ToLower(username)]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if account == nil {
		fmt.Fprint(w, profileHTML(`{"__DEFAULT_SCOPE__":{"webapp.user-detail":{"statusCode":10221}}}`))
		return
	}

	detail := map[string]interface{}{
		"__DEFAULT_SCOPE__": map[string]interface{}{
			"webapp.user-detail": map[string]interface{}{
				"statusCode": 0,
				"userInfo": map[string]interface{}{
					"user": map[string]interface{}{
						"id":             "7" + strconv.Itoa(len(account.SecUID)),
						"uniqueId":       account.Username,
						"nickname":       account.Nickname,
						"secUid":         account.SecUID,
						"privateAccount": account.Private,
					},
					"stats": map[string]interface{}{
						"videoCount": account.VideoCount,
					},
				},
			},
		},
	}
	data, _ := json.Marshal(detail)
	fmt.Fprint(w, profileHTML(string(data)))
}

func (m *Server) handleItemList(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requests, 1)

	params, err := m.signer.Open(signer.Token(r.Header.Get("x-tt-params")))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"statusCode":10000,"statusMsg":"invalid x-tt-params"}`)
		return
	}

	secUID, _ := params.Get("secUid")
	cursorText, _ := params.Get("cursor")
	countText, _ := params.Get("count")
	cursor, _ := strconv.Atoi(cursorText)
	count, _ := strconv.Atoi(countText)

	m.mu.Lock()
	m.calls = append(m.calls, Call{SecUID: secUID, Cursor: cursor, Count: count, Cookie: r.Header.Get("Cookie")})
	var scripted *Response
	if queue := m.scripts[secUID]; len(queue) > 0 {
		scripted = &queue[0]
		m.scripts[secUID] = queue[1:]
	} else if r, ok := m.failures[secUID][cursor]; ok {
		scripted = &r
	}
	account := m.bySecUID[secUID]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if scripted != nil {
		status := scripted.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		fmt.Fprint(w, scripted.Body)
		return
	}

	if account == nil {
		fmt.Fprintf(w, `{"statusCode":%d,"statusMsg":"item not found"}`, 10201)
		return
	}

	resp := models.ItemListResponse{Cursor: models.Cursor(cursor)}
	if account.PageCap > 0 {
		count = min(count, account.PageCap)
	}
	if cursor < len(account.Items) && count > 0 {
		end := min(cursor+count, len(account.Items))
		resp.ItemList = account.Items[cursor:end]
		resp.Cursor = models.Cursor(end)
		resp.HasMore = end < len(account.Items)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}

func profileHTML(data string) string {
	return `<!DOCTYPE html><html><head><title>TikTok</title>` +
		`<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">` +
		data + `</script></head><body></body></html>`
}

// Items builds n video posts with ids prefix-0 .. prefix-(n-1)
func Items(prefix string, n int) []models.RawItem {
	items := make([]models.RawItem, n)
	for i := range items {
		items[i] = models.RawItem{
			ID:         fmt.Sprintf("%s-%d", prefix, i),
			Desc:       fmt.Sprintf("post %d #%s", i, prefix),
			CreateTime: int64(1700000000 - i*3600),
			Stats:      models.RawStats{PlayCount: int64(100 * (i + 1)), DiggCount: int64(i)},
			Video:      &models.RawVideo{ID: fmt.Sprintf("v%d", i)},
		}
	}
	return items
}

// EmptyPage is a 200 response with no items
func EmptyPage() Response {
	return Response{Status: http.StatusOK, Body: `{"statusCode":0,"cursor":"0","hasMore":true,"itemList":[]}`}
}
