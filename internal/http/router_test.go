package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"friendlychat/backend/internal/config"
	"friendlychat/backend/internal/domain/blobs"
	"friendlychat/backend/internal/domain/chat"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
)

type testServer struct {
	handler http.Handler
	idp     *identity.Memory
	store   *messages.Memory
	view    *View
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	idp := identity.NewMemory()
	idp.Register("tok-ada", identity.Session{UID: "u1", DisplayName: identity.Optional("Ada")})
	store := messages.NewMemory()
	view := NewView()

	svc := chat.NewService(idp, store, view)
	svc.SetBlobStore(blobs.NewMemory("test"))
	t.Cleanup(svc.Close)

	h := NewRouter(RouterDeps{Cfg: config.Config{}, Chat: svc, View: view})
	return &testServer{handler: h, idp: idp, store: store, view: view}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil && r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	if w := ts.do(t, "POST", "/v1/session", "tok-ada", nil); w.Code != 200 {
		t.Fatalf("login: got %d %s", w.Code, w.Body.String())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, "GET", "/healthz", "", nil)
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	var view struct {
		Route string `json:"route"`
	}
	decode(t, ts.do(t, "GET", "/v1/view", "", nil), &view)
	if view.Route != "/login" {
		t.Fatalf("initial view %q want /login", view.Route)
	}

	if w := ts.do(t, "POST", "/v1/session", "", nil); w.Code != 401 {
		t.Fatalf("missing token: got %d want 401", w.Code)
	}
	if w := ts.do(t, "POST", "/v1/session", "bogus", nil); w.Code != 401 {
		t.Fatalf("bad token: got %d want 401", w.Code)
	}
	if w := ts.do(t, "GET", "/v1/me", "", nil); w.Code != 401 {
		t.Fatalf("me signed out: got %d want 401", w.Code)
	}

	ts.login(t)
	if got := ts.view.Route(); got != chat.RouteChat {
		t.Fatalf("view after login %q want %q", got, chat.RouteChat)
	}

	var me identity.Session
	w := ts.do(t, "GET", "/v1/me", "", nil)
	decode(t, w, &me)
	if w.Code != 200 || me.UID != "u1" || me.Name() != "Ada" {
		t.Fatalf("me: got %d %+v", w.Code, me)
	}

	w = ts.do(t, "DELETE", "/v1/session", "", nil)
	decode(t, w, &view)
	if w.Code != 200 || view.Route != "/login" {
		t.Fatalf("logout: got %d %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, "GET", "/v1/me", "", nil); w.Code != 401 {
		t.Fatalf("me after logout: got %d want 401", w.Code)
	}
}

func TestLogoutFailureKeepsView(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)
	ts.idp.FailSignOut(errors.New("network down"))

	var resp struct {
		Message string `json:"message"`
		Route   string `json:"route"`
	}
	w := ts.do(t, "DELETE", "/v1/session", "", nil)
	decode(t, w, &resp)
	if w.Code != 502 || resp.Route != "/chat" || resp.Message == "" {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
	if ts.view.Route() != chat.RouteChat {
		t.Fatalf("view changed to %q", ts.view.Route())
	}
}

func TestPostMessage(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, "POST", "/v1/messages", "", strings.NewReader(`{}`)); w.Code != 400 {
		t.Fatalf("empty message: got %d want 400", w.Code)
	}
	if w := ts.do(t, "POST", "/v1/messages", "", strings.NewReader(`{"text":"hi"}`)); w.Code != 401 {
		t.Fatalf("signed out: got %d want 401", w.Code)
	}

	ts.login(t)
	if w := ts.do(t, "POST", "/v1/messages", "", strings.NewReader(`{"txt":"hi"}`)); w.Code != 400 {
		t.Fatalf("unknown field: got %d want 400", w.Code)
	}

	var ref messages.RecordRef
	w := ts.do(t, "POST", "/v1/messages", "", strings.NewReader(`{"text":"hi"}`))
	decode(t, w, &ref)
	if w.Code != 201 || ref.ID == "" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	recs := ts.store.Records(chat.MessagesCollection)
	if len(recs) != 1 || recs[0].Text != "hi" || *recs[0].UID != "u1" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func multipartImage(t *testing.T, field string) (io.Reader, string) {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "Cat Pic.PNG")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write(img.Bytes())
	_ = mw.Close()
	return &body, mw.FormDataContentType()
}

func TestPostImageMessage(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	post := func(field string) *httptest.ResponseRecorder {
		body, ct := multipartImage(t, field)
		r := httptest.NewRequest("POST", "/v1/messages/image", body)
		r.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, r)
		return w
	}

	if w := post("upload"); w.Code != 400 {
		t.Fatalf("wrong field: got %d want 400", w.Code)
	}

	w := post("file")
	if w.Code != 201 {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	recs := ts.store.Records(chat.MessagesCollection)
	if len(recs) != 1 || !strings.HasPrefix(recs[0].ImageURL, "memory://test/u1/") || !strings.HasSuffix(recs[0].ImageURL, "/cat-pic.png") {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestMapChatError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{chat.ErrEmptyMessage, 400},
		{chat.ErrNotSignedIn, 401},
		{identity.ErrInvalidCredential, 401},
		{chat.ErrUploadUnavailable, 503},
		{chat.ErrWriteFailed, 502},
		{identity.ErrSignOutFailed, 502},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		if got, _ := mapChatError(tc.err); got != tc.want {
			t.Fatalf("mapChatError(%v) = %d want %d", tc.err, got, tc.want)
		}
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) liveEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	var data any
	switch ev.Type {
	case eventMessages:
		var batch []messages.Message
		if err := json.Unmarshal(ev.Data, &batch); err != nil {
			t.Fatalf("decode batch: %v", err)
		}
		data = batch
	case eventSession:
		var s *identity.Session
		if err := json.Unmarshal(ev.Data, &s); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		data = s
	}
	return liveEvent{Type: ev.Type, Data: data}
}

func TestLiveWebsocket(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	seen := map[string]liveEvent{}
	for len(seen) < 2 {
		ev := readEvent(t, conn)
		seen[ev.Type] = ev
	}
	if batch := seen[eventMessages].Data.([]messages.Message); len(batch) != 0 {
		t.Fatalf("initial batch %+v want empty", batch)
	}
	if s := seen[eventSession].Data.(*identity.Session); s != nil {
		t.Fatalf("initial session %+v want nil", s)
	}

	ts.login(t)
	ev := readEvent(t, conn)
	if s, ok := ev.Data.(*identity.Session); ev.Type != eventSession || !ok || s == nil || s.UID != "u1" {
		t.Fatalf("expected session event for u1, got %+v", ev)
	}

	if w := ts.do(t, "POST", "/v1/messages", "", strings.NewReader(`{"text":"hello"}`)); w.Code != 201 {
		t.Fatalf("post: got %d", w.Code)
	}
	ev = readEvent(t, conn)
	batch, ok := ev.Data.([]messages.Message)
	if ev.Type != eventMessages || !ok || len(batch) != 1 || batch[0].Text != "hello" || batch[0].Name == nil || *batch[0].Name != "Ada" {
		t.Fatalf("expected one-message batch, got %+v", ev)
	}
}
