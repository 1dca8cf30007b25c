package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/wordmaster/internal/session"
	"github.com/starford/wordmaster/internal/testutil"
)

// testEnv sets up a controller with the shared test deck and a router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*session.Controller, http.Handler) {
	t.Helper()
	ctrl := testutil.TestController(t, testutil.Words)
	return ctrl, NewRouter(ctrl, authToken != "", authToken, nil)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode state: %v (%s)", err, w.Body.String())
	}
	return snap
}

func TestGetState(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	snap := decodeState(t, w)
	if snap.Size != 3 || snap.Current == nil || snap.Current.Term != "apple" {
		t.Errorf("unexpected state: %+v", snap)
	}
	if snap.Mode != session.ModeFlashcard || snap.Filter != session.FilterAll {
		t.Errorf("mode/filter = %s/%s", snap.Mode, snap.Filter)
	}
}

func TestImport_TextPlain(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader("sun;太阳\nmoon;月亮\nbroken line\n"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp ImportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Imported != 2 || resp.State.Size != 2 || resp.State.Current.Term != "sun" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestImport_Multipart(t *testing.T) {
	ctrl, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "words.txt")
	fw.Write([]byte("hello;你好\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if got := ctrl.Store().Len(); got != 1 {
		t.Errorf("store len = %d, want 1", got)
	}
}

func TestImport_RejectsNonText(t *testing.T) {
	ctrl, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "photo.png")
	fw.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", w.Code)
	}
	if ctrl.Store().Len() != 3 {
		t.Error("collection must be unchanged")
	}
}

func TestImport_RejectsBinaryPlainBody(t *testing.T) {
	ctrl, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader("\x00\x01\x02PK\x03\x04;zip\nx;y\n"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", w.Code)
	}
	if got := ctrl.Store().Words(); len(got) != 3 || got[0].Term != "apple" {
		t.Errorf("collection changed: %+v", got)
	}
}

func TestImport_EmptyLeavesCollection(t *testing.T) {
	ctrl, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader("no delimiter here\n\n"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if ctrl.Store().Len() != 3 {
		t.Error("collection must be unchanged")
	}
}

func TestImport_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNavigation(t *testing.T) {
	_, router := testEnv(t, "")

	if snap := decodeState(t, do(t, router, http.MethodPost, "/prev", nil)); snap.Current.Term != "dog" {
		t.Errorf("prev from first = %s, want dog", snap.Current.Term)
	}
	if snap := decodeState(t, do(t, router, http.MethodPost, "/next", nil)); snap.Current.Term != "apple" {
		t.Errorf("next from last = %s, want apple", snap.Current.Term)
	}
}

func TestFlipAndDirection(t *testing.T) {
	_, router := testEnv(t, "")

	snap := decodeState(t, do(t, router, http.MethodPost, "/flip", nil))
	if !snap.Flipped {
		t.Error("flip should set flipped")
	}
	snap = decodeState(t, do(t, router, http.MethodPost, "/direction/toggle", nil))
	if snap.Direction != session.DirectionDefinitionFirst {
		t.Errorf("direction = %s", snap.Direction)
	}
}

func TestRate(t *testing.T) {
	ctrl, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/rate", map[string]string{"status": "familiar"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	snap := decodeState(t, w)
	if snap.Current.Term != "cat" || snap.Stats.Familiar != 1 {
		t.Errorf("unexpected state after rate: %+v", snap)
	}
	if w, _ := ctrl.Store().Lookup(ctrl.Store().Words()[0].ID); w.Status != "familiar" {
		t.Errorf("apple status = %s", w.Status)
	}
}

func TestRate_Validation(t *testing.T) {
	_, router := testEnv(t, "")

	for _, body := range []map[string]string{{"status": "unrated"}, {"status": ""}, {"status": "great"}} {
		if w := do(t, router, http.MethodPost, "/rate", body); w.Code != http.StatusBadRequest {
			t.Errorf("rate %v = %d, want 400", body, w.Code)
		}
	}
}

func TestRate_EmptyViewConflict(t *testing.T) {
	ctrl, router := testEnv(t, "")
	if _, err := ctrl.Clear(); err != nil {
		t.Fatal(err)
	}
	if w := do(t, router, http.MethodPost, "/rate", map[string]string{"status": "unknown"}); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestModeAndFilter(t *testing.T) {
	_, router := testEnv(t, "")

	snap := decodeState(t, do(t, router, http.MethodPut, "/mode", map[string]string{"mode": "list"}))
	if snap.Mode != session.ModeList {
		t.Errorf("mode = %s", snap.Mode)
	}
	if w := do(t, router, http.MethodPut, "/mode", map[string]string{"mode": "quiz"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d, want 400", w.Code)
	}

	snap = decodeState(t, do(t, router, http.MethodPut, "/filter", map[string]string{"filter": "unknown"}))
	if snap.Filter != session.FilterUnknown || snap.Size != 3 {
		t.Errorf("filter state: %+v", snap)
	}
}

func TestListWordsAndStats(t *testing.T) {
	ctrl, router := testEnv(t, "")
	id := ctrl.Store().Words()[1].ID

	if w := do(t, router, http.MethodPost, fmt.Sprintf("/words/%d/toggle", id), nil); w.Code != http.StatusOK {
		t.Fatalf("toggle = %d", w.Code)
	}

	var list WordListResponse
	w := do(t, router, http.MethodGet, "/words?filter=unknown", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 2 || list.Words[0].Term != "apple" || list.Words[1].Term != "dog" {
		t.Errorf("unknown words = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/stats", nil)
	if !strings.Contains(w.Body.String(), `"familiar":1`) {
		t.Errorf("stats = %s", w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/words?filter=bogus", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", w.Code)
	}
}

func TestToggleWord_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/words/42/toggle", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/words/abc/toggle", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDestructiveNeedConfirmation(t *testing.T) {
	ctrl, router := testEnv(t, "")

	if w := do(t, router, http.MethodDelete, "/words", nil); w.Code != http.StatusPreconditionRequired {
		t.Errorf("clear without confirm = %d, want 428", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/reset", nil); w.Code != http.StatusPreconditionRequired {
		t.Errorf("reset without confirm = %d, want 428", w.Code)
	}
	if ctrl.Store().Len() != 3 {
		t.Fatal("collection changed without confirmation")
	}

	if w := do(t, router, http.MethodPost, "/reset?confirm=true", nil); w.Code != http.StatusOK {
		t.Errorf("reset = %d", w.Code)
	}
	snap := decodeState(t, do(t, router, http.MethodDelete, "/words?confirm=true", nil))
	if snap.Size != 0 || snap.Current != nil {
		t.Errorf("after clear: %+v", snap)
	}
}

func TestShuffle(t *testing.T) {
	_, router := testEnv(t, "")

	snap := decodeState(t, do(t, router, http.MethodPost, "/shuffle", nil))
	if snap.Index != 0 || snap.Size != 3 {
		t.Errorf("after shuffle: %+v", snap)
	}
}

func TestDictationFlow(t *testing.T) {
	_, router := testEnv(t, "")

	snap := decodeState(t, do(t, router, http.MethodPut, "/dictation/input", map[string]string{"input": "aple"}))
	if snap.Input != "aple" {
		t.Errorf("input = %q", snap.Input)
	}
	snap = decodeState(t, do(t, router, http.MethodPost, "/dictation/submit", nil))
	if snap.Result != session.ResultIncorrect {
		t.Errorf("result = %s, want incorrect", snap.Result)
	}
	snap = decodeState(t, do(t, router, http.MethodPost, "/dictation/reveal", nil))
	if !snap.Revealed {
		t.Error("reveal should set revealed")
	}

	do(t, router, http.MethodPut, "/dictation/input", map[string]string{"input": "  APPLE "})
	snap = decodeState(t, do(t, router, http.MethodPost, "/dictation/check", nil))
	if snap.Result != session.ResultCorrect || snap.Revealed {
		t.Errorf("after correct check: %+v", snap)
	}
	snap = decodeState(t, do(t, router, http.MethodPost, "/dictation/submit", nil))
	if snap.Current.Term != "cat" || snap.Result != session.ResultNone {
		t.Errorf("submit after correct should advance: %+v", snap)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed state = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/state", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/next", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	ctrl := testutil.TestController(t, "")
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(ctrl, true, "tok", sseHandler)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("events without token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("events with token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForEvents(t *testing.T) {
	ctrl := testutil.TestController(t, "")
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(ctrl, true, "tok", sseHandler)

	w := do(t, router, http.MethodGet, "/events?access_token=tok", nil)
	if w.Code != http.StatusOK {
		t.Errorf("events with query token = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodGet, "/state?access_token=tok", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("state with query token = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate header")
	}
}
