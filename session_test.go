package cotacao

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSessionSendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	session := NewSession("ua-test", &BufferedLogger{})
	if _, err := session.Get(server.URL); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if gotUA != defaultUserAgent {
		t.Errorf("User-Agent = %q, want the browser UA", gotUA)
	}
}

func TestSessionDecodesLatin1(t *testing.T) {
	// "Dólar" in ISO-8859-1: the ó is a single 0xF3 byte.
	latin1 := []byte{'D', 0xF3, 'l', 'a', 'r'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write(latin1)
	}))
	t.Cleanup(server.Close)

	session := NewSession("charset-test", &BufferedLogger{})
	response, err := session.Get(server.URL)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got := response.Text(); got != "Dólar" {
		t.Errorf("Text() = %q, want %q", got, "Dólar")
	}
	if response.CharSet != "ISO-8859-1" {
		t.Errorf("CharSet = %q", response.CharSet)
	}
}

func TestSessionRecordAndReplay(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valor": 5.12}`))
	}))
	t.Cleanup(server.Close)

	prefix := t.TempDir() + string(filepath.Separator)

	recorder := NewSession("replay-test", &BufferedLogger{})
	recorder.FilePrefix = prefix
	recorder.SaveToFile = true
	if _, err := recorder.Get(server.URL); err != nil {
		t.Fatalf("recording Get error: %v", err)
	}

	replayer := NewSession("replay-test", &BufferedLogger{})
	replayer.FilePrefix = prefix
	replayer.NotUseNetwork = true
	response, err := replayer.Get(server.URL)
	if err != nil {
		t.Fatalf("replaying Get error: %v", err)
	}

	var payload struct {
		Valor float64 `json:"valor"`
	}
	if err := response.JSON(&payload); err != nil {
		t.Fatalf("JSON error: %v", err)
	}
	if payload.Valor != 5.12 {
		t.Errorf("valor = %v", payload.Valor)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, replay must not touch the network", hits)
	}
}

func TestSessionReplayMissingRecording(t *testing.T) {
	session := NewSession("missing-test", &BufferedLogger{})
	session.FilePrefix = t.TempDir() + string(filepath.Separator)
	session.NotUseNetwork = true

	_, err := session.Get("http://localhost/irrelevante")
	var retryErr RetryAndRecordError
	if !errors.As(err, &retryErr) {
		t.Errorf("error = %v, want RetryAndRecordError", err)
	}
}

func TestSessionHeaderTracing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	log := &BufferedLogger{}
	session := NewSession("trace-test", log)
	session.ShowRequestHeader = true
	session.ShowResponseHeader = true
	if _, err := session.Get(server.URL); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	trace := log.String()
	if !strings.Contains(trace, "REQUEST: GET "+server.URL) {
		t.Errorf("request line missing from trace:\n%s", trace)
	}
	if !strings.Contains(trace, "User-Agent") {
		t.Errorf("request headers missing from trace:\n%s", trace)
	}
	if !strings.Contains(trace, "Content-type: text/plain") {
		t.Errorf("response content type missing from trace:\n%s", trace)
	}
}

func TestSessionSetTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("tarde demais"))
	}))
	t.Cleanup(server.Close)

	session := NewSession("timeout-test", &BufferedLogger{})
	session.SetTimeout(50 * time.Millisecond)

	_, err := session.Get(server.URL)
	var requestErr RequestError
	if !errors.As(err, &requestErr) {
		t.Errorf("error = %v, want RequestError from the client timeout", err)
	}
}

func TestSessionSetCookiesSentOnRequest(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	session := NewSession("jar-test", &BufferedLogger{})
	session.SetCookies(serverURL, []*http.Cookie{{Name: "sessao", Value: "abc"}})

	if _, err := session.Get(server.URL); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if gotCookie != "sessao=abc" {
		t.Errorf("Cookie header = %q, want sessao=abc", gotCookie)
	}
	if got := session.Cookies(serverURL); len(got) != 1 || got[0].Value != "abc" {
		t.Errorf("Cookies() = %v", got)
	}
}

func TestSessionCookiePersistence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sessao", Value: "xyz"})
		w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	prefix := t.TempDir() + string(filepath.Separator)

	first := NewSession("cookie-test", &BufferedLogger{})
	first.FilePrefix = prefix
	if err := first.LoadCookie(); err != nil {
		t.Fatalf("LoadCookie error: %v", err)
	}
	if _, err := first.Get(server.URL); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if err := first.SaveCookie(); err != nil {
		t.Fatalf("SaveCookie error: %v", err)
	}

	second := NewSession("cookie-test", &BufferedLogger{})
	second.FilePrefix = prefix
	if err := second.LoadCookie(); err != nil {
		t.Fatalf("LoadCookie error: %v", err)
	}
	cookies := second.Cookies(serverURL)
	if len(cookies) != 1 || cookies[0].Name != "sessao" || cookies[0].Value != "xyz" {
		t.Errorf("reloaded cookies = %v, want the persisted sessao cookie", cookies)
	}
}

func TestResponseCsvReaderStripsBom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("\uFEFFfrom,to\nUSD,BRL\n"))
	}))
	t.Cleanup(server.Close)

	session := NewSession("csv-test", &BufferedLogger{})
	response, err := session.Get(server.URL)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}

	rows, err := response.CsvReader().ReadAll()
	if err != nil {
		t.Fatalf("CSV error: %v", err)
	}
	want := [][]string{{"from", "to"}, {"USD", "BRL"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}
