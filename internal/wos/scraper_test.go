package wos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"wosbot/pkg/logx"
)

func serveHTML(t *testing.T, body string) *Scraper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	s := NewScraper(logx.Nop())
	s.pageURL = srv.URL
	return s
}

func TestActiveCodes(t *testing.T) {
	t.Parallel()
	s := serveHTML(t, `<html><body>
		<table>
			<thead><tr><th>Code</th><th>Expires</th></tr></thead>
			<tbody>
				<tr><td> WOS2024 </td><td>soon</td></tr>
				<tr><td>FROSTFEST</td><td>later</td></tr>
				<tr><td></td><td>blank code row</td></tr>
			</tbody>
		</table>
		<table><tbody><tr><td>SECONDTABLE</td></tr></tbody></table>
	</body></html>`)

	got := s.ActiveCodes(context.Background())
	want := []string{"WOS2024", "FROSTFEST"}
	if len(got) != len(want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("codes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestActiveCodesNoTable(t *testing.T) {
	t.Parallel()
	s := serveHTML(t, `<html><body><p>maintenance</p></body></html>`)
	if got := s.ActiveCodes(context.Background()); len(got) != 0 {
		t.Fatalf("codes = %v, want none", got)
	}
}

func TestActiveCodesServerDown(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	s := NewScraper(logx.Nop())
	s.pageURL = srv.URL

	if got := s.ActiveCodes(context.Background()); len(got) != 0 {
		t.Fatalf("codes = %v, want none", got)
	}
}
