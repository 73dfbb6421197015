package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"saferoad/internal/config"
)

func TestDriveFileID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		id   string
		ok   bool
	}{
		{
			name: "share link",
			url:  "https://drive.google.com/file/d/1AbC-xyz_123/view?usp=sharing",
			id:   "1AbC-xyz_123",
			ok:   true,
		},
		{
			name: "uc export link",
			url:  "https://drive.google.com/uc?export=download&id=1AbC-xyz_123",
			id:   "1AbC-xyz_123",
			ok:   true,
		},
		{
			name: "open link",
			url:  "https://drive.google.com/open?id=xyz",
			id:   "xyz",
			ok:   true,
		},
		{name: "plain http", url: "https://example.com/file/d/abc", ok: false},
		{name: "drive without id", url: "https://drive.google.com/drive/my-drive", ok: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			id, ok := driveFileID(tc.url)
			if ok != tc.ok || id != tc.id {
				t.Errorf("driveFileID(%q) = %q, %v; want %q, %v", tc.url, id, ok, tc.id, tc.ok)
			}
		})
	}
}

// latin1CSV renders rows as a ';'-separated Latin-1 dataset file.
func latin1CSV(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := charmap.ISO8859_1.NewEncoder().Writer(&buf)
	for _, line := range lines {
		if _, err := w.Write([]byte(line + "\r\n")); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func TestReadDatasetCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "datatran2023.csv")
	body := latin1CSV(t,
		`id;data_inversa;municipio;condicao_metereologica`,
		`1;2023-07-14;"SÃO PAULO";Céu Claro`,
		`2;2023-07-15;BRASÍLIA;Chuva`,
	)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := readDatasetCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if got := recs[0].Get("municipio"); got != "SÃO PAULO" {
		t.Errorf("municipio = %v, want SÃO PAULO (Latin-1 decoded)", got)
	}
	if got := recs[1].Get("condicao_metereologica"); got != "Chuva" {
		t.Errorf("condicao_metereologica = %v", got)
	}
}

// buildZip packs name->content into a zip archive.
func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUnzipAndPickCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "year.zip")
	payload := buildZip(t, map[string][]byte{
		"leia-me.txt":      []byte("documentation"),
		"datatran2023.csv": latin1CSV(t, "id;uf", "1;BA"),
	})
	if err := os.WriteFile(archive, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	zipped, err := isZip(archive)
	if err != nil || !zipped {
		t.Fatalf("isZip = %v, %v; want true", zipped, err)
	}

	paths, err := unzip(archive, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("unzip: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("extracted %d files, want 2", len(paths))
	}

	csvPath, err := pickCSV(paths)
	if err != nil {
		t.Fatalf("pickCSV: %v", err)
	}
	if filepath.Base(csvPath) != "datatran2023.csv" {
		t.Errorf("picked %s, want datatran2023.csv", csvPath)
	}
}

func TestUnzipRejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "../../evil.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	// Base-name flattening keeps the entry inside the destination.
	paths, err := unzip(archive, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("unzip: %v", err)
	}
	for _, p := range paths {
		if !filepath.IsLocal(p[len(dir)+1:]) {
			t.Errorf("extracted path escapes dir: %s", p)
		}
	}
}

func TestRunDownloadsAllYears(t *testing.T) {
	t.Parallel()

	zip2022 := buildZip(t, map[string][]byte{
		"datatran2022.csv": latin1CSV(t, "id;uf", "1;BA", "2;SP"),
	})
	csv2023 := latin1CSV(t, "id;uf", "3;MG")

	mux := http.NewServeMux()
	mux.HandleFunc("/2022.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(zip2022)
	})
	mux.HandleFunc("/2023.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(csv2023)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ex := New(config.ExtractConfig{
		DataDir: t.TempDir(),
		Datasets: map[string]string{
			"2022": srv.URL + "/2022.zip",
			"2023": srv.URL + "/2023.csv",
		},
	})

	recs, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	// Year order is ascending regardless of download completion order.
	if recs[0].Get("id") != "1" || recs[2].Get("id") != "3" {
		t.Errorf("records out of year order: %v", recs)
	}
}

func TestRunFailsWhenAnyYearFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.csv" {
			_, _ = w.Write(latin1CSV(t, "id;uf", "1;BA"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ex := New(config.ExtractConfig{
		DataDir: t.TempDir(),
		Datasets: map[string]string{
			"2022": srv.URL + "/ok.csv",
			"2023": srv.URL + "/missing.csv",
		},
	})

	if _, err := ex.Run(context.Background()); err == nil {
		t.Fatal("run succeeded despite a missing year")
	}
}

func TestClientRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := newClient(clientConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	resp, err := c.get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestClientGivesUpAfterRetryBudget(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(clientConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if _, err := c.get(context.Background(), srv.URL); err == nil {
		t.Fatal("get succeeded, want retry exhaustion error")
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3 (1 + 2 retries)", calls)
	}
}
