package main_test

import (
	"context"
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

func TestCLI_OfflineBuild(t *testing.T) {
	tmp := t.TempDir()

	fixture := filepath.Join("..", "..", "pkg", "jbovlaste", "testdata", "xml", "jbo-en-xml.xml")
	body, err := os.ReadFile(fixture)
	if err != nil {
		body, err = os.ReadFile("pkg/jbovlaste/testdata/xml/jbo-en-xml.xml")
	}
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmp, "xml"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "xml", "jbo-en-xml.xml"), body, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	dbPath := filepath.Join(tmp, "otm.db")
	bin := filepath.Join(tmp, "otmize.bin")

	build := exec.Command("go", "build", "-o", bin, "github.com/cogas/jbovlaste-otmize/cmd/otmize")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "build", "en", "--addrelations", "--zip", "--db", dbPath, "--log-level", "warn")
	cmd.Dir = tmp
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("cli timed out, output:\n%s", out)
	}
	if err != nil {
		t.Fatalf("cli failed: %v\noutput:\n%s", err, out)
	}

	outStr := string(out)
	if !strings.Contains(outStr, "5/5 words done, using 1 workers.") {
		t.Fatalf("expected progress line, got:\n%s", outStr)
	}
	if !strings.Contains(outStr, "Success!") {
		t.Fatalf("expected success message, got:\n%s", outStr)
	}

	d, err := dictionary.LoadFile(filepath.Join(tmp, "otm-json", "jbo-en_otm.json"))
	if err != nil {
		t.Fatalf("failed to load output: %v", err)
	}
	if d.Len() != 5 {
		t.Fatalf("expected 5 words, got %d", d.Len())
	}
	var klama *dictionary.Word
	for i := range d.Words {
		if d.Words[i].Entry.Form == "klama" {
			klama = &d.Words[i]
		}
	}
	if klama == nil {
		t.Fatalf("klama missing from output")
	}
	var targets []string
	for _, r := range klama.Relations {
		targets = append(targets, r.Entry.Form)
	}
	if strings.Join(targets, ",") != "litru,cliva" {
		t.Fatalf("unexpected klama relations: %v", targets)
	}

	if _, err := os.Stat(filepath.Join(tmp, "zip", "en-otmjson.zip")); err != nil {
		t.Fatalf("expected zip archive: %v", err)
	}

	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer dbConn.Close()

	var cnt int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM words WHERE lang = 'en'").Scan(&cnt); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if cnt != 5 {
		t.Fatalf("expected 5 words in DB, found %d", cnt)
	}
}
