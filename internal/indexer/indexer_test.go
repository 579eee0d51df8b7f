package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/embedding"
	"github.com/hyperjump/musubi/internal/extract"
	"github.com/hyperjump/musubi/internal/fileid"
	"github.com/hyperjump/musubi/internal/keyword"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/internal/storage"
	"github.com/hyperjump/musubi/internal/vector"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{".txt", ".md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
		{".csv", []string{"csv"}, true},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

type testEnv struct {
	idx   *Indexer
	store storage.Storage
	vec   *vector.MemoryIndex
	kw    keyword.KeywordIndex
}

func newTestEnv(t *testing.T, dir string, extractor *extract.Extractor, opts ...IndexerOption) *testEnv {
	t.Helper()
	cfg := &config.RetrievalConfig{ChunkSize: 10, ChunkOverlap: 2}
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecIndex, err := vector.NewMemoryIndex(32)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	idx := NewIndexer(store, embedding.NewHashEmbedder(32), vecIndex, kwIndex, cfg, extractor, opts...)
	return &testEnv{idx: idx, store: store, vec: vecIndex, kw: kwIndex}
}

func mustAbs(path string) string {
	a, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return a
}

func docCount(t *testing.T, kw keyword.KeywordIndex) uint64 {
	t.Helper()
	n, err := kw.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestIndexDocument(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), nil)
	ctx := context.Background()

	content := "un deux trois quatre cinq six sept huit neuf dix onze douze treize quatorze"
	doc, err := env.idx.IndexDocument(ctx, &models.DocumentInput{Title: "Nombres", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" {
		t.Fatal("ID should be generated")
	}
	chunks, err := env.store.GetChunksByDocumentID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != fileid.ChunkID(doc.ID, 0) || chunks[1].ID != fileid.ChunkID(doc.ID, 1) {
		t.Errorf("unexpected chunk IDs: %s, %s", chunks[0].ID, chunks[1].ID)
	}
	if env.vec.Size() != 2 || docCount(t, env.kw) != 2 {
		t.Errorf("index sizes: vector=%d keyword=%d", env.vec.Size(), docCount(t, env.kw))
	}

	// Replacing the document drops the old chunks everywhere.
	if _, err := env.idx.IndexDocument(ctx, &models.DocumentInput{ID: doc.ID, Title: "Nombres", Content: "un deux"}); err != nil {
		t.Fatal(err)
	}
	if env.vec.Size() != 1 || docCount(t, env.kw) != 1 {
		t.Errorf("after replace: vector=%d keyword=%d", env.vec.Size(), docCount(t, env.kw))
	}
}

func TestIndexDocument_emptyContent(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), nil)
	_, err := env.idx.IndexDocument(context.Background(), &models.DocumentInput{Content: "  \n "})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIndexFile_createAndUpdate(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, extract.NewExtractor())
	ctx := context.Background()

	fPath := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(fPath, []byte("Hello world content."), 0600); err != nil {
		t.Fatal(err)
	}
	indexed, err := env.idx.IndexFile(ctx, fPath, []string{".txt", ".md"})
	if err != nil || !indexed {
		t.Fatalf("IndexFile: indexed=%v err=%v", indexed, err)
	}
	docID := fileid.FileDocID(mustAbs(fPath))
	doc, err := env.store.GetDocument(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "doc.txt" || doc.Content != "Hello world content." {
		t.Errorf("unexpected doc: title=%q content=%q", doc.Title, doc.Content)
	}
	if doc.Source() != mustAbs(fPath) || doc.Kind() != "txt" {
		t.Errorf("metadata: source=%q type=%q", doc.Source(), doc.Kind())
	}

	// Unchanged file is skipped.
	indexed, err = env.idx.IndexFile(ctx, fPath, nil)
	if err != nil || indexed {
		t.Errorf("unchanged file: indexed=%v err=%v", indexed, err)
	}

	if err := os.WriteFile(fPath, []byte("Updated content, longer."), 0600); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(fPath, later, later); err != nil {
		t.Fatal(err)
	}
	if _, err := env.idx.IndexFile(ctx, fPath, []string{".txt"}); err != nil {
		t.Fatal(err)
	}
	doc2, err := env.store.GetDocument(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if doc2.Content != "Updated content, longer." {
		t.Errorf("after update: content=%q", doc2.Content)
	}
}

func TestIndexFile_csvRowsKeepPositions(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, extract.NewExtractor())
	ctx := context.Background()

	fPath := filepath.Join(dir, "ventes.csv")
	csv := "produit,region\nPG-M01,Lyon\nPG-S02,Nantes\n"
	if err := os.WriteFile(fPath, []byte(csv), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := env.idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	chunks, err := env.store.GetChunksByDocumentID(ctx, fileid.FileDocID(mustAbs(fPath)))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected one chunk per row, got %d", len(chunks))
	}
	if chunks[1].Position != 1 || chunks[1].Content != "produit: PG-S02\nregion: Nantes" {
		t.Errorf("second row chunk: position=%d content=%q", chunks[1].Position, chunks[1].Content)
	}
}

func TestIndexFile_extensionFiltered(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, nil)

	fPath := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(fPath, []byte("#!/bin/bash"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := env.idx.IndexFile(context.Background(), fPath, []string{".txt", ".md"})
	if !errors.Is(err, ErrSkipped) {
		t.Errorf("expected ErrSkipped, got %v", err)
	}
}

func TestDeleteFile(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, nil)
	ctx := context.Background()

	fPath := filepath.Join(dir, "note.md")
	if err := os.WriteFile(fPath, []byte("Note content."), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := env.idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	if err := env.idx.DeleteFile(ctx, fPath); err != nil {
		t.Fatal(err)
	}
	if _, err := env.store.GetDocument(ctx, fileid.FileDocID(mustAbs(fPath))); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("document should be deleted, got %v", err)
	}
	if env.vec.Size() != 0 || docCount(t, env.kw) != 0 {
		t.Errorf("indices not cleared: vector=%d keyword=%d", env.vec.Size(), docCount(t, env.kw))
	}
	// Deleting again is a no-op for files.
	if err := env.idx.DeleteFile(ctx, fPath); err != nil {
		t.Errorf("second DeleteFile: %v", err)
	}
	if err := env.idx.DeleteDocument(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteDocument(missing) = %v", err)
	}
}

func TestIndexFile_notRegularFile(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, nil)
	if _, err := env.idx.IndexFile(context.Background(), dir, []string{".txt"}); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIndexFile_nonexistent(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, nil)
	if _, err := env.idx.IndexFile(context.Background(), filepath.Join(dir, "missing.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIndexFile_excelWithExtractor(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, extract.NewExtractor())

	fPath := filepath.Join(dir, "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Excel searchable content")
	if err := f.SaveAs(fPath); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	ctx := context.Background()
	if _, err := env.idx.IndexFile(ctx, fPath, []string{".xlsx", ".txt"}); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	doc, err := env.store.GetDocument(ctx, fileid.FileDocID(mustAbs(fPath)))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "data.xlsx" || doc.Content != "Sheet1\nExcel searchable content" || doc.Kind() != "xlsx" {
		t.Errorf("unexpected doc: title=%q content=%q kind=%q", doc.Title, doc.Content, doc.Kind())
	}
}

func TestIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, extract.NewExtractor())
	ctx := context.Background()

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "a.txt"):    "file a",
		filepath.Join(dir, "b.txt"):    "file b",
		filepath.Join(sub, "c.txt"):    "file c",
		filepath.Join(dir, "skip.xyz"): "skip",
		filepath.Join(dir, "bad.json"): "{not json",
	}
	for p, c := range files {
		if err := os.WriteFile(p, []byte(c), 0600); err != nil {
			t.Fatal(err)
		}
	}

	n, err := env.idx.IndexDirectory(ctx, dir, []string{".txt", ".json"})
	if err == nil {
		t.Error("expected the invalid JSON file to be reported")
	}
	if n != 3 {
		t.Errorf("IndexDirectory: indexed %d files, want 3", n)
	}

	n, _ = env.idx.IndexDirectory(ctx, dir, []string{".txt"})
	if n != 0 {
		t.Errorf("second pass should skip unchanged files, indexed %d", n)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "indices", "vectors.bin")
	env := newTestEnv(t, dir, nil, WithVectorPath(vecPath))
	if _, err := env.idx.IndexDocument(context.Background(), &models.DocumentInput{ID: "d", Content: "panneaux solaires"}); err != nil {
		t.Fatal(err)
	}
	if err := env.idx.Save(); err != nil {
		t.Fatal(err)
	}
	loaded, _ := vector.NewMemoryIndex(32)
	if err := loaded.Load(vecPath); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 1 {
		t.Errorf("loaded size = %d", loaded.Size())
	}
}
