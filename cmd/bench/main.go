// Command bench measures listing and rendering over a generated vault.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ortholine/inlay"
	"github.com/ortholine/inlay/pkg/blocks"
	"github.com/ortholine/inlay/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of entries to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "inlay_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d entries in %s...\n", *count, benchDir)
	startGen := time.Now()

	// Files are written directly to simulate an existing vault.
	for i := 0; i < *count; i++ {
		content := fmt.Sprintf("---\nkind: blog\ntitle: Post %d\nstatus: published\ntags: [benchmark, test]\n---\n<h2>Post %d</h2><p>This is a benchmark entry.</p>", i, i)
		filename := filepath.Join(benchDir, "blog", fmt.Sprintf("post_%d.md", i))
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			panic(err)
		}
		if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	open := func() *core.Service {
		svc, err := inlay.New(benchDir,
			inlay.WithLogger(logger),
			inlay.WithAutoInit(true),
			inlay.WithVersioning(false),
			inlay.WithDevSafety(false),
		)
		if err != nil {
			panic(err)
		}
		return svc
	}
	ctx := context.Background()

	// Run 1 populates .inlay/index.json; run 2 uses a fresh service so only
	// the persisted index helps.
	cold := timeList(ctx, open(), "Run 1 - Cold")
	warm := timeList(ctx, open(), "Run 2 - Warm")

	// Badger, in memory, loaded through the service save path.
	store, err := inlay.New("", inlay.WithAdapter(inlay.AdapterBadger), inlay.WithInMemory(true), inlay.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	startLoad := time.Now()
	for i := 0; i < *count; i++ {
		_, err := store.SaveEntry(ctx, core.Entry{
			ID:    fmt.Sprintf("blog/post_%d", i),
			Kind:  core.KindBlog,
			Title: fmt.Sprintf("Post %d", i),
			Body:  sampleDocument(i),
		})
		if err != nil {
			panic(err)
		}
	}
	load := time.Since(startLoad)
	badgerList := timeList(ctx, store, "Badger")
	store.Close()

	doc := sampleDocument(0)
	startRender := time.Now()
	for i := 0; i < *count; i++ {
		_ = blocks.Render(doc)
	}
	render := time.Since(startRender)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d entries):\n", *count)
	fmt.Printf("  FS cold list:   %v\n", cold)
	fmt.Printf("  FS warm list:   %v\n", warm)
	fmt.Printf("  Badger save:    %v\n", load)
	fmt.Printf("  Badger list:    %v\n", badgerList)
	fmt.Printf("  Render x%d:     %v\n", *count, render)
	fmt.Printf("--------------------------------------------------\n")
}

func timeList(ctx context.Context, svc *core.Service, label string) time.Duration {
	fmt.Printf("Running List (%s)...\n", label)
	start := time.Now()
	sums, err := svc.ListSummaries(ctx, core.Filter{Kind: core.KindBlog})
	if err != nil {
		panic(err)
	}
	d := time.Since(start)
	fmt.Printf("%s Result: %v (Items: %d)\n", label, d, len(sums))
	return d
}

func sampleDocument(i int) blocks.Document {
	return blocks.Document{Blocks: []blocks.Block{
		{Type: blocks.TypeHeader, Data: blocks.Header{Text: fmt.Sprintf("Post %d", i), Level: 2}},
		blocks.NewParagraph("", "This is a benchmark entry."),
		{Type: blocks.TypeList, Data: blocks.List{Style: "unordered", Items: []string{"one", "two", "three"}}},
		{Type: blocks.TypeQuote, Data: blocks.Quote{Text: "Quoted", Caption: "Someone"}},
	}}
}
