// Command antflyctl is a minimal demonstration entrypoint: it opens (or
// creates) a collection on a bolt (default) or mdbx KV store, upserts the documents from a JSONL
// file, and runs one query against it, printing results as JSON. It is
// deliberately not a full CLI — no subcommand framework, no config file
// layering — just enough to drive the core end to end.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/c2h5oh/datasize"

	"github.com/antflydb/antfly/alog"
	"github.com/antflydb/antfly/collection"
	"github.com/antflydb/antfly/kv"
	"github.com/antflydb/antfly/kv/boltkv"
	"github.com/antflydb/antfly/kv/mdbxkv"
	"github.com/antflydb/antfly/schema"
	"github.com/antflydb/antfly/search"
)

func main() {
	dbPath := flag.String("db", "antfly.db", "path to the KV file or directory")
	backend := flag.String("backend", "bolt", "KV backend: bolt or mdbx")
	maxSize := flag.String("max-size", "32GB", "mdbx environment size budget (ignored for bolt)")
	collName := flag.String("collection", "docs", "collection name")
	docsPath := flag.String("docs", "", "path to a JSONL file of documents to upsert")
	queryText := flag.String("q", "", "query text to search for")
	queryField := flag.String("field", "title", "field to search")
	flag.Parse()

	alog.Configure(alog.Development())
	ctx := context.Background()

	store, err := openStore(*backend, *dbPath, *maxSize)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	coll, err := collection.Open(ctx, *collName, store)
	if err != nil {
		coll, err = collection.Create(ctx, *collName, []schema.Field{
			{Name: "title", Kind: schema.KindString, Indexed: true, Infix: true},
			{Name: "body", Kind: schema.KindString, Indexed: true},
			{Name: "tags", Kind: schema.KindStringArray, Indexed: true, Faceted: true},
			{Name: "rating", Kind: schema.KindFloat, Indexed: true, Sortable: true},
		}, "rating", store)
		if err != nil {
			log.Fatalf("create collection: %v", err)
		}
	}

	if *docsPath != "" {
		if err := loadDocs(ctx, coll, *docsPath); err != nil {
			log.Fatalf("load docs: %v", err)
		}
	}

	if *queryText != "" {
		result, err := coll.Search(ctx, search.Query{
			Text: *queryText,
			Fields: []search.FieldSpec{
				{Name: *queryField, Weight: 1, TypoBudget: 1, Prefix: true},
			},
			PerPage: 10,
		})
		if err != nil {
			log.Fatalf("search: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("encode result: %v", err)
		}
	}
}

func openStore(backend, path, maxSize string) (kv.Store, error) {
	switch backend {
	case "bolt":
		return boltkv.Open(path)
	case "mdbx":
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(maxSize)); err != nil {
			return nil, fmt.Errorf("parse -max-size: %w", err)
		}
		return mdbxkv.Open(path, size)
	default:
		return nil, fmt.Errorf("unknown backend %q (want bolt or mdbx)", backend)
	}
}

func loadDocs(ctx context.Context, coll *collection.Collection, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(line, &doc); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
		id, _ := doc["id"].(string)
		delete(doc, "id")
		if _, _, err := coll.Add(ctx, id, doc, schema.CoerceOrReject); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
		n++
	}
	return scanner.Err()
}
