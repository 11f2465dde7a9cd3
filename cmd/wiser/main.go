// Command wiser is the CLI front end for the indexing/query core: it loads
// a corpus into a database file, or runs a query against one already built.
// It follows cmd/cindex/cindex.go's flag/usage/log.SetPrefix shape, adapted
// to wiser/wiser.c's option set (-x/-q/-c/-m/-t/-s, a positional db path).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hakonhall/wiser/codec"
	"github.com/hakonhall/wiser/index"
	"github.com/hakonhall/wiser/session"
)

// defaultN is wiser.c's compile-time N_GRAM constant: the n-gram width used
// throughout indexing and querying.
const defaultN = 2

var usageMessage = `usage: wiser [options] db_file

options:
  -c compress_method   compress method for postings list: none or golomb (default golomb)
  -x corpus_file       corpus file to index, as newline-delimited "title<TAB>body" records
  -q search_query       query to run against db_file
  -m max_index_count   max number of documents to index (0 = unlimited)
  -t flush_threshold   inverted index buffer flush threshold (default 2048)
  -s                   disable phrase search, matching n-grams regardless of order
`

func usage() {
	fmt.Fprint(os.Stderr, usageMessage)
	os.Exit(-1)
}

var (
	corpusFlag    = flag.String("x", "", "corpus file to index")
	queryFlag     = flag.String("q", "", "query to run")
	compressFlag  = flag.String("c", "golomb", "postings compression method: none or golomb")
	maxFlag       = flag.Int("m", 0, "max number of documents to index (0 = unlimited)")
	thresholdFlag = flag.Int("t", index.DefaultFlushThreshold, "flush threshold")
	noPhraseFlag  = flag.Bool("s", false, "disable phrase search")
)

func main() {
	log.SetPrefix("wiser: ")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
	}
	dbPath := flag.Arg(0)

	if *corpusFlag != "" {
		if _, err := os.Stat(dbPath); err == nil {
			fmt.Printf("%s already exists.\n", dbPath)
			os.Exit(-2)
		} else if !os.IsNotExist(err) {
			log.Fatalf("%s: %v", dbPath, err)
		}
	}

	opts := []session.Option{
		session.WithFlushThreshold(*thresholdFlag),
		session.WithMaxDocuments(*maxFlag),
		session.WithPhraseSearch(!*noPhraseFlag),
	}
	if *corpusFlag != "" {
		opts = append(opts, session.WithForcedScheme(parseCompressMethod(*compressFlag)))
	}

	sess, err := session.Open(dbPath, defaultN, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	if *corpusFlag != "" {
		indexCorpus(sess, *corpusFlag)
	}

	if *queryFlag != "" {
		runQuery(sess, *queryFlag)
	}
}

// parseCompressMethod maps a -c argument to a codec.Scheme, following
// wiser.c's parse_compress_method: anything other than exactly "none" selects
// Golomb-Rice, with a warning for any value other than "golomb" or empty.
func parseCompressMethod(s string) codec.Scheme {
	switch s {
	case "none":
		return codec.SchemeNone
	case "", "golomb":
		return codec.SchemeGolomb
	default:
		log.Printf("invalid compress method %q, using golomb instead", s)
		return codec.SchemeGolomb
	}
}

// indexCorpus reads corpusPath, one "title<TAB>body" record per line, and
// ingests every record into sess.
func indexCorpus(sess *session.Session, corpusPath string) {
	f, err := os.Open(corpusPath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var docs []session.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		title, body, ok := strings.Cut(line, "\t")
		if !ok {
			log.Printf("%s:%d: missing title/body separator, skipping", corpusPath, lineNo)
			continue
		}
		docs = append(docs, session.Document{Title: title, Body: body})
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}

	n, err := sess.Ingest(docs)
	if err != nil {
		log.Fatal(err)
	}
	stats, err := sess.Stats()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("indexed %d documents (total %d)", n, stats.DocumentCount)
}

func runQuery(sess *session.Session, query string) {
	results, err := sess.Query(query)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		title, err := sess.Store.GetDocumentTitle(r.DocumentID)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("document_id: %d title: %s score: %f\n", r.DocumentID, title, r.Score)
	}
	fmt.Printf("Total %d documents are found!\n", len(results))
}
