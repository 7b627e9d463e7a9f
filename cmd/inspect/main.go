// Command inspect dumps the raw contents of a cache database, optionally
// filtered by key prefix. Useful for debugging sync behavior offline.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwaldbieser/slack-tui/pkg/store"
)

func main() {
	var p, prefix string
	flag.StringVar(&p, "db", "", "cache database path")
	flag.StringVar(&prefix, "prefix", "", "only dump keys with this prefix (e.g. msg:C123)")
	flag.Parse()
	if p == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	st, err := store.Open(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", p, err)
		os.Exit(1)
	}
	defer st.Close()

	iter, err := st.DumpIter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "iterator: %v\n", err)
		os.Exit(1)
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		k := string(iter.Key())
		if prefix != "" && !strings.HasPrefix(k, prefix) {
			continue
		}
		// attachment blobs are binary; print size only
		if strings.HasPrefix(k, "file:") && strings.HasSuffix(k, ":data") {
			fmt.Printf("%s\t<%d bytes>\n", k, len(iter.Value()))
		} else {
			fmt.Printf("%s\t%s\n", k, iter.Value())
		}
		n++
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", n)
}
