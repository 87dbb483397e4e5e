// Package main provides the hgdb CLI, a local operator tool for poking at
// a HyperGraphDB badgerstore instance: putting content, reading vertices
// back, materializing paths, crawling, and reporting on-disk size.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hypergraphdb/hypergraphdb/pkg/config"
	"github.com/hypergraphdb/hypergraphdb/pkg/corestore/badgerstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/crawler"
	hgdb "github.com/hypergraphdb/hypergraphdb/pkg/hypergraphdb"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

var version = "0.1.0"

func main() {
	config.LoadFromEnv().Memory.ApplyRuntimeMemory()

	rootCmd := &cobra.Command{
		Use:   "hgdb",
		Short: "HyperGraphDB operator CLI",
		Long: `hgdb is a local inspection and bootstrap tool for a HyperGraphDB
badgerstore instance: put content, read vertices back, materialize paths,
crawl the graph, and report the data directory's size.`,
	}
	rootCmd.PersistentFlags().String("data-dir", "./data", "data directory")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hgdb v%s\n", version)
		},
	})

	putCmd := &cobra.Command{
		Use:   "put <content>",
		Short: "Persist a new vertex with the given string content",
		Args:  cobra.ExactArgs(1),
		RunE:  runPut,
	}
	rootCmd.AddCommand(putCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Load a vertex by id from the local default feed",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}
	getCmd.Flags().String("feed", "", "feed key (hex), defaults to the local default feed")
	rootCmd.AddCommand(getCmd)

	pathCmd := &cobra.Command{
		Use:   "path <root-id> <path>",
		Short: "Idempotently materialize a slash-separated path from root-id",
		Args:  cobra.ExactArgs(2),
		RunE:  runPath,
	}
	pathCmd.Flags().String("feed", "", "feed key (hex) root-id lives on")
	rootCmd.AddCommand(pathCmd)

	crawlCmd := &cobra.Command{
		Use:   "crawl <root-id>",
		Short: "Crawl the graph from root-id, reporting visited count",
		Args:  cobra.ExactArgs(1),
		RunE:  runCrawl,
	}
	crawlCmd.Flags().String("feed", "", "feed key (hex) root-id lives on")
	crawlCmd.Flags().Int("bound", 0, "cap on vertices visited (0 = unbounded)")
	rootCmd.AddCommand(crawlCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show on-disk size of the data directory",
		RunE:  runStats,
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openGraph(cmd *cobra.Command, opts ...hgdb.Option) (*hgdb.Graph, *badgerstore.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir, _ = cmd.Root().PersistentFlags().GetString("data-dir")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	bs, err := badgerstore.Open(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening badgerstore at %s: %w", dataDir, err)
	}
	return hgdb.New(bs, opts...), bs, nil
}

func resolveFeed(flag string) (vertex.Feed, error) {
	if flag == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(flag)
	if err != nil {
		return nil, fmt.Errorf("invalid --feed %q: %w", flag, err)
	}
	return vertex.Feed(b), nil
}

func runPut(cmd *cobra.Command, args []string) error {
	g, bs, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer bs.Close()

	v := g.Create()
	v.SetContent(args[0])
	if err := g.Put(v); err != nil {
		return fmt.Errorf("putting vertex: %w", err)
	}
	fmt.Printf("created %s/%d\n", v.Feed().Hex(), uint64(v.ID()))
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	g, bs, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer bs.Close()

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	feedFlag, _ := cmd.Flags().GetString("feed")
	feed, err := resolveFeed(feedFlag)
	if err != nil {
		return err
	}
	var v *vertex.Vertex
	if feed == nil {
		v, err = g.Get(vertex.ID(id))
	} else {
		v, err = g.Get(vertex.ID(id), feed)
	}
	if err != nil {
		return fmt.Errorf("loading vertex: %w", err)
	}
	fmt.Printf("%s/%d: %v (edges: %d)\n", v.Feed().Hex(), uint64(v.ID()), v.Content(), len(v.AllEdges()))
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	g, bs, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer bs.Close()

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	feedFlag, _ := cmd.Flags().GetString("feed")
	feed, err := resolveFeed(feedFlag)
	if err != nil {
		return err
	}
	var root *vertex.Vertex
	if feed == nil {
		root, err = g.Get(vertex.ID(id))
	} else {
		root, err = g.Get(vertex.ID(id), feed)
	}
	if err != nil {
		return fmt.Errorf("loading root: %w", err)
	}

	created, err := g.CreateEdgesToPath(args[1], root)
	if err != nil {
		return fmt.Errorf("materializing path: %w", err)
	}
	fmt.Printf("created %d vertices\n", len(created))
	for _, v := range created {
		fmt.Printf("  %s/%d\n", v.Feed().Hex(), uint64(v.ID()))
	}
	return nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	bound, _ := cmd.Flags().GetInt("bound")
	opts := []hgdb.Option{hgdb.WithIndexRules(crawler.Rule{
		IndexName: "crawl",
		Traverse:  func(*vertex.Vertex) []string { return []string{""} },
	})}
	if bound > 0 {
		opts = append(opts, hgdb.WithCrawlBound(bound))
	}
	g, bs, err := openGraph(cmd, opts...)
	if err != nil {
		return err
	}
	defer bs.Close()

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	feedFlag, _ := cmd.Flags().GetString("feed")
	feed, err := resolveFeed(feedFlag)
	if err != nil {
		return err
	}
	var root *vertex.Vertex
	if feed == nil {
		root, err = g.Get(vertex.ID(id))
	} else {
		root, err = g.Get(vertex.ID(id), feed)
	}
	if err != nil {
		return fmt.Errorf("loading root: %w", err)
	}

	report, err := g.Crawl(root)
	if err != nil {
		return fmt.Errorf("crawling: %w", err)
	}
	fmt.Printf("visited %d vertices (bound hit: %v)\n", report.Visited, report.BoundHit)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	cfg := config.LoadFromEnv()
	if dataDir == "" {
		dataDir = cfg.Database.DataDir
	}

	var size int64
	err := filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", dataDir, err)
	}
	fmt.Printf("%s: %s\n", dataDir, humanize.Bytes(uint64(size)))
	return nil
}
