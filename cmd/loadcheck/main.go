// Command dynaroute-loadcheck validates a graph dataset before it is
// handed to cmd/server: it runs the same Loader/Build path the server
// uses, then reports structural warnings a bad export can produce
// (isolated nodes, disconnected components) that Build itself does not
// treat as fatal.
//
// A diagnostic-tool shape: connect/build, then print a statistics
// report before declaring success.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/loader"
	"github.com/passbi/dynaroute/internal/pgstore"
)

func main() {
	nodesPath := flag.String("nodes", "", "path to nodes.csv")
	edgesPath := flag.String("edges", "", "path to edges.csv")
	usePostgres := flag.Bool("postgres", false, "load from Postgres instead of CSV files")
	flag.Parse()

	if !*usePostgres && (*nodesPath == "" || *edgesPath == "") {
		fmt.Println("Usage: dynaroute-loadcheck -nodes=nodes.csv -edges=edges.csv")
		fmt.Println("   or: dynaroute-loadcheck -postgres")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Println("dynaroute loadcheck")
	log.Println("====================")

	ctx := context.Background()
	start := time.Now()

	var g *graph.Graph
	var err error
	if *usePostgres {
		pool, pErr := pgstore.Open(ctx, pgstore.LoadConfigFromEnv())
		if pErr != nil {
			log.Fatalf("Failed to connect to Postgres: %v", pErr)
		}
		defer pool.Close()
		g, err = loader.Build(ctx, loader.NewPostgresLoader(pool))
	} else {
		g, err = loader.Build(ctx, loader.NewCSVLoader(*nodesPath, *edgesPath))
	}
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	log.Printf("Loaded in %v", time.Since(start))
	log.Printf("Nodes: %d", g.NumNodes())
	log.Printf("Edges: %d", g.NumEdges())

	isolated := countIsolatedNodes(g)
	if isolated > 0 {
		log.Printf("Warning: %d node(s) have no outgoing or incoming edges", isolated)
	}

	components := countComponents(g)
	log.Printf("Weakly connected components: %d", components)
	if components > 1 {
		log.Printf("Warning: graph is not fully connected; some REQ pairs will return NO_ROUTE")
	}

	log.Println("Load check complete")
}

// countIsolatedNodes counts nodes with no adjacency in either direction.
func countIsolatedNodes(g *graph.Graph) int {
	hasIncoming := make([]bool, g.NumNodes())
	for e := 0; e < g.NumEdges(); e++ {
		_, to, err := g.EdgeEndpoints(e)
		if err != nil {
			continue
		}
		hasIncoming[to] = true
	}

	count := 0
	for n := 0; n < g.NumNodes(); n++ {
		neighbors, err := g.Neighbors(n)
		if err == nil && len(neighbors) == 0 && !hasIncoming[n] {
			count++
		}
	}
	return count
}

// countComponents treats the graph as undirected and counts weakly
// connected components via breadth-first search, using each edge's
// endpoints in both directions so a one-way street does not split an
// otherwise-connected neighborhood.
func countComponents(g *graph.Graph) int {
	adjacency := make([][]int, g.NumNodes())
	for e := 0; e < g.NumEdges(); e++ {
		from, to, err := g.EdgeEndpoints(e)
		if err != nil {
			continue
		}
		adjacency[from] = append(adjacency[from], to)
		adjacency[to] = append(adjacency[to], from)
	}

	visited := make([]bool, g.NumNodes())
	components := 0
	for start := 0; start < g.NumNodes(); start++ {
		if visited[start] {
			continue
		}
		components++
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for _, next := range adjacency[n] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return components
}
