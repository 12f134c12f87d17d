// Command dynaroute-loadtest drives a running dynaroute server with
// many concurrent TCP connections issuing a mix of REQ/UPD/PRED lines,
// reporting throughput and error counts. It exercises the same
// per-connection-ordering contract as internal/server's own tests, but
// against a live process instead of an in-process Engine.
//
// Each connection is a goroutine running its own dial-send-receive
// loop, the same parallel-fan-out shape used to serve a batch of route
// requests concurrently, adapted here into a sustained load generator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "dynaroute TCP address")
	connections := flag.Int("connections", 16, "number of concurrent connections")
	duration := flag.Duration("duration", 10*time.Second, "how long to run the load test")
	maxNode := flag.Int("max-node", 99, "highest node id to address in generated REQ/UPD lines")
	maxEdge := flag.Int("max-edge", 99, "highest edge id to address in generated UPD/PRED lines")
	seed := flag.Int64("seed", 1, "deterministic RNG seed")
	flag.Parse()

	if *connections <= 0 {
		fmt.Println("Usage: dynaroute-loadtest -addr=host:port -connections=N -duration=10s")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Printf("Load testing %s with %d connections for %v", *addr, *connections, *duration)

	var sent, succeeded, failed atomic.Int64
	stop := make(chan struct{})
	time.AfterFunc(*duration, func() { close(stop) })

	var wg sync.WaitGroup
	for i := 0; i < *connections; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(*addr, workerID, *seed, *maxNode, *maxEdge, stop, &sent, &succeeded, &failed)
		}(i)
	}
	wg.Wait()

	elapsed := duration.Seconds()
	log.Printf("Sent: %d  Succeeded: %d  Failed: %d", sent.Load(), succeeded.Load(), failed.Load())
	if elapsed > 0 {
		log.Printf("Throughput: %.1f req/s", float64(sent.Load())/elapsed)
	}
}

func runWorker(addr string, workerID int, seed int64, maxNode, maxEdge int, stop <-chan struct{}, sent, succeeded, failed *atomic.Int64) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Printf("worker %d: dial: %v", workerID, err)
		return
	}
	defer conn.Close()

	r := rand.New(rand.NewSource(seed + int64(workerID)))
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-stop:
			return
		default:
		}

		line := randomLine(r, maxNode, maxEdge)
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			failed.Add(1)
			return
		}
		sent.Add(1)

		resp, err := reader.ReadString('\n')
		if err != nil {
			failed.Add(1)
			return
		}
		if len(resp) >= 3 && resp[:3] == "ERR" {
			failed.Add(1)
		} else {
			succeeded.Add(1)
		}
	}
}

func randomLine(r *rand.Rand, maxNode, maxEdge int) string {
	switch r.Intn(3) {
	case 0:
		return fmt.Sprintf("REQ %d %d", r.Intn(maxNode+1), r.Intn(maxNode+1))
	case 1:
		return fmt.Sprintf("UPD %d %.2f", r.Intn(maxEdge+1), 5+r.Float64()*25)
	default:
		return fmt.Sprintf("PRED %d", r.Intn(maxEdge+1))
	}
}
