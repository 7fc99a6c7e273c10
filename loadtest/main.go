package main

import (
	"bytes"
	"flag"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"echoleaf/echo"
)

func main() {
	target := flag.String("addr", echo.DefaultAddr, "Echo server address")
	clients := flag.Int("clients", 50, "Number of concurrent clients")
	duration := flag.Duration("duration", 1*time.Minute, "Test duration")
	flag.Parse()

	var wg sync.WaitGroup
	var ops uint64 = 0

	log.Printf("Starting Load Test against %s with %d clients...", *target, *clients)

	deadline := time.Now().Add(*duration)

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			conn, err := net.DialTimeout("tcp", *target, 5*time.Second)
			if err != nil {
				log.Printf("Client %d: Connect Failed: %v", id, err)
				return
			}
			defer conn.Close()

			payload := []byte("hello from loadtest")
			readBuf := make([]byte, len(payload))

			for time.Now().Before(deadline) {
				_, err := conn.Write(payload)
				if err != nil {
					log.Printf("Client %d: Write Error: %v", id, err)
					return
				}

				_, err = io.ReadFull(conn, readBuf)
				if err != nil {
					log.Printf("Client %d: Read Error: %v", id, err)
					return
				}

				if !bytes.Equal(readBuf, payload) {
					log.Printf("Client %d: Echo Mismatch: sent %q, got %q", id, payload, readBuf)
					return
				}

				atomic.AddUint64(&ops, 1)
			}
		}(i)
	}

	go func() {
		var lastOps uint64 = 0
		for time.Now().Before(deadline) {
			time.Sleep(1 * time.Second)
			currentOps := atomic.LoadUint64(&ops)
			log.Printf("Current Throughput: %d QPS", currentOps-lastOps)
			lastOps = currentOps
		}
	}()

	wg.Wait()
	log.Println("Load Test Finished.")
}
