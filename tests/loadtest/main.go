package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numTargets   = 200
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== GSD Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Targets: %d\n\n", numWorkers, testDuration, numTargets)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Register targets
	fmt.Println("\n--- Phase 1: Registering targets (POST /targets) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doAddTarget(rng)
	})

	// Phase 2: Mixed registry load
	fmt.Println("\n--- Phase 2: Mixed load (40% POST, 60% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.30:
			return doAddTarget(rng)
		case r < 0.40:
			return doRemoveTarget(rng)
		case r < 0.85:
			return doGetStatus()
		default:
			return doGetHealth()
		}
	})

	// Phase 3: Read-heavy load with the occasional export
	fmt.Println("\n--- Phase 3: Read-heavy load (5% POST, 95% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.03:
			return doAddTarget(rng)
		case r < 0.05:
			return doExport()
		case r < 0.80:
			return doGetStatus()
		default:
			return doGetHealth()
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doAddTarget(rng *rand.Rand) result {
	body := map[string]string{
		"target": fmt.Sprintf("https://www.tiktok.com/@loaduser_%d", rng.Intn(numTargets)),
	}
	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/targets", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /targets", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 409 means the target already exists, which is expected under load
	ok := resp.StatusCode == 201 || resp.StatusCode == 409
	return result{"POST /targets", resp.StatusCode, lat, !ok}
}

func doRemoveTarget(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/target?u=loaduser_%d", baseURL, rng.Intn(numTargets))
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{"DELETE /target", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	ok := resp.StatusCode == 204 || resp.StatusCode == 404
	return result{"DELETE /target", resp.StatusCode, lat, !ok}
}

func doGetStatus() result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/status")
	lat := time.Since(start)
	if err != nil {
		return result{"GET /status", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /status", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetHealth() result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/health")
	lat := time.Since(start)
	if err != nil {
		return result{"GET /health", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /health", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doExport() result {
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/export", "application/json", nil)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /export", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 409 when no gifts have been seen yet
	ok := resp.StatusCode == 200 || resp.StatusCode == 409
	return result{"POST /export", resp.StatusCode, lat, !ok}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
