package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	maxRetries  int
)

// Metrics
var (
	totalRequests uint64
	success201    uint64 // Recorded
	fail409       uint64 // Lost first-of-period race
	retried       uint64 // Conflicts that converged on retry
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&maxRetries, "retries", 3, "Retries per request after a retryable conflict")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		payload := map[string]interface{}{
			"payment_account_id": paymentAccount(start),
			"target_type":        "merchant_delivery",
			"amount":             rand.Int63n(5000) + 1,
			"currency":           "USD",
			"routing_key":        time.Now().UTC(),
			"interval_type":      "weekly",
		}
		body, _ := json.Marshal(payload)
		key := uuid.NewString()

		for attempt := 0; attempt <= maxRetries; attempt++ {
			code, err := post(client, body, key)
			if err != nil {
				atomic.AddUint64(&failOther, 1)
				break
			}

			atomic.AddUint64(&totalRequests, 1)
			if code == http.StatusConflict {
				atomic.AddUint64(&fail409, 1)
				continue
			}
			if code == http.StatusCreated {
				atomic.AddUint64(&success201, 1)
				if attempt > 0 {
					atomic.AddUint64(&retried, 1)
				}
			} else {
				atomic.AddUint64(&failOther, 1)
			}
			break
		}
	}
}

func post(client *http.Client, body []byte, idempotencyKey string) (int, error) {
	req, _ := http.NewRequest("POST", targetURL+"/api/v1/mx_transactions", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// paymentAccount picks the account to record against. The hotspot workload rotates to a
// fresh account every second, so every worker races to create that account's first ledger.
func paymentAccount(start time.Time) string {
	if workload == "hotspot" {
		return fmt.Sprintf("bench-hot-%d-%d", start.Unix(), int(time.Since(start).Seconds()))
	}
	return fmt.Sprintf("bench-%d", rand.Intn(1000)+1)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	f409 := atomic.LoadUint64(&fail409)
	rOK := atomic.LoadUint64(&retried)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	conflictRate := 0.0
	if total > 0 {
		conflictRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":          workload,
		"duration_sec":      d.Seconds(),
		"total_requests":    total,
		"throughput_tps":    tps,
		"success_created":   s201,
		"conflicts":         f409,
		"conflict_rate_pct": conflictRate,
		"converged_retries": rOK,
		"errors":            fErr,
	}

	// Print JSON for the python plotter to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
