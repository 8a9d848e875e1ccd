// Command loadtest drives POST /api/v1/transform with a fixed set of rows and
// reports throughput, latency percentiles and the match-status mix.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

var (
	byText  = []product.InputField{product.InputDescription}
	byName  = []product.InputField{product.InputProductName, product.InputBrandName}
	byGTIN  = []product.InputField{product.InputGTIN}
	byMixed = []product.InputField{product.InputGTIN, product.InputDescription}
)

// sampleRows exercise every query strategy, including rows that skip.
var sampleRows = []handler.TransformRequest{
	{Mapping: byGTIN, Values: []any{"5449000000996"}},
	{Mapping: byGTIN, Values: []any{"4006381333931"}},
	{Mapping: byGTIN, Values: []any{"300743288131"}},
	{Mapping: byGTIN, Values: []any{"not-a-code"}},
	{Mapping: byText, Values: []any{"coca cola zero 33cl can"}},
	{Mapping: byText, Values: []any{"nutella hazelnut spread 400g"}},
	{Mapping: byText, Values: []any{"organic oat drink"}},
	{Mapping: byName, Values: []any{"Diet Coke", "Coca-Cola"}},
	{Mapping: byName, Values: []any{"Kinder Bueno", "Ferrero"}},
	{Mapping: byName, Values: []any{"", " "}},
	{Mapping: byMixed, Values: []any{"5449000000996", "coca cola 1.5l"}},
}

type sample struct {
	latency time.Duration
	code    int
	status  product.MatchStatus
	err     error
}

type report struct {
	mu       sync.Mutex
	latency  []time.Duration
	codes    map[int]int
	statuses map[product.MatchStatus]int
	errors   int
}

func newReport() *report {
	return &report{
		codes:    make(map[int]int),
		statuses: make(map[product.MatchStatus]int),
	}
}

func (r *report) add(s sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.err != nil {
		r.errors++
		return
	}
	r.latency = append(r.latency, s.latency)
	r.codes[s.code]++
	if s.status != "" {
		r.statuses[s.status]++
	}
}

func (r *report) print(w io.Writer, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.latency) + r.errors
	fmt.Fprintf(w, "requests:   %d in %v (%.1f req/s)\n", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	fmt.Fprintf(w, "errors:     %d\n", r.errors)
	if len(r.latency) == 0 {
		return
	}

	slices.Sort(r.latency)
	for _, p := range []float64{50, 90, 99} {
		fmt.Fprintf(w, "p%-9.0f %v\n", p, percentile(r.latency, p))
	}
	fmt.Fprintf(w, "max:        %v\n", r.latency[len(r.latency)-1])

	fmt.Fprintln(w, "http codes:")
	for _, code := range sortedKeys(r.codes) {
		fmt.Fprintf(w, "  %d  %d\n", code, r.codes[code])
	}
	fmt.Fprintln(w, "match status:")
	for _, st := range product.MatchStatuses() {
		if n := r.statuses[st]; n > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", st, n)
		}
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type client struct {
	http *http.Client
	url  string
}

func (c *client) transform(ctx context.Context, row handler.TransformRequest) sample {
	body, err := json.Marshal(row)
	if err != nil {
		return sample{err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return sample{err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return sample{err: err}
	}
	defer resp.Body.Close()

	s := sample{latency: time.Since(start), code: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		var out handler.TransformResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err == nil {
			s.status = out.Status
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return s
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the match service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "target requests per second across all workers (0 = unbounded)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	var limiter *rate.Limiter
	if *rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rps), max(*concurrency, 1))
	}
	c := &client{
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &http.Transport{MaxIdleConnsPerHost: *concurrency},
		},
		url: *baseURL + "/api/v1/transform",
	}

	fmt.Printf("load test: %s, %d workers, %v\n", c.url, *concurrency, *duration)
	rep := newReport()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < *concurrency; w++ {
		g.Go(func() error {
			for i := w; ; i++ {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return nil
					}
				}
				if gctx.Err() != nil {
					return nil
				}
				s := c.transform(gctx, sampleRows[i%len(sampleRows)])
				if errors.Is(s.err, context.DeadlineExceeded) || errors.Is(s.err, context.Canceled) {
					return nil
				}
				rep.add(s)
			}
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rep.print(os.Stdout, time.Since(start))
}
