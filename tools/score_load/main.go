// Command score_load bulk-loads scores into a running folio instance.
//
// It reads CSV rows of the form "symbol,timestamp_ms,score" from a file or
// stdin and posts them to /scores in batches, retrying transient failures
// with exponential backoff.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"folio/internal/domain"
	"folio/pkg/retrier"
)

func main() {
	var (
		targetURL string
		inputPath string
		batchSize int
		timeout   time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8080/scores", "score ingestion endpoint URL")
	flag.StringVar(&inputPath, "file", "-", "CSV input path, - for stdin")
	flag.IntVar(&batchSize, "batch", 500, "records per request")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	if batchSize <= 0 {
		log.Fatalf("invalid batch size: %d", batchSize)
	}

	var input io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		input = f
	}

	records, err := readScores(input)
	if err != nil {
		log.Fatal(err)
	}
	if len(records) == 0 {
		log.Fatal("no score records in input")
	}

	client := &http.Client{Timeout: timeout}
	r := retrier.New(retrier.WithBaseDelay(500*time.Millisecond), retrier.WithMaxRetries(4))

	ctx := context.Background()
	sent := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := r.Do(ctx, func(ctx context.Context) error {
			return postBatch(ctx, client, targetURL, batch)
		})
		if err != nil {
			log.Fatalf("batch %d-%d failed: %v", start, end, err)
		}
		sent += len(batch)
		log.Printf("sent %d/%d records", sent, len(records))
	}
}

func readScores(input io.Reader) ([]domain.ScoreRecord, error) {
	reader := csv.NewReader(input)
	reader.FieldsPerRecord = 3

	var records []domain.ScoreRecord
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && row[0] == "symbol" {
			continue // header
		}

		timestamp, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp must be a milliseconds integer: %w", line, err)
		}
		score, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid score: %w", line, err)
		}
		records = append(records, domain.ScoreRecord{Symbol: row[0], Timestamp: timestamp, Score: score})
	}
}

func postBatch(ctx context.Context, client *http.Client, url string, batch []domain.ScoreRecord) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusMultiStatus:
		var result struct {
			Message string   `json:"message"`
			Errors  []string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
			for _, e := range result.Errors {
				log.Printf("rejected: %s", e)
			}
			log.Printf("partial batch: %s", result.Message)
		}
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
}
