package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"anpr-dashboard/internal/config"
)

// Column names of the recognition results CSV.
const (
	ColumnTimestamp  = "timestamp"
	ColumnPlate      = "license_plate"
	ColumnIsOffender = "is_offender"
	ColumnConfidence = "confidence"
)

// RawRow is one CSV record keyed by header name. Fields missing from a
// short record are absent from Fields.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Get returns the trimmed value of a column, or "" when it is absent.
func (r RawRow) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Warning is a non-fatal defect found while parsing.
type Warning struct {
	Line    int
	Message string
}

type CSVSource struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

func NewCSVSource(cfg config.FeedConfig, client *http.Client, log zerolog.Logger) *CSVSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &CSVSource{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		client:  client,
		log:     log.With().Str("component", "feed").Str("url", cfg.URL).Logger(),
	}
}

// Load fetches and parses the resource. Parse warnings are logged.
func (s *CSVSource) Load(ctx context.Context) ([]RawRow, error) {
	text, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	rows, warnings, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		s.log.Warn().
			Int("warnings", len(warnings)).
			Int("first_line", warnings[0].Line).
			Str("first_warning", warnings[0].Message).
			Msg("CSV parsing warnings")
	}

	s.log.Debug().Int("rows", len(rows)).Msg("loaded plate feed")
	return rows, nil
}

// Fetch GETs the CSV text. Any non-2xx status is a *FetchError.
func (s *CSVSource) Fetch(ctx context.Context) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", &FetchError{URL: s.url, Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &FetchError{URL: s.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: s.url, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// Parse reads header-keyed rows. Records with a field count different from
// the header are kept and reported as warnings; malformed quoting fails
// the whole parse with a *ParseError.
func Parse(text string) ([]RawRow, []Warning, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []RawRow{}, nil, nil
	}
	if err != nil {
		return nil, nil, toParseError(err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var (
		rows     []RawRow
		warnings []Warning
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, toParseError(err)
		}

		line, _ := r.FieldPos(0)
		if len(record) != len(header) {
			warnings = append(warnings, Warning{
				Line:    line,
				Message: fmt.Sprintf("expected %d fields, found %d", len(header), len(record)),
			})
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i >= len(record) {
				break
			}
			fields[name] = record[i]
		}
		rows = append(rows, RawRow{Line: line, Fields: fields})
	}

	if rows == nil {
		rows = []RawRow{}
	}
	return rows, warnings, nil
}

func toParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Err: err}
}
