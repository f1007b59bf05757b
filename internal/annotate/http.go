package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// HTTPAnnotator calls a remote annotation service, typically a spaCy model
// behind a small HTTP wrapper. The service receives {"text", "model"} on
// POST /annotate and answers with the token stream.
type HTTPAnnotator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// HTTPConfig holds configuration for the HTTP annotator
type HTTPConfig struct {
	BaseURL string        // default: http://localhost:8090
	Model   string        // default: es_dep_news_trf
	Timeout time.Duration // default: 30s
}

// NewHTTPAnnotator creates a new HTTP annotator
func NewHTTPAnnotator(cfg HTTPConfig) *HTTPAnnotator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8090"
	}
	if cfg.Model == "" {
		cfg.Model = "es_dep_news_trf"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPAnnotator{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: newAnnotatorHTTPClient(cfg.Timeout),
	}
}

// newAnnotatorHTTPClient creates an HTTP client tuned for many short
// requests against one host
func newAnnotatorHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func (a *HTTPAnnotator) Name() string {
	return "http:" + a.model
}

type annotateRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type annotateToken struct {
	Text       string `json:"text"`
	Whitespace string `json:"whitespace"`
	POS        string `json:"pos"`
	Dep        string `json:"dep"`
	Morph      string `json:"morph"`
	IsPunct    bool   `json:"is_punct"`
}

type annotateResponse struct {
	Tokens []annotateToken `json:"tokens"`
}

// StatusError is returned when the service answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("annotator error (status %d): %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrAnnotationUnavailable
}

// Annotate sends text to the service and converts its tokens
func (a *HTTPAnnotator) Annotate(ctx context.Context, text string) ([]domain.Token, error) {
	body, err := json.Marshal(annotateRequest{Text: text, Model: a.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/annotate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: do request: %w", domain.ErrAnnotationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var annResp annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&annResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAnnotationUnavailable, err)
	}
	if len(annResp.Tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens returned", domain.ErrAnnotationUnavailable)
	}

	tokens := make([]domain.Token, len(annResp.Tokens))
	for i, t := range annResp.Tokens {
		pos := domain.ParsePOS(t.POS)
		tokens[i] = domain.Token{
			Index:      i,
			Text:       t.Text,
			Whitespace: t.Whitespace,
			POS:        pos,
			Dep:        domain.ParseDepLabel(t.Dep),
			Morph:      domain.ParseMorph(t.Morph),
			IsPunct:    t.IsPunct || pos == domain.POSPunct,
		}
	}
	return tokens, nil
}

// Health checks that the service is reachable
func (a *HTTPAnnotator) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAnnotationUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
