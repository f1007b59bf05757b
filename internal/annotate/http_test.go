package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

func TestHTTPAnnotatorAnnotate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/annotate" {
			t.Errorf("path = %s, want /annotate", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "Me levanto." {
			t.Errorf("text = %q", req.Text)
		}
		if req.Model != "es_core_news_sm" {
			t.Errorf("model = %q", req.Model)
		}

		json.NewEncoder(w).Encode(annotateResponse{Tokens: []annotateToken{
			{Text: "Me", Whitespace: " ", POS: "PRON", Dep: "expl:pv", Morph: "Case=Acc|Person=1|PronType=Prs|Reflex=Yes"},
			{Text: "levanto", POS: "VERB", Dep: "ROOT", Morph: "Mood=Ind|Tense=Pres"},
			{Text: ".", POS: "PUNCT", Dep: "punct", IsPunct: true},
		}})
	}))
	defer server.Close()

	a := NewHTTPAnnotator(HTTPConfig{BaseURL: server.URL, Model: "es_core_news_sm"})
	if a.Name() != "http:es_core_news_sm" {
		t.Errorf("Name() = %q", a.Name())
	}

	tokens, err := a.Annotate(context.Background(), "Me levanto.")
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}
	if tokens[0].Dep != domain.DepExpletive {
		t.Errorf("Dep = %q, want expl", tokens[0].Dep)
	}
	if !tokens[0].Morph.Has(domain.MorphReflex, "Yes") {
		t.Errorf("Morph = %v, want Reflex=Yes", tokens[0].Morph)
	}
	if tokens[1].Index != 1 {
		t.Errorf("Index = %d, want 1", tokens[1].Index)
	}
	if !tokens[2].IsPunct {
		t.Error("period should be punctuation")
	}
	if got := domain.JoinTokens(tokens); got != "Me levanto." {
		t.Errorf("JoinTokens() = %q", got)
	}
}

func TestHTTPAnnotatorErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
		},
		{
			name: "no tokens",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"tokens":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			a := NewHTTPAnnotator(HTTPConfig{BaseURL: server.URL})
			_, err := a.Annotate(context.Background(), "hola")
			if !errors.Is(err, domain.ErrAnnotationUnavailable) {
				t.Errorf("error = %v, want ErrAnnotationUnavailable", err)
			}
		})
	}
}

func TestHTTPAnnotatorStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPAnnotator(HTTPConfig{BaseURL: server.URL}).Annotate(context.Background(), "hola")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
}

func TestHTTPAnnotatorHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewHTTPAnnotator(HTTPConfig{BaseURL: server.URL}).Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestNewHTTPAnnotatorDefaults(t *testing.T) {
	a := NewHTTPAnnotator(HTTPConfig{})
	if a.baseURL != "http://localhost:8090" {
		t.Errorf("baseURL = %q", a.baseURL)
	}
	if a.model != "es_dep_news_trf" {
		t.Errorf("model = %q", a.model)
	}
	if a.httpClient.Timeout == 0 {
		t.Error("client should have a timeout")
	}
}
