package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/ellery/rxcare/internal/config"
)

// placeholderNames are analysis outputs that do not identify a real
// medicine and are filtered out before summarization.
var placeholderNames = map[string]bool{
	"illegible": true,
	"n/a":       true,
}

// Client talks to the analysis backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client from gateway settings.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// NewClientWithHTTP creates a Client with an explicit http.Client, used by
// tests to point at an httptest server.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// serviceError is the error body the backend returns on failure.
type serviceError struct {
	Detail string `json:"detail"`
}

// Analyze uploads a prescription image and returns the structured analysis.
func (c *Client) Analyze(ctx context.Context, image []byte, fileName string) (*Analysis, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	if err := writer.Close(); err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result Analysis
	if err := c.do(req, &result); err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	if err := validateAnalysis(&result); err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	return &result, nil
}

// ReAnalyze re-runs the analysis over user-corrected transcript text.
func (c *Client) ReAnalyze(ctx context.Context, editedText string) (*Analysis, error) {
	payload := map[string]string{"text": editedText}
	var result Analysis
	if err := c.postJSON(ctx, "/reanalyze", payload, &result); err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	if err := validateAnalysis(&result); err != nil {
		return nil, &AnalysisError{Msg: err.Error()}
	}
	return &result, nil
}

// FilterMedicationNames drops placeholder names ("Illegible", "N/A",
// case-insensitive) from a medication name list.
func FilterMedicationNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if placeholderNames[strings.ToLower(strings.TrimSpace(n))] {
			continue
		}
		if strings.TrimSpace(n) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Summarize requests a care summary for the given medication names.
// Placeholder names are filtered first; an empty remainder fails before
// any network call is issued.
func (c *Client) Summarize(ctx context.Context, names []string) (*Summary, error) {
	filtered := FilterMedicationNames(names)
	if len(filtered) == 0 {
		return nil, &SummaryError{Msg: "no identifiable medications to summarize"}
	}

	payload := map[string][]string{"medications": filtered}
	var result Summary
	if err := c.postJSON(ctx, "/summary", payload, &result); err != nil {
		return nil, &SummaryError{Msg: err.Error()}
	}
	return &result, nil
}

// translateRequest carries the canonical content to the translation service.
type translateRequest struct {
	Analysis       *Analysis `json:"analysis,omitempty"`
	Summary        *Summary  `json:"summary,omitempty"`
	TargetLanguage string    `json:"target_language"`
}

// translateResponse mirrors translateRequest shapes back.
type translateResponse struct {
	Analysis *Analysis `json:"analysis,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
}

// Translate returns the analysis and summary rendered in the target
// language. Either input may be nil; the corresponding output is nil.
func (c *Client) Translate(ctx context.Context, analysis *Analysis, summary *Summary, lang string) (*Analysis, *Summary, error) {
	payload := translateRequest{Analysis: analysis, Summary: summary, TargetLanguage: lang}
	var result translateResponse
	if err := c.postJSON(ctx, "/translate", payload, &result); err != nil {
		return nil, nil, &TranslationError{Msg: err.Error()}
	}
	if analysis != nil && result.Analysis == nil {
		return nil, nil, &TranslationError{Msg: "translation response missing analysis"}
	}
	if summary != nil && result.Summary == nil {
		return nil, nil, &TranslationError{Msg: "translation response missing summary"}
	}
	return result.Analysis, result.Summary, nil
}

// chatRequest carries the conversation and the grounding analysis.
type chatRequest struct {
	History  []ChatTurn `json:"history"`
	Analysis *Analysis  `json:"analysis,omitempty"`
}

// Chat sends the conversation history plus the active session's analysis
// and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, history []ChatTurn, analysis *Analysis) (string, error) {
	payload := chatRequest{History: history, Analysis: analysis}
	var result struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/chat", payload, &result); err != nil {
		return "", &ChatError{Msg: err.Error()}
	}
	if result.Response == "" {
		return "", &ChatError{Msg: "empty assistant response"}
	}
	return result.Response, nil
}

// FindPharmacies looks up pharmacies near the given coordinates.
func (c *Client) FindPharmacies(ctx context.Context, lat, lng float64) ([]Pharmacy, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lng", fmt.Sprintf("%f", lng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pharmacies?"+q.Encode(), nil)
	if err != nil {
		return nil, &PharmacyLookupError{Msg: err.Error()}
	}

	var result struct {
		Pharmacies []Pharmacy `json:"pharmacies"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, &PharmacyLookupError{Msg: err.Error()}
	}
	return result.Pharmacies, nil
}

// postJSON marshals payload, POSTs it to path and decodes into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes a request and decodes a JSON response. Non-2xx responses
// yield the service's detail message when present.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var svcErr serviceError
		if json.Unmarshal(body, &svcErr) == nil && svcErr.Detail != "" {
			return fmt.Errorf("%s", svcErr.Detail)
		}
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// validateAnalysis rejects responses that fail the boundary contract.
func validateAnalysis(a *Analysis) error {
	if a.Medications == nil {
		return fmt.Errorf("analysis response missing medications")
	}
	return nil
}
