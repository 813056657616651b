package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

const extractionService = "extraction"

// maxExtractionResponse caps the extraction response body.
const maxExtractionResponse = 32 << 20

// HTTPExtractionClient is an HTTP implementation of the ExtractionClient
// interface.
type HTTPExtractionClient struct {
	url     string
	client  *http.Client
	maxBody int64
}

// NewHTTPExtractionClient creates a new HTTPExtractionClient. timeout bounds
// a single request; callers may impose a shorter deadline through ctx.
func NewHTTPExtractionClient(url string, timeout time.Duration) *HTTPExtractionClient {
	return &HTTPExtractionClient{
		url:     strings.TrimRight(url, "/"),
		client:  &http.Client{Timeout: timeout},
		maxBody: maxExtractionResponse,
	}
}

// WithClientCredentials authenticates every request with a bearer token
// obtained from tokenURL through the OAuth2 client credentials grant. ctx
// governs token refreshes and should outlive the client.
func (c *HTTPExtractionClient) WithClientCredentials(ctx context.Context, clientID, clientSecret, tokenURL string, scopes []string) *HTTPExtractionClient {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	client := cc.Client(ctx)
	client.Timeout = c.client.Timeout
	return &HTTPExtractionClient{url: c.url, client: client, maxBody: c.maxBody}
}

type extractionEnvelope struct {
	Success   bool            `json:"success"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

// Process posts the document to {url}/process.
func (c *HTTPExtractionClient) Process(ctx context.Context, in ExtractionRequest) (*ExtractionResult, error) {
	requestBody, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/process", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.ExternalServiceError{Service: extractionService, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &models.ExternalServiceError{Service: extractionService, Message: "failed to read response body", Err: err}
	}
	if int64(len(raw)) > c.maxBody {
		return nil, &models.ExternalServiceError{Service: extractionService, Message: fmt.Sprintf("response body exceeds %d bytes", c.maxBody)}
	}

	var envelope extractionEnvelope
	decodeErr := json.Unmarshal(raw, &envelope)
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status code %d", resp.StatusCode)
		if decodeErr == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &ExtractionResult{Success: false, RequestID: envelope.RequestID, Error: msg, Raw: raw}, nil
	}
	if decodeErr != nil {
		return nil, &models.ExternalServiceError{Service: extractionService, Message: "failed to decode response body", Err: decodeErr}
	}

	result := &ExtractionResult{
		Success:   envelope.Success,
		RequestID: envelope.RequestID,
		Error:     envelope.Error,
		Raw:       raw,
	}
	if !envelope.Success {
		return result, nil
	}

	root, err := rfptree.Parse(envelope.Data)
	if err != nil {
		return nil, &models.ExternalServiceError{Service: extractionService, Message: "extraction service returned an invalid tree: " + err.Error(), Err: err}
	}
	result.Data = rfptree.Tree{Root: root}
	return result, nil
}
