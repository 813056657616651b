package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

func TestHTTPExtractionClient_Process(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/process", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))

		switch received["documentId"] {
		case "ok":
			w.Write([]byte(`{"success":true,"requestId":"r-1","data":{"Budget":{"extracted_data":"$5","pages":[2]}}}`))
		case "reported":
			w.Write([]byte(`{"success":false,"requestId":"r-2","error":"boom"}`))
		case "bad-tree":
			w.Write([]byte(`{"success":true,"data":{"Budget":"five"}}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"success":false,"error":"model overloaded"}`))
		}
	}))
	defer server.Close()

	client := NewHTTPExtractionClient(server.URL+"/", 5*time.Second)
	ctx := context.Background()

	res, err := client.Process(ctx, ExtractionRequest{DocumentID: "ok", FileName: "a.pdf", FileContent: []byte("hi"), VersionType: models.Version1})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "r-1", res.RequestID)
	out, err := rfptree.Marshal(res.Data.Root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Budget":{"extracted_data":"$5","pages":[2]}}`, string(out))
	assert.Equal(t, "aGk=", received["fileContent"])
	assert.Equal(t, "VERSION_1", received["versionType"])
	assert.NotContains(t, received, "priorTree")

	res, err = client.Process(ctx, ExtractionRequest{DocumentID: "reported"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)

	res, err = client.Process(ctx, ExtractionRequest{DocumentID: "down"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "model overloaded", res.Error)

	_, err = client.Process(ctx, ExtractionRequest{DocumentID: "bad-tree"})
	assert.ErrorIs(t, err, models.ErrExternalService)
	assert.Contains(t, err.Error(), "Budget must be an object")
}

func TestHTTPExtractionClient_ClientCredentials(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "extract", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
			return
		}
		w.Write([]byte(`{"success":true,"requestId":"r-9","data":{}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewHTTPExtractionClient(server.URL, 5*time.Second).
		WithClientCredentials(context.Background(), "rfdb", "secret", server.URL+"/token", []string{"extract"})

	for range 2 {
		res, err := client.Process(context.Background(), ExtractionRequest{DocumentID: "d"})
		require.NoError(t, err)
		assert.True(t, res.Success, res.Error)
		assert.Equal(t, "r-9", res.RequestID)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestHTTPExtractionClient_OversizedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"Budget":{"extracted_data":"` + strings.Repeat("x", 256) + `","pages":[2]}}}`))
	}))
	defer server.Close()

	client := NewHTTPExtractionClient(server.URL, 5*time.Second)
	client.maxBody = 128

	_, err := client.Process(context.Background(), ExtractionRequest{DocumentID: "big"})
	var ext *models.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Contains(t, err.Error(), "exceeds 128 bytes")
}

func TestHTTPExtractionClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPExtractionClient(url, time.Second).Process(context.Background(), ExtractionRequest{DocumentID: "d"})
	assert.ErrorIs(t, err, models.ErrExternalService)
}

func TestMockExtractionClient(t *testing.T) {
	client := NewMockExtractionClient(0)
	ctx := context.Background()

	v1, err := client.Process(ctx, ExtractionRequest{FileName: "city-hall.pdf", VersionType: models.Version1})
	require.NoError(t, err)
	assert.True(t, v1.Success)
	assert.Regexp(t, `^v1_\d+_[0-9a-f]{8}$`, v1.RequestID)

	title, ok := rfptree.Lookup(v1.Data.Root, []string{"Document Info", "Title"})
	require.True(t, ok)
	assert.Equal(t, "RFP Analysis - city-hall", title.(*rfptree.Leaf).ExtractedData)

	v2, err := client.Process(ctx, ExtractionRequest{FileName: "city-hall.pdf", VersionType: models.Version2, PriorTree: &v1.Data})
	require.NoError(t, err)
	title, _ = rfptree.Lookup(v2.Data.Root, []string{"Document Info", "Title"})
	assert.Equal(t, "RFP Analysis - city-hall - Refined Analysis", title.(*rfptree.Leaf).ExtractedData)
	technical, _ := rfptree.Lookup(v2.Data.Root, []string{"Requirements", "Technical"})
	assert.Contains(t, technical.(*rfptree.Leaf).ExtractedData, "Multi-language support")
	assert.Empty(t, rfptree.StructureErrors(v1.Data.Root, v2.Data.Root), "V2 keeps the V1 structure")

	before, _ := rfptree.Lookup(v1.Data.Root, []string{"Requirements", "Technical"})
	assert.NotContains(t, before.(*rfptree.Leaf).ExtractedData, "Multi-language support", "prior tree is not mutated")
}

func TestMockExtractionClient_Cancel(t *testing.T) {
	client := NewMockExtractionClient(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Process(ctx, ExtractionRequest{VersionType: models.Version1})
	assert.ErrorIs(t, err, context.Canceled)
}
