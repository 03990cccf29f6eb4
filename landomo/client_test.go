package landomo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"zigbang-scraper/config"
	"zigbang-scraper/models"
	"zigbang-scraper/utils"
)

func newTestClient(serverURL string) *Client {
	cfg := &config.Config{
		APIBaseURL:        serverURL,
		APIKey:            "test-token",
		RequestTimeoutSec: 5,
	}
	return New(cfg, utils.NewLogger(), utils.NewRateLimiter(0))
}

func sampleEnvelope() *models.IngestionEnvelope {
	return &models.IngestionEnvelope{
		Portal:   "zigbang",
		PortalID: "12345",
		Country:  "south-korea",
		Data: &models.CanonicalProperty{
			Title:           "역삼동 원룸",
			Price:           16000000,
			Currency:        "KRW",
			PropertyType:    "apartment",
			TransactionType: "rent",
		},
		RawData: json.RawMessage(`{"item_id":12345}`),
	}
}

func TestSendPostsEnvelopeWithBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	var gotEnv models.IngestionEnvelope

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotEnv); err != nil {
			t.Errorf("decode envelope: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.Send(context.Background(), sampleEnvelope()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
	if gotPath != "/properties/ingest" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotEnv.PortalID != "12345" || gotEnv.Portal != "zigbang" {
		t.Errorf("envelope: got portal=%q portal_id=%q", gotEnv.Portal, gotEnv.PortalID)
	}
	if string(gotEnv.RawData) != `{"item_id":12345}` {
		t.Errorf("raw_data not forwarded verbatim: %s", gotEnv.RawData)
	}
}

func TestSendSurfacesNon2xxWithoutRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"duplicate"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.Send(context.Background(), sampleEnvelope()); err == nil {
		t.Error("expected error for non-2xx response")
	}
	if calls != 1 {
		t.Errorf("requests issued: got %d, want 1 (no retry)", calls)
	}
}

func TestSendSurfacesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := newTestClient(server.URL)
	if err := c.Send(context.Background(), sampleEnvelope()); err == nil {
		t.Error("expected error for unreachable service")
	}
}
