package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func entityJSON(id string, labels map[string]string, images []string) string {
	labelsPart := ""
	for locale, value := range labels {
		if labelsPart != "" {
			labelsPart += ","
		}
		labelsPart += fmt.Sprintf(`%q: {"language": %q, "value": %q}`, locale, locale, value)
	}

	claimsPart := ""
	for i, image := range images {
		if i > 0 {
			claimsPart += ","
		}
		claimsPart += fmt.Sprintf(`{"mainsnak": {"datavalue": {"value": %q}}}`, image)
	}

	return fmt.Sprintf(`{"entities": {%q: {"labels": {%s}, "claims": {"P18": [%s]}}}}`,
		id, labelsPart, claimsPart)
}

func newTestClient(endpoint string) *Client {
	c := NewClient(endpoint, 1000, "test-agent")
	c.SetRetryBase(time.Millisecond)
	return c
}

func TestClient_Fetch_SingleRequestServesImagesAndLabels(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.URL.Query().Get("ids"); got != "Q243" {
			t.Errorf("unexpected ids parameter: %q", got)
		}
		fmt.Fprint(w, entityJSON("Q243", map[string]string{"en": "Eiffel Tower"}, []string{"Tower.jpg"}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	existing := []string{"http://example.com/local.jpg"}

	entity, err := client.Fetch(context.Background(), "Q243")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	images := entity.Images(existing)
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %v", images)
	}
	if images[0] != "http://example.com/local.jpg" {
		t.Errorf("existing images must stay first: %v", images)
	}
	if images[1] != commonsFilePath+"Tower.jpg" {
		t.Errorf("unexpected commons URL: %q", images[1])
	}

	if labels := entity.Labels(); labels["en"] != "Eiffel Tower" {
		t.Errorf("unexpected labels: %v", labels)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("images and labels must share one request, got %d", got)
	}
}

func TestClient_Fetch_FailsAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.Fetch(context.Background(), "Q243"); err == nil {
		t.Fatal("expected an error after exhausted retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, entityJSON("Q90", map[string]string{"en": "Paris"}, nil))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	entity, err := client.Fetch(context.Background(), "Q90")
	if err != nil {
		t.Fatalf("expected success on the third attempt, got %v", err)
	}
	if labels := entity.Labels(); labels["en"] != "Paris" {
		t.Errorf("unexpected labels: %v", labels)
	}
}

func TestClient_Fetch_MissingEntity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"entities": {}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Fetch(context.Background(), "Q1"); err == nil {
		t.Error("expected error for missing entity")
	}
}

func TestSelectBestLabel(t *testing.T) {
	cases := []struct {
		labels map[string]string
		want   string
	}{
		{map[string]string{"en": "Paris", "fr": "Paris (ville)"}, "Paris"},
		{map[string]string{"fr": "Tour Eiffel", "ja": "エッフェル塔"}, "Tour Eiffel"},
		{map[string]string{"ja": "エッフェル塔", "ko": "에펠탑"}, "エッフェル塔"},
		{map[string]string{}, ""},
		{nil, ""},
	}

	for _, c := range cases {
		if got := SelectBestLabel(c.labels); got != c.want {
			t.Errorf("SelectBestLabel(%v) = %q, want %q", c.labels, got, c.want)
		}
	}
}
