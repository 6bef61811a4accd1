package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func waitReady(t *testing.T) {
	t.Helper()
	url := fmt.Sprintf("%s/healthz", baseURL())
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Skipf("no server at %s; start cmd/order-catalog to run live tests", baseURL())
}

func postIntent(t *testing.T, name, body string) {
	t.Helper()
	resp, err := http.Post(baseURL()+"/intents/"+name, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("intent %s: expected 202, got %d", name, resp.StatusCode)
	}
}

func getJSON(t *testing.T, path string, dst any) {
	t.Helper()
	resp, err := http.Get(baseURL() + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatal(err)
	}
}

func TestIntegration_CatalogServed(t *testing.T) {
	waitReady(t)
	postIntent(t, "refresh", "")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var view struct {
			Products  []map[string]any `json:"products"`
			IsLoading bool             `json:"is_loading"`
		}
		getJSON(t, "/catalog", &view)
		if !view.IsLoading && len(view.Products) > 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("catalog never populated")
}

func TestIntegration_StockServed(t *testing.T) {
	waitReady(t)
	postIntent(t, "refresh", "")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var view struct {
			Phase      string                    `json:"phase"`
			StockBySKU map[string]map[string]any `json:"stock_by_sku"`
		}
		getJSON(t, "/stock", &view)
		if view.Phase == "success" && len(view.StockBySKU) > 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("stock never reconciled")
}

func TestIntegration_MetricsServed(t *testing.T) {
	waitReady(t)
	var m map[string]any
	getJSON(t, "/debug/metrics", &m)
	if _, ok := m["catalog_cache_hits"]; !ok {
		t.Fatalf("metrics missing cache counters: %v", m)
	}
}
