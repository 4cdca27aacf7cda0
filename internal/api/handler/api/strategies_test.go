// internal/api/handler/api/strategies_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/newthinker/tradelab/internal/strategy/builtin"
)

func TestStrategiesHandler_List(t *testing.T) {
	reg := strategy.NewRegistry()
	builtin.Register(reg)
	handler := NewStrategiesHandler(reg)

	req := httptest.NewRequest("GET", "/api/v1/strategies", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data []strategy.Definition `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 4 {
		t.Fatalf("expected 4 strategies, got %d", len(resp.Data))
	}
	if resp.Data[3].Name != "sma_trend" {
		t.Errorf("expected sorted list ending with sma_trend, got %s", resp.Data[3].Name)
	}
	if resp.Data[3].Defaults["slow_period"] != float64(50) {
		t.Errorf("expected slow_period default 50, got %v", resp.Data[3].Defaults["slow_period"])
	}
}
