package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func clientWithResponse(status int, body string) *RemoteClient {
	c := NewRemoteClient("https://example.test", zap.NewNop())
	c.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})}
	return c
}

const chartPayload = `{
	"historicalSamples": [
		{"Temperature": 0, "Humidity": 40, "FlammableGases": 10, "TVOC": 100, "CO": 1, "BatteryLife": 90, "EventProcessedUtcTime": "2025-09-09T18:02:14Z"}
	],
	"predictiveSamples": []
}`

func TestFetchChartBundleBareObject(t *testing.T) {
	c := clientWithResponse(http.StatusOK, chartPayload)

	bundle, err := c.FetchChartBundle(context.Background())
	if err != nil {
		t.Fatalf("FetchChartBundle: %v", err)
	}
	if len(bundle.HistoricalSamples) != 1 {
		t.Fatalf("historical samples = %d, want 1", len(bundle.HistoricalSamples))
	}
	if bundle.HistoricalSamples[0].Humidity != 40 {
		t.Errorf("Humidity = %v, want 40", bundle.HistoricalSamples[0].Humidity)
	}
}

func TestFetchChartBundleArrayWrapped(t *testing.T) {
	bare := clientWithResponse(http.StatusOK, chartPayload)
	wrapped := clientWithResponse(http.StatusOK, `[{"ignored": true}, `+chartPayload+`]`)

	got, err := wrapped.FetchChartBundle(context.Background())
	if err != nil {
		t.Fatalf("FetchChartBundle wrapped: %v", err)
	}
	want, err := bare.FetchChartBundle(context.Background())
	if err != nil {
		t.Fatalf("FetchChartBundle bare: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("wrapped decode = %+v, want identical to bare decode %+v", got, want)
	}
}

func TestFetchForecastSendsDaysAndDecodes(t *testing.T) {
	var gotBody []byte
	c := NewRemoteClient("https://example.test", zap.NewNop())
	c.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotBody, _ = io.ReadAll(req.Body)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body: io.NopCloser(strings.NewReader(
				`[null, {"daysRequested": 1.5, "forecastStepCount": 2, "stepMinutes": 15, "temperature": [20, 21]}]`)),
		}, nil
	})}

	bundle, err := c.FetchForecast(context.Background(), 1.5)
	if err != nil {
		t.Fatalf("FetchForecast: %v", err)
	}

	var req map[string]float64
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if req["days"] != 1.5 {
		t.Errorf("request days = %v, want 1.5", req["days"])
	}
	if bundle.ForecastStepCount != 2 || len(bundle.Temperature) != 2 {
		t.Errorf("decoded bundle = %+v", bundle)
	}
	if bundle.Humidity != nil {
		t.Errorf("absent metric array should decode nil, got %v", bundle.Humidity)
	}
}

func TestFetchSurfacesTransportAndStatusErrors(t *testing.T) {
	c := clientWithResponse(http.StatusInternalServerError, `boom`)
	if _, err := c.FetchChartBundle(context.Background()); err == nil {
		t.Fatal("expected error on 500 response")
	}

	c = clientWithResponse(http.StatusOK, `not json`)
	if _, err := c.FetchChartBundle(context.Background()); err == nil {
		t.Fatal("expected error on undecodable response")
	}
}

func TestDecodeMaybeWrappedRejectsShortArray(t *testing.T) {
	var out map[string]any
	if err := decodeMaybeWrapped([]byte(`[1]`), &out); err == nil {
		t.Fatal("expected error for 1-element array")
	}
	if err := decodeMaybeWrapped([]byte(`[1, {}, 3]`), &out); err == nil {
		t.Fatal("expected error for 3-element array")
	}
}
