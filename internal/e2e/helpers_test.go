package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jp2kd/internal/decoder"
	"jp2kd/internal/engine"
	"jp2kd/internal/engine/enginetest"
	"jp2kd/internal/httpapi"
)

// guestResult is what the test guest answers to every engine method except
// bootstrap. It parses both as a size and as a decoded image.
const guestResult = `{"bmp":"Qk0=","width":640,"height":480}`

var jp2Input = []byte("\x00\x00\x00\x0cjP  \r\n\x87\n\x00\x00\x00\x14ftypjp2 ")

// newServer starts an HTTP server over a coordinator backed by the wazero
// engine running the test guest.
func newServer(t *testing.T, cfg decoder.Config, init bool) (*httptest.Server, *decoder.Coordinator) {
	t.Helper()
	eng := engine.NewWasmEngine(enginetest.Guest(guestResult), decoder.DefaultMaxEngineMemoryBytes)
	coord := decoder.New(eng, cfg)
	t.Cleanup(func() { _ = coord.Release() })
	if init {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := coord.Init(ctx); err != nil {
			t.Fatalf("init: %v", err)
		}
	}
	srv := httptest.NewServer(httpapi.NewMux(context.Background(), coord))
	t.Cleanup(srv.Close)
	return srv, coord
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return doReq(t, req)
}

func httpPost(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return doReq(t, req)
}

func doReq(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
