package wavestream

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alohavoice/aloha/pkg/call"
	"github.com/alohavoice/aloha/pkg/errorsx"
)

var upgrader = websocket.Upgrader{}

func synthServer(t *testing.T, chunks [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req synthesisRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Text == "" || req.Voice == "" {
			_ = conn.WriteJSON(synthesisChunk{Error: "bad request"})
			return
		}
		for _, c := range chunks {
			_ = conn.WriteJSON(synthesisChunk{Audio: base64.StdEncoding.EncodeToString(c)})
		}
		_ = conn.WriteJSON(synthesisChunk{Done: true})
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func newClient(t *testing.T, endpoint string) *TTS {
	t.Helper()
	tts, err := New(Config{
		Endpoint:     endpoint,
		APIKey:       "test-key",
		DefaultVoice: "river",
		DialRetries:  1,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return tts
}

func TestSynthesizeCompleteRoundTrip(t *testing.T) {
	srv := synthServer(t, [][]byte{[]byte("hello "), []byte("world")})
	defer srv.Close()

	tts := newClient(t, wsURL(srv))
	got, err := tts.SynthesizeComplete(context.Background(), "Hi there!", call.VoiceProfile{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("audio = %q", got)
	}
}

func TestUpstreamErrorSurfaces(t *testing.T) {
	srv := synthServer(t, nil)
	defer srv.Close()

	tts := newClient(t, wsURL(srv))
	// Empty voice forces the server's error path.
	tts.cfg.DefaultVoice = ""
	_, err := tts.SynthesizeComplete(context.Background(), "Hi!", call.VoiceProfile{})
	if !errorsx.HasReason(err, errorsx.ReasonTTSSend) {
		t.Fatalf("err = %v, want send reason", err)
	}
}

func TestRateLimitReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tts := newClient(t, wsURL(srv))
	_, err := tts.SynthesizeComplete(context.Background(), "Hi!", call.VoiceProfile{})
	if !errorsx.HasReason(err, errorsx.ReasonTTSRateLimit) {
		t.Fatalf("err = %v, want rate-limit reason", err)
	}
}

func TestCircuitOpensAfterRateLimiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tts, err := New(Config{
		Endpoint:         wsURL(srv),
		APIKey:           "test-key",
		DialRetries:      1,
		BreakerThreshold: 1,
		BreakerCooldown:  time.Minute,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := tts.SynthesizeComplete(context.Background(), "Hi!", call.VoiceProfile{}); !errorsx.HasReason(err, errorsx.ReasonTTSRateLimit) {
		t.Fatalf("first err = %v, want rate limit", err)
	}
	_, err = tts.SynthesizeComplete(context.Background(), "Hi!", call.VoiceProfile{})
	if !errorsx.HasReason(err, errorsx.ReasonTTSCircuitOpen) {
		t.Fatalf("second err = %v, want open circuit", err)
	}
}

func TestRequestCarriesVoiceProfile(t *testing.T) {
	got := make(chan synthesisRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req synthesisRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		got <- req
		_ = conn.WriteJSON(synthesisChunk{Done: true})
	}))
	defer srv.Close()

	tts := newClient(t, wsURL(srv))
	_, err := tts.SynthesizeComplete(context.Background(), "Hi!", call.VoiceProfile{
		VoiceID: "cove", Speed: 1.1, Stability: 0.6,
	})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	req := <-got
	if req.Voice != "cove" || req.Speed != 1.1 || req.Stab != 0.6 {
		t.Fatalf("request = %+v", req)
	}
}
