package wavestream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alohavoice/aloha/pkg/audio"
	"github.com/alohavoice/aloha/pkg/call"
	"github.com/alohavoice/aloha/pkg/errorsx"
	"github.com/alohavoice/aloha/pkg/resilience"
)

type Config struct {
	// Endpoint is the websocket base, e.g. wss://api.wavestream.dev/v1/tts.
	Endpoint     string
	APIKey       string
	DefaultVoice string
	OutputFormat string
	SampleRate   int
	// DialRetries bounds reconnect attempts per synthesis.
	DialRetries int
	// BreakerThreshold failures open the circuit for BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Logger           *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.OutputFormat == "" {
		c.OutputFormat = "ulaw_8000"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 8000
	}
	if c.DialRetries <= 0 {
		c.DialRetries = 2
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// TTS streams synthesis over a per-request websocket session. A circuit
// breaker shields the upstream during sustained failures; dial attempts
// retry with backoff inside one synthesis call.
type TTS struct {
	cfg     Config
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryPolicy
}

func New(cfg Config) (*TTS, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, errors.New("wavestream: endpoint and api key required")
	}
	cfg = cfg.withDefaults()
	return &TTS{
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		retry:   resilience.NewRetryPolicy(cfg.DialRetries, 200*time.Millisecond),
	}, nil
}

type synthesisRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice"`
	Format string  `json:"format"`
	Speed  float64 `json:"speed,omitempty"`
	Stab   float64 `json:"stability,omitempty"`
}

type synthesisChunk struct {
	Audio string `json:"audio,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// SynthesizeStreaming speaks text onto the stream, closing it when the
// upstream signals completion. Cancelling the stream stops the read.
func (t *TTS) SynthesizeStreaming(ctx context.Context, text string, voice call.VoiceProfile, out *audio.Stream) error {
	conn, err := t.dial(ctx)
	if err != nil {
		out.Cancel()
		return err
	}
	defer conn.Close()

	if err := t.sendRequest(conn, text, voice); err != nil {
		out.Cancel()
		t.breaker.OnError(err)
		return errorsx.Wrap(err, errorsx.ReasonTTSSend)
	}

	for {
		select {
		case <-ctx.Done():
			out.Cancel()
			return ctx.Err()
		case <-out.Done():
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var chunk synthesisChunk
		if err := conn.ReadJSON(&chunk); err != nil {
			out.Cancel()
			t.breaker.OnError(err)
			return errorsx.Wrap(err, errorsx.ReasonTTSSend)
		}
		if chunk.Error != "" {
			out.Cancel()
			err := errors.New(chunk.Error)
			t.breaker.OnError(err)
			return errorsx.Wrap(err, errorsx.ReasonTTSSend)
		}
		if chunk.Audio != "" {
			raw, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				t.cfg.Logger.Warn("audio decode failed", "error", err)
				continue
			}
			if !out.Push(raw) && out.Cancelled() {
				return nil
			}
		}
		if chunk.Done {
			out.Close()
			t.breaker.OnSuccess()
			return nil
		}
	}
}

// SynthesizeComplete buffers a whole utterance, for short scripted lines
// where streaming buys nothing.
func (t *TTS) SynthesizeComplete(ctx context.Context, text string, voice call.VoiceProfile) ([]byte, error) {
	stream := audio.NewStream(256, t.cfg.SampleRate, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- t.SynthesizeStreaming(ctx, text, voice, stream) }()

	var buf []byte
	for chunk := range stream.Chunks() {
		buf = append(buf, chunk...)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *TTS) dial(ctx context.Context) (*websocket.Conn, error) {
	if !t.breaker.Allow() {
		return nil, errorsx.Wrap(errors.New("wavestream circuit open"), errorsx.ReasonTTSCircuitOpen)
	}

	u, err := t.buildURL()
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSConnect)
	}

	var conn *websocket.Conn
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: 5 * time.Second}
	err = t.retry.Do(ctx, func() error {
		c, resp, derr := dialer.DialContext(ctx, u, http.Header{
			"Authorization": []string{"Bearer " + t.cfg.APIKey},
		})
		if derr != nil {
			if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
				return resilience.RateLimitError{Provider: "wavestream", Message: resp.Status}
			}
			return derr
		}
		conn = c
		return nil
	})
	if err != nil {
		t.breaker.OnError(err)
		if resilience.IsRateLimit(err) {
			return nil, errorsx.Wrap(err, errorsx.ReasonTTSRateLimit)
		}
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSConnect)
	}
	return conn, nil
}

func (t *TTS) sendRequest(conn *websocket.Conn, text string, voice call.VoiceProfile) error {
	voiceID := voice.VoiceID
	if voiceID == "" {
		voiceID = t.cfg.DefaultVoice
	}
	req := synthesisRequest{
		Text:   strings.TrimSpace(text),
		Voice:  voiceID,
		Format: t.cfg.OutputFormat,
		Speed:  voice.Speed,
		Stab:   voice.Stability,
	}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (t *TTS) buildURL() (string, error) {
	u, err := url.Parse(t.cfg.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("format", t.cfg.OutputFormat)
	q.Set("sample_rate", strconv.Itoa(t.cfg.SampleRate))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var _ call.Speech = (*TTS)(nil)
