package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/rotation"
)

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{model.Float(0.0123), "+1.23%"},
		{model.Float(-0.0456), "-4.56%"},
		{model.Float(0), "+0.00%"},
		{model.Float(-0.0), "+0.00%"},
		{model.Float(1.5), "+150.00%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPercent(tt.in))
	}
}

func sampleRecords() []model.FactorRecord {
	holdings := 12
	return []model.FactorRecord{
		{ID: 1, Name: "AI & Robotics", Type: model.FactorTypeThematic, Perf1D: model.Float(0.02), Perf1M: model.Float(0.05), Perf3M: model.Float(0.10), NumHoldings: &holdings},
		{ID: 2, Name: "Value", Perf1D: model.Float(-0.01), Perf1M: model.Float(-0.02), Perf3M: model.Float(0.03)},
		{ID: 3, Name: "Momentum", Perf1D: nil, Perf1M: model.Float(0.01), Perf3M: model.Float(-0.04)},
	}
}

func TestFormatRankings(t *testing.T) {
	top, bottom, err := ranking.TopAndBottom(sampleRecords(), model.Horizon1D, 2)
	require.NoError(t, err)

	msg := FormatRankings(model.Horizon1D, top, bottom)
	assert.Contains(t, msg, "<b>Top factors</b> (1D)")
	assert.Contains(t, msg, "1. AI &amp; Robotics +2.00%")
	assert.Contains(t, msg, "2. Value -1.00%")
	assert.Contains(t, msg, "1. Momentum N/A")

	empty := FormatRankings(model.Horizon5D, nil, nil)
	assert.Contains(t, empty, "(none)")
}

func TestFormatRotation(t *testing.T) {
	view, err := rotation.Build(sampleRecords(), model.Horizon1M, model.Horizon3M)
	require.NoError(t, err)

	msg := FormatRotation(view, 0)
	assert.Contains(t, msg, "(x: 1M, y: 3M)")
	assert.Contains(t, msg, "<b>Leaders</b> (1)")
	assert.Contains(t, msg, "<b>Fading</b> (1)")
	assert.Contains(t, msg, "<b>Recovering</b> (1)")
	assert.Contains(t, msg, "<b>Laggards</b> (0)")
	assert.Contains(t, msg, "Value -2.00% / +3.00%")
	assert.NotContains(t, msg, "without data")
}

func TestFormatFactor(t *testing.T) {
	recs := sampleRecords()
	msg := FormatFactor(&recs[0])
	assert.Contains(t, msg, "<b>AI &amp; Robotics</b> [THEMATIC]")
	assert.Contains(t, msg, "Holdings: 12")
	assert.Contains(t, msg, "1D:  +2.00%")
	assert.Contains(t, msg, "5D:  N/A")
	assert.Contains(t, msg, "12M: N/A")
}

func TestFormatSummary(t *testing.T) {
	msg := FormatSummary(calculator.Summarize(sampleRecords()))
	assert.Contains(t, msg, "<b>1D</b>: mean +0.50%")
	assert.Contains(t, msg, "(2/3)")
	assert.Contains(t, msg, "<b>5D</b>: no data")
}

func TestFormatDigest(t *testing.T) {
	recs := sampleRecords()
	top, bottom, err := ranking.TopAndBottom(recs, model.Horizon1D, 1)
	require.NoError(t, err)
	view, err := rotation.Build(recs, model.Horizon1D, model.Horizon3M)
	require.NoError(t, err)

	msg := FormatDigest(time.Date(2025, 1, 2, 16, 30, 0, 0, time.UTC), model.Horizon1D, top, bottom, view)
	assert.True(t, strings.HasPrefix(msg, "📰 <b>FactorPulse digest</b> | 2025-01-02 16:30"))
	assert.Contains(t, msg, "Top factors")
	assert.Contains(t, msg, "Factor rotation")
	assert.Contains(t, msg, "1 factor(s) without data at 1D or 3M")
}

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	return n
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "hello", payload["text"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "hello"))
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "chart", r.FormValue("caption"))
		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "chart.png", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).SendPhoto(context.Background(), "chart", []byte{0x89, 'P', 'N', 'G'}))
}

func TestSendWithRetry_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := newTestNotifier(srv).SendWithRetry(ctx, "hello", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendWithRetry_FirstAttemptSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).SendWithRetry(context.Background(), "hello", 3))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStartPolling(t *testing.T) {
	replies := make(chan string, 1)
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if atomic.AddInt32(&polls, 1) == 1 {
				assert.Equal(t, "0", r.URL.Query().Get("offset"))
				_, _ = io.WriteString(w, `{"ok":true,"result":[`+
					`{"update_id":6,"message":{"text":"/summary","chat":{"id":99}}},`+
					`{"update_id":7,"message":{"text":" /help ","chat":{"id":42}}}]}`)
				return
			}
			assert.Equal(t, "8", r.URL.Query().Get("offset"))
			select {
			case <-r.Context().Done():
			case <-time.After(50 * time.Millisecond):
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			replies <- payload["text"]
			_, _ = io.WriteString(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
			return "got " + cmd
		})
		close(done)
	}()

	select {
	case reply := <-replies:
		assert.Equal(t, "got /help", reply)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
}
