package notification

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sseFrame struct {
	event string
	data  string
}

// readFrames parses the response body into frames; comment lines become frames with event ":".
func readFrames(body *bufio.Reader, out chan<- sseFrame) {
	defer close(out)
	var cur sseFrame
	for {
		line, err := body.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if cur.event != "" || cur.data != "" {
				out <- cur
			}
			cur = sseFrame{}
		case strings.HasPrefix(line, ":"):
			cur.event = ":"
		case strings.HasPrefix(line, "event:"):
			cur.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func nextFrame(t *testing.T, frames <-chan sseFrame) sseFrame {
	t.Helper()
	select {
	case f, ok := <-frames:
		require.True(t, ok, "stream ended")
		return f
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream frame")
	}
	return sseFrame{}
}

func openStream(t *testing.T, url, recipient string) (<-chan sseFrame, *http.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url+"/notifications/events", nil)
	require.NoError(t, err)
	req.Header.Set(testRecipientHeader, recipient)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	frames := make(chan sseFrame, 16)
	go readFrames(bufio.NewReader(resp.Body), frames)
	return frames, resp
}

func TestGateway_StreamsPersonalAndGlobalEvents(t *testing.T) {
	s, _, _ := newTestService(t)
	router, gateway := newTestRouter(s, testConfig())
	srv := httptest.NewServer(router)
	defer srv.Close()

	frames, resp := openStream(t, srv.URL, "R")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	first := nextFrame(t, frames)
	assert.Equal(t, EventConnected, first.event)
	assert.JSONEq(t, `{"recipient":"R"}`, first.data)

	createAndWait(t, s, "R", CreateRequest{ID: "one", Text: "x"})
	createAndWait(t, s, "S", CreateRequest{ID: "not-mine", Text: "x"})
	createAndWait(t, s, "R", CreateRequest{ID: "two", Text: "x", IsGlobal: true})

	f := nextFrame(t, frames)
	assert.Equal(t, EventNotification, f.event)
	n, err := decode(f.data)
	require.NoError(t, err)
	assert.Equal(t, "one", n.ID)

	f = nextFrame(t, frames)
	n, err = decode(f.data)
	require.NoError(t, err)
	assert.Equal(t, "two", n.ID)
	assert.True(t, n.IsGlobal)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, gateway.Shutdown(ctx))

	select {
	case _, ok := <-frames:
		assert.False(t, ok, "stream should end after shutdown")
	case <-time.After(3 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
}

func TestGateway_KeepAlive(t *testing.T) {
	s, _, _ := newTestService(t)
	cfg := testConfig()
	cfg.StreamKeepAlive = 20 * time.Millisecond
	router, gateway := newTestRouter(s, cfg)
	srv := httptest.NewServer(router)
	defer srv.Close()
	defer gateway.Shutdown(context.Background())

	frames, _ := openStream(t, srv.URL, "R")
	assert.Equal(t, EventConnected, nextFrame(t, frames).event)
	assert.Equal(t, ":", nextFrame(t, frames).event)
}

func TestGateway_ClientDisconnectReleasesSubscription(t *testing.T) {
	s, _, mr := newTestService(t)
	router, gateway := newTestRouter(s, testConfig())
	srv := httptest.NewServer(router)
	defer srv.Close()

	frames, resp := openStream(t, srv.URL, "R")
	nextFrame(t, frames)
	assert.Len(t, mr.PubSubChannels(""), 2)

	require.NoError(t, resp.Body.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	// A publish makes the handler notice the closed connection on write.
	for {
		createAndWait(t, s, "R", CreateRequest{Text: "ping"})
		if len(mr.PubSubChannels("")) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			t.Fatal("subscription not released after client disconnect")
		case <-time.After(20 * time.Millisecond):
		}
	}
	require.NoError(t, gateway.Shutdown(ctx))
}

func TestGateway_SubscribeFailure(t *testing.T) {
	store := new(MockStore)
	store.On("Subscribe", mock.Anything, []string{personalChannel("R"), globalChannel}).
		Return(nil, &StoreError{Op: "SUBSCRIBE", Err: errors.New("connection refused")})
	s := newService(store, testConfig(), zap.NewNop())
	router, _ := newTestRouter(s, testConfig())

	w := doRequest(t, router, http.MethodGet, "/notifications/events", "R", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	store.AssertExpectations(t)
}

func TestGateway_RejectsAfterShutdown(t *testing.T) {
	s, _, _ := newTestService(t)
	router, gateway := newTestRouter(s, testConfig())
	require.NoError(t, gateway.Shutdown(context.Background()))

	w := doRequest(t, router, http.MethodGet, "/notifications/events", "R", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGateway_ShutdownWaitsForAdmittedStreams(t *testing.T) {
	s, _, _ := newTestService(t)
	g := NewGateway(s, testConfig(), zap.NewNop())

	var open atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !g.admit() {
				return
			}
			open.Add(1)
			time.Sleep(5 * time.Millisecond)
			open.Add(-1)
			g.active.Done()
		}()
	}

	require.NoError(t, g.Shutdown(context.Background()))
	assert.Zero(t, open.Load(), "no admitted stream outlives Shutdown")
	wg.Wait()
	assert.False(t, g.admit())
}
