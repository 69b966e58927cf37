package channels

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monica-concierge/monica/internal/artifact"
	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/catalog"
)

// 1x1 transparent PNG.
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

type webFixture struct {
	ch    *WebChannel
	bus   *bus.MessageBus
	store *artifact.Store
	reg   *prometheus.Registry
	srv   *httptest.Server
}

func newWebFixture(t *testing.T, cfg WebConfig) *webFixture {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b := bus.NewMessageBus(16)
	reg := prometheus.NewRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ch := NewWebChannel(cfg, b, catalog.Default(), store, reg, log)
	srv := httptest.NewServer(ch.Handler())
	t.Cleanup(srv.Close)

	return &webFixture{ch: ch, bus: b, store: store, reg: reg, srv: srv}
}

func (f *webFixture) inbound(t *testing.T) bus.InboundMessage {
	t.Helper()
	select {
	case msg := <-f.bus.InboundChan():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
		return bus.InboundMessage{}
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSend_TextPublishesInbound(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	resp := postJSON(t, f.srv.URL+"/send/alice/s1", clientFrame{MimeType: "text/plain", Data: "show me jackets"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "sent" {
		t.Errorf("unexpected body: %v", body)
	}

	msg := f.inbound(t)
	if msg.Channel() != bus.ChannelWeb || msg.ChatID() != "alice:s1" || msg.SenderID() != "alice" {
		t.Errorf("unexpected routing: %s %s %s", msg.Channel(), msg.ChatID(), msg.SenderID())
	}
	if msg.Content() != "show me jackets" {
		t.Errorf("content = %q", msg.Content())
	}
	if msg.SessionKey() != "web:alice:s1" {
		t.Errorf("session key = %q", msg.SessionKey())
	}
}

func TestSend_ImageStoredAsArtifact(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	resp := postJSON(t, f.srv.URL+"/send/alice/s1", clientFrame{
		MimeType: "image/png",
		Data:     "data:image/png;base64," + pixelPNG,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	msg := f.inbound(t)
	if len(msg.Media()) != 1 {
		t.Fatalf("expected one media path, got %v", msg.Media())
	}
	if _, err := os.Stat(msg.Media()[0]); err != nil {
		t.Errorf("media file missing: %v", err)
	}

	arts, err := f.store.List("web:alice:s1")
	if err != nil || len(arts) != 1 {
		t.Fatalf("expected one artifact, got %v (%v)", arts, err)
	}
	if !strings.Contains(msg.Content(), arts[0].Name) {
		t.Errorf("message does not name the artifact: %q", msg.Content())
	}
}

func TestSend_BadFrames(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	for name, frame := range map[string]clientFrame{
		"empty text":  {MimeType: "text/plain", Data: "  "},
		"bad base64":  {MimeType: "image/png", Data: "%%%"},
		"unsupported": {MimeType: "audio/pcm", Data: "AAAA"},
	} {
		resp := postJSON(t, f.srv.URL+"/send/alice/s1", frame)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}

	resp, err := http.Post(f.srv.URL+"/send/alice/s1", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid json: status = %d, want 400", resp.StatusCode)
	}

	if n := f.bus.InboundSize(); n != 0 {
		t.Errorf("rejected frames reached the bus: %d", n)
	}
}

func TestSend_ForbiddenUser(t *testing.T) {
	f := newWebFixture(t, WebConfig{AllowFrom: []string{"alice"}})

	resp := postJSON(t, f.srv.URL+"/send/mallory/s1", clientFrame{MimeType: "text/plain", Data: "hi"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	ev, err := http.Get(f.srv.URL + "/events/mallory/s1")
	if err != nil {
		t.Fatal(err)
	}
	ev.Body.Close()
	if ev.StatusCode != http.StatusForbidden {
		t.Errorf("events status = %d, want 403", ev.StatusCode)
	}
}

func TestSend_RejectsSeparatorInIDs(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	for _, path := range []string{"/send/a:b/c", "/send/a/b:c"} {
		resp := postJSON(t, f.srv.URL+path, clientFrame{MimeType: "text/plain", Data: "hi"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
		}
	}

	ev, err := http.Get(f.srv.URL + "/events/a:b/c")
	if err != nil {
		t.Fatal(err)
	}
	ev.Body.Close()
	if ev.StatusCode != http.StatusBadRequest {
		t.Errorf("events status = %d, want 400", ev.StatusCode)
	}

	if n := f.bus.InboundSize(); n != 0 {
		t.Errorf("rejected sends reached the bus: %d", n)
	}
}

func TestSend_ChatsDifferingOnlyBySeparatorKeepOwnArtifacts(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	for _, path := range []string{"/send/a_b/c", "/send/a/b_c"} {
		resp := postJSON(t, f.srv.URL+path, clientFrame{
			MimeType: "image/png",
			Data:     pixelPNG,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", path, resp.StatusCode)
		}
		f.inbound(t)
	}

	for _, key := range []string{"web:a_b:c", "web:a:b_c"} {
		arts, err := f.store.List(key)
		if err != nil {
			t.Fatal(err)
		}
		if len(arts) != 1 {
			t.Errorf("%s: expected one artifact, got %d", key, len(arts))
		}
	}
}

func TestProductsEndpoints(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	resp, err := http.Get(f.srv.URL + "/products")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var products []catalog.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatal(err)
	}
	if len(products) != catalog.Default().Len() || products[0].ID != "1" {
		t.Errorf("unexpected products: %d", len(products))
	}

	one, err := http.Get(f.srv.URL + "/products/3")
	if err != nil {
		t.Fatal(err)
	}
	defer one.Body.Close()
	var p catalog.Product
	if err := json.NewDecoder(one.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Casual White Sneakers" {
		t.Errorf("product 3 = %+v", p)
	}

	missing, err := http.Get(f.srv.URL + "/products/999")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing product status = %d", missing.StatusCode)
	}
}

func readEvent(t *testing.T, r *bufio.Reader) webEvent {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var ev webEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		return ev
	}
}

func TestEvents_StreamsAgentOutput(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	resp, err := http.Get(f.srv.URL + "/events/alice/s1?is_audio=true")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	progress := bus.NewOutboundMessage(bus.ChannelWeb, "alice:s1", "load_products_details(...)")
	progress.SetMetadata(map[string]any{bus.MetaProgress: true})
	cards := bus.NewOutboundMessage(bus.ChannelWeb, "alice:s1", "")
	cards.SetMetadata(map[string]any{bus.MetaProducts: catalog.Default().Select([]string{"1"})})
	reply := bus.NewOutboundMessage(bus.ChannelWeb, "alice:s1", "Here is a jacket.")
	done := bus.NewOutboundMessage(bus.ChannelWeb, "alice:s1", "")
	done.SetMetadata(map[string]any{bus.MetaTurnComplete: true})
	other := bus.NewOutboundMessage(bus.ChannelWeb, "bob:s1", "not for alice")

	for _, msg := range []bus.OutboundMessage{progress, other, cards, reply, done} {
		if err := f.ch.Send(testContext(t), msg); err != nil {
			t.Fatal(err)
		}
	}

	r := bufio.NewReader(resp.Body)

	ev := readEvent(t, r)
	if ev.MimeType != "application/json" {
		t.Fatalf("first event = %+v, want product cards", ev)
	}
	items, ok := ev.Data.([]any)
	if !ok || len(items) != 1 || items[0].(map[string]any)["name"] != "Classic Denim Jacket" {
		t.Errorf("unexpected cards: %#v", ev.Data)
	}

	ev = readEvent(t, r)
	if ev.MimeType != "text/plain" || ev.Data != "Here is a jacket." || ev.Role != "model" {
		t.Errorf("unexpected text event: %+v", ev)
	}

	ev = readEvent(t, r)
	if !ev.TurnComplete || ev.Interrupted == nil || *ev.Interrupted {
		t.Errorf("unexpected turn event: %+v", ev)
	}
}

func TestWebSocket_RoundTrip(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/alice/s2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(clientFrame{MimeType: "text/plain", Data: "hello"}); err != nil {
		t.Fatal(err)
	}
	msg := f.inbound(t)
	if msg.ChatID() != "alice:s2" || msg.Content() != "hello" {
		t.Fatalf("unexpected inbound: %s %q", msg.ChatID(), msg.Content())
	}

	if err := f.ch.Send(testContext(t), bus.NewOutboundMessage(bus.ChannelWeb, "alice:s2", "Hi there")); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev webEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Data != "Hi there" {
		t.Errorf("unexpected event: %+v", ev)
	}

	if err := conn.WriteJSON(clientFrame{MimeType: "video/mp4", Data: "x"}); err != nil {
		t.Fatal(err)
	}
	ev = webEvent{}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ev.Error, "unsupported") {
		t.Errorf("expected rejection event, got %+v", ev)
	}
}

func TestUpload_StoresAndServesImage(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	png, _ := base64.StdEncoding.DecodeString(pixelPNG)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "look.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(png)
	mw.Close()

	resp, err := http.Post(f.srv.URL+"/upload/alice/s1", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		URL  string `json:"url"`
		Path string `json:"path"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Size != int64(len(png)) || !strings.HasSuffix(out.Name, ".png") {
		t.Errorf("unexpected upload result: %+v", out)
	}
	if out.Path != "/uploads/alice/s1/"+out.Name || !strings.HasSuffix(out.URL, out.Path) {
		t.Errorf("unexpected upload location: %+v", out)
	}

	get, err := http.Get(f.srv.URL + out.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	served, _ := io.ReadAll(get.Body)
	if get.StatusCode != http.StatusOK || !bytes.Equal(served, png) {
		t.Errorf("served %d bytes with status %d", len(served), get.StatusCode)
	}
}

func TestUpload_RejectsNonImage(t *testing.T) {
	f := newWebFixture(t, WebConfig{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("plain text, not a picture"))
	mw.Close()

	resp, err := http.Post(f.srv.URL+"/upload/alice/s1", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMetrics_TokenAndCounters(t *testing.T) {
	f := newWebFixture(t, WebConfig{MetricsToken: "s3cret"})

	health, err := http.Get(f.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	health.Body.Close()

	anon, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	anon.Body.Close()
	if anon.StatusCode != http.StatusForbidden {
		t.Errorf("anonymous /metrics status = %d", anon.StatusCode)
	}

	// The counter is bumped after the response is written.
	var text string
	for i := 0; i < 20; i++ {
		text = scrapeMetrics(t, f.srv.URL, "s3cret")
		if strings.Contains(text, `path="/healthz"`) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("healthz request not counted:\n%s", text)
}

func scrapeMetrics(t *testing.T, base, token string) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, base+"/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authorised /metrics status = %d", resp.StatusCode)
	}
	text, _ := io.ReadAll(resp.Body)
	return string(text)
}
