package resizetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/protocol"
)

func startServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)
	return srv, ts
}

func dialResize(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/resize/" + id
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.StatusFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := protocol.DecodeStatusFrame(msg)
	if err != nil {
		t.Fatalf("decode %q: %v", msg, err)
	}
	return f
}

func TestServer_GetInstance(t *testing.T) {
	srv, ts := startServer(t)
	id := srv.Instance().ID

	resp, err := http.Get(ts.URL + "/instances/" + id)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap page.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ID != id || snap.State != "running" || len(snap.Types) == 0 || len(snap.Regions) == 0 {
		t.Errorf("snapshot = %+v", snap)
	}

	resp2, err := http.Get(ts.URL + "/instances/i-nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown instance status = %d, want 404", resp2.StatusCode)
	}
}

func TestServer_PostRegion(t *testing.T) {
	srv, ts := startServer(t)

	resp, err := http.PostForm(ts.URL+"/region", url.Values{"region": {"eu-west-1"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := srv.Instance().Region; got != "eu-west-1" {
		t.Errorf("region = %q", got)
	}

	resp, err = http.PostForm(ts.URL+"/region", url.Values{"region": {"mars-1"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown region status = %d, want 400", resp.StatusCode)
	}
	if got := srv.Regions(); len(got) != 2 || got[1] != "mars-1" {
		t.Errorf("Regions() = %v", got)
	}
}

func TestServer_RegionFailure(t *testing.T) {
	_, ts := startServer(t, WithRegionFailure(http.StatusServiceUnavailable, "try later"))

	resp, err := http.PostForm(ts.URL+"/region", url.Values{"region": {"us-east-1"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestServer_PlaysScriptAndAppliesFrames(t *testing.T) {
	srv, ts := startServer(t, WithScript(Script{
		Progress("stopping"),
		Succeed("done"),
	}))
	conn := dialResize(t, ts, "i-1")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("m5.large")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, conn); f.Status != protocol.KindProgress || f.Message != "stopping" {
		t.Errorf("frame 1 = %v", f)
	}
	if f := readFrame(t, conn); f.Status != protocol.KindSuccess {
		t.Errorf("frame 2 = %v", f)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClosedByClient() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClosedByClient() != 1 {
		t.Errorf("ClosedByClient() = %d, want 1", srv.ClosedByClient())
	}
	if got := srv.Requests(); len(got) != 1 || got[0] != "m5.large" {
		t.Errorf("Requests() = %v", got)
	}
	if inst := srv.Instance(); inst.Type != "m5.large" || inst.State != "running" {
		t.Errorf("instance after success = %+v", inst)
	}
}

func TestServer_CloseStepIsNotCountedAsClientClose(t *testing.T) {
	srv, ts := startServer(t, WithScript(Script{Close()}))
	conn := dialResize(t, ts, "i-1")
	conn.WriteMessage(websocket.TextMessage, []byte("t3.large"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("read err = %v, want normal close", err)
	}
	if srv.ClosedByClient() != 0 {
		t.Errorf("ClosedByClient() = %d, want 0", srv.ClosedByClient())
	}
}

func TestServer_RejectResize(t *testing.T) {
	_, ts := startServer(t, WithRejectResize(http.StatusForbidden))
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/resize/i-1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %v", resp)
	}
}
