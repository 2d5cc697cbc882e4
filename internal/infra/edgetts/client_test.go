package edgetts

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeEdgeServer speaks just enough of the readaloud protocol for the
// client: it expects speech.config and ssml messages, then streams binary
// audio frames and a turn.end.
func fakeEdgeServer(t *testing.T, audioChunks [][]byte, check func(configMsg, ssmlMsg string)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{
		// The client sends the Edge browser-extension Origin header, which
		// never matches the test server's host.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, configMsg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("reading speech.config: %v", err)
			return
		}
		_, ssmlMsg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("reading ssml: %v", err)
			return
		}
		if check != nil {
			check(string(configMsg), string(ssmlMsg))
		}

		conn.WriteMessage(websocket.TextMessage, []byte("Path:turn.start\r\n\r\n{}"))

		for _, chunk := range audioChunks {
			conn.WriteMessage(websocket.BinaryMessage, binaryAudioFrame(chunk))
		}

		conn.WriteMessage(websocket.TextMessage, []byte("Path:turn.end\r\n\r\n{}"))
	}))
}

func binaryAudioFrame(payload []byte) []byte {
	header := []byte("X-RequestId:abc\r\nContent-Type:audio/mpeg\r\nPath:audio\r\n")
	frame := make([]byte, 2+len(header)+len(payload))
	binary.BigEndian.PutUint16(frame[:2], uint16(len(header)))
	copy(frame[2:], header)
	copy(frame[2+len(header):], payload)
	return frame
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_Synthesize(t *testing.T) {
	var gotConfig, gotSSML string
	server := fakeEdgeServer(t, [][]byte{[]byte("mp3-part-1"), []byte("mp3-part-2")},
		func(configMsg, ssmlMsg string) {
			gotConfig = configMsg
			gotSSML = ssmlMsg
		})
	defer server.Close()

	client := NewClientWithEndpoint("", wsURL(server))

	audio, err := client.Synthesize(context.Background(), "Hello world", "en-US-ChristopherNeural")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if string(audio) != "mp3-part-1mp3-part-2" {
		t.Errorf("audio: got %q", audio)
	}
	if !strings.Contains(gotConfig, DefaultOutputFormat) {
		t.Errorf("speech.config missing output format: %q", gotConfig)
	}
	if !strings.Contains(gotSSML, "en-US-ChristopherNeural") {
		t.Errorf("ssml missing voice: %q", gotSSML)
	}
	if !strings.Contains(gotSSML, "xml:lang='en-US'") {
		t.Errorf("ssml missing locale: %q", gotSSML)
	}
}

func TestClient_Synthesize_EscapesMarkup(t *testing.T) {
	var gotSSML string
	server := fakeEdgeServer(t, [][]byte{[]byte("audio")}, func(_, ssmlMsg string) {
		gotSSML = ssmlMsg
	})
	defer server.Close()

	client := NewClientWithEndpoint("", wsURL(server))

	if _, err := client.Synthesize(context.Background(), "a < b & c", "en-US-ChristopherNeural"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if strings.Contains(gotSSML, "a < b & c") {
		t.Errorf("text not escaped: %q", gotSSML)
	}
	if !strings.Contains(gotSSML, "a &lt; b &amp; c") {
		t.Errorf("escaped text missing: %q", gotSSML)
	}
}

func TestClient_Synthesize_NoAudio(t *testing.T) {
	server := fakeEdgeServer(t, nil, nil)
	defer server.Close()

	client := NewClientWithEndpoint("", wsURL(server))

	if _, err := client.Synthesize(context.Background(), "Hello", "en-US-ChristopherNeural"); err == nil {
		t.Fatal("expected error when no audio frames arrive")
	}
}

func TestClient_Synthesize_EmptyInputs(t *testing.T) {
	client := NewClient("")

	if _, err := client.Synthesize(context.Background(), "", "en-US-ChristopherNeural"); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := client.Synthesize(context.Background(), "Hello", ""); err == nil {
		t.Error("expected error for empty voice")
	}
}

func TestAudioPayload(t *testing.T) {
	frame := binaryAudioFrame([]byte("payload"))
	payload, ok := audioPayload(frame)
	if !ok || string(payload) != "payload" {
		t.Errorf("audioPayload: got (%q, %v)", payload, ok)
	}

	if _, ok := audioPayload([]byte{0x00}); ok {
		t.Error("truncated frame should not parse")
	}

	meta := []byte("Path:audio.metadata\r\n")
	metaFrame := make([]byte, 2+len(meta))
	binary.BigEndian.PutUint16(metaFrame[:2], uint16(len(meta)))
	copy(metaFrame[2:], meta)
	if _, ok := audioPayload(metaFrame); ok {
		t.Error("metadata frame must not be treated as audio")
	}
}

func TestVoiceLocale(t *testing.T) {
	if got := voiceLocale("ja-JP-KeitaNeural"); got != "ja-JP" {
		t.Errorf("voiceLocale: got %q", got)
	}
	if got := voiceLocale("bogus"); got != "en-US" {
		t.Errorf("voiceLocale fallback: got %q", got)
	}
}
