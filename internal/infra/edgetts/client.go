package edgetts

import (
	"context"
	"encoding/binary"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultEndpoint    = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	// DefaultOutputFormat is the mp3 stream the readaloud endpoint serves
	// by default.
	DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
)

// Client synthesizes speech through the Edge readaloud websocket service.
// One connection is opened per Synthesize call; the protocol is a
// speech.config message, an SSML message, then binary audio frames until
// turn.end.
type Client struct {
	endpoint     string
	outputFormat string
	dialer       *websocket.Dialer
}

func NewClient(outputFormat string) *Client {
	return NewClientWithEndpoint(outputFormat, defaultEndpoint)
}

func NewClientWithEndpoint(outputFormat, endpoint string) *Client {
	if outputFormat == "" {
		outputFormat = DefaultOutputFormat
	}
	return &Client{
		endpoint:     endpoint,
		outputFormat: outputFormat,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// OutputFormat returns the negotiated audio output format.
func (c *Client) OutputFormat() string {
	return c.outputFormat
}

// Synthesize converts text to audio using the named voice and returns the
// raw audio stream in the configured output format.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	if voice == "" {
		return nil, fmt.Errorf("no voice selected")
	}

	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", c.endpoint, trustedClientToken, connID)

	header := http.Header{}
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")

	conn, resp, err := c.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("synthesis error: connecting (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("synthesis error: connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	}

	if err := conn.WriteMessage(websocket.TextMessage, speechConfigMessage(c.outputFormat)); err != nil {
		return nil, fmt.Errorf("synthesis error: sending speech.config: %w", err)
	}

	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := conn.WriteMessage(websocket.TextMessage, ssmlMessage(requestID, text, voice)); err != nil {
		return nil, fmt.Errorf("synthesis error: sending ssml: %w", err)
	}

	var audio []byte
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("synthesis error: reading: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				if len(audio) == 0 {
					return nil, fmt.Errorf("synthesis error: no audio received")
				}
				return audio, nil
			}

		case websocket.BinaryMessage:
			payload, ok := audioPayload(data)
			if ok {
				audio = append(audio, payload...)
			}
		}
	}
}

// audioPayload strips the binary frame header. Frames start with a 2-byte
// big-endian header length; only frames whose header carries Path:audio
// hold audio data.
func audioPayload(frame []byte) ([]byte, bool) {
	if len(frame) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(frame[:2]))
	if len(frame) < 2+headerLen {
		return nil, false
	}
	header := string(frame[2 : 2+headerLen])
	for _, line := range strings.Split(header, "\r\n") {
		if strings.TrimSpace(line) == "Path:audio" {
			return frame[2+headerLen:], true
		}
	}
	return nil, false
}

func speechConfigMessage(outputFormat string) []byte {
	body := fmt.Sprintf(`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"%s"}}}}`, outputFormat)
	return []byte(
		"X-Timestamp:" + timestamp() + "\r\n" +
			"Content-Type:application/json; charset=utf-8\r\n" +
			"Path:speech.config\r\n\r\n" +
			body)
}

func ssmlMessage(requestID, text, voice string) []byte {
	ssml := fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>`+
			`<voice name='%s'>%s</voice></speak>`,
		voiceLocale(voice), voice, html.EscapeString(text))
	return []byte(
		"X-RequestId:" + requestID + "\r\n" +
			"Content-Type:application/ssml+xml\r\n" +
			"X-Timestamp:" + timestamp() + "\r\n" +
			"Path:ssml\r\n\r\n" +
			ssml)
}

// voiceLocale extracts the locale prefix of a neural voice name, e.g.
// "en-US" from "en-US-ChristopherNeural".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}
