package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	bridgeMu  sync.Mutex
	bridgeLog *log.Logger
)

// SetBridgeWriter directs raw bridge payload dumps to w. A nil writer
// disables dumping entirely, which is the default.
func SetBridgeWriter(w io.Writer) {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if w == nil {
		bridgeLog = nil
		return
	}
	bridgeLog = log.New(w, "", log.LstdFlags)
}

type bridgeSection struct {
	Title string
	Body  string
}

func logBridge(kind, endpoint string, sections []bridgeSection) {
	bridgeMu.Lock()
	l := bridgeLog
	bridgeMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[BRIDGE]")
	if kind != "" {
		b.WriteString("[")
		b.WriteString(kind)
		b.WriteString("]")
	}
	if endpoint != "" {
		b.WriteString("[")
		b.WriteString(endpoint)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		body := sec.Body
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogBridgeRequest records an outgoing bridge payload when dumping is enabled.
func LogBridgeRequest(endpoint, payload string) {
	if strings.TrimSpace(payload) == "" {
		return
	}
	logBridge("request", endpoint, []bridgeSection{{Title: "PAYLOAD", Body: payload}})
}

// LogBridgeResponse records a raw bridge response when dumping is enabled.
func LogBridgeResponse(endpoint, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	logBridge("response", endpoint, []bridgeSection{{Title: "RAW", Body: raw}})
}
