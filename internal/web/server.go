// Package web serves a read-only localhost status page: cost ledger
// snapshot, tool registry listing, and the last few transcript messages.
// It never accepts input and runs only when the operator opts in.
package web

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/loopsmith/loopsmith/internal/cost"
	"github.com/loopsmith/loopsmith/internal/provider"
	"github.com/loopsmith/loopsmith/internal/tool"
)

//go:embed templates/status.html
var content embed.FS

// maxConnections bounds concurrent connections to the status listener. It is
// a local inspector for one operator, not a public endpoint.
const maxConnections = 8

// transcriptTail is how many recent messages the page renders.
const transcriptTail = 20

// TranscriptFunc returns the current conversation transcript. It is called
// fresh on every request so the page always reflects live state.
type TranscriptFunc func() []provider.Message

// Dependencies wires the live components the status page reads from. None
// of them are mutated by this package.
type Dependencies struct {
	Model      string
	Registry   *tool.Registry
	Ledger     *cost.Ledger
	Transcript TranscriptFunc
}

// Server renders Dependencies as an HTML page at GET /.
type Server struct {
	deps    Dependencies
	tmpl    *template.Template
	mux     *http.ServeMux
	printer *message.Printer
}

// NewServer parses the embedded template and wires deps. It returns an
// error only if the embedded template is malformed, which would be a
// packaging bug rather than a runtime condition.
func NewServer(deps Dependencies) (*Server, error) {
	tmpl, err := template.ParseFS(content, "templates/status.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		deps:    deps,
		tmpl:    tmpl,
		mux:     http.NewServeMux(),
		printer: message.NewPrinter(language.English),
	}
	s.mux.HandleFunc("/", s.handleIndex)
	return s, nil
}

// viewToolRow is one row of the rendered tool table.
type viewToolRow struct {
	Name        string
	Description string
}

// viewMessage is one rendered transcript row.
type viewMessage struct {
	Role string
	Text string
}

type viewData struct {
	Model        string
	GeneratedAt  string
	CostSummary  string
	CostTotalUSD string
	CallCount    string
	Tools        []viewToolRow
	Messages     []viewMessage
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	data := s.buildViewData()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Printf("[web] render error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) buildViewData() viewData {
	summary := s.deps.Ledger.Summary()

	tools := make([]viewToolRow, 0)
	if s.deps.Registry != nil {
		for _, def := range s.deps.Registry.Definitions() {
			tools = append(tools, viewToolRow{Name: def.Name, Description: def.Description})
		}
	}

	var messages []viewMessage
	if s.deps.Transcript != nil {
		transcript := s.deps.Transcript()
		if len(transcript) > transcriptTail {
			transcript = transcript[len(transcript)-transcriptTail:]
		}
		for _, m := range transcript {
			messages = append(messages, viewMessage{Role: string(m.Role), Text: renderMessageText(m)})
		}
	}

	return viewData{
		Model:        s.deps.Model,
		GeneratedAt:  time.Now().Format(time.RFC3339),
		CostSummary:  s.printer.Sprintf("%d tokens", summary.InputTokens+summary.OutputTokens),
		CostTotalUSD: s.printer.Sprintf("$%.4f", summary.TotalCostUSD),
		CallCount:    s.printer.Sprintf("%d", summary.Calls),
		Tools:        tools,
		Messages:     messages,
	}
}

// renderMessageText collapses a Message's text, tool calls, and tool results
// into a single display line for the status page.
func renderMessageText(m provider.Message) string {
	if m.Text != "" {
		return m.Text
	}
	for _, tc := range m.ToolCalls {
		return "tool call: " + tc.Name
	}
	for _, res := range m.Results {
		if res.IsError {
			return "tool error (" + res.Name + "): " + res.Output
		}
		return "tool result (" + res.Name + "): " + res.Output
	}
	return ""
}

// Start listens on WEB_HOST:WEB_PORT (default 127.0.0.1:8765) and serves
// until ctx is cancelled, then shuts down gracefully within 5s.
func (s *Server) Start(ctx context.Context) error {
	host := os.Getenv("WEB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("WEB_PORT")
	if port == "" {
		port = "8765"
	}

	ln, err := net.Listen("tcp", host+":"+port)
	if err != nil {
		return err
	}
	ln = netutil.LimitListener(ln, maxConnections)

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	log.Printf("[web] status page at http://%s:%s", host, port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
