package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	iLsp "github.com/jwtly10/jscc/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// MethodPreview returns the processed text of an open document.
const MethodPreview = "jscc/preview"

type Server struct {
	conn *jsonrpc2.Conn
	// tracks canceled request IDs
	cancelMap sync.Map

	// tracking for method request counts
	trackRequestCount sync.Map

	docService *iLsp.DocumentService

	exit     func(code int)
	shutdown bool
}

type Options struct {
	DocService iLsp.DocumentServiceOptions
	// Exit ends the process on the exit notification. Defaults to os.Exit.
	Exit func(code int)
}

func (o Options) Validate() error {
	return o.DocService.Validate()
}

func NewServer(options Options) (*Server, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	dService, err := iLsp.NewDocumentService(options.DocService)
	if err != nil {
		return nil, err
	}

	exit := options.Exit
	if exit == nil {
		exit = os.Exit
	}
	return &Server{docService: dService, exit: exit}, nil
}

// PreviewParams are the params of MethodPreview.
type PreviewParams struct {
	TextDocument lsp.TextDocumentIdentifier `json:"textDocument"`
}

type PreviewResult struct {
	URI  lsp.DocumentURI `json:"uri"`
	Text string          `json:"text"`
	// LineMap holds the 1-based source line of every preview line, 0 for
	// padding.
	LineMap []int `json:"lineMap"`
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	if s.conn == nil {
		s.conn = conn
	}
	slog.Info("received request", "method", req.Method, "id", req.ID)
	reqCount, _ := s.trackRequestCount.LoadOrStore(req.Method, 0)
	if count, ok := reqCount.(int); ok {
		s.trackRequestCount.Store(req.Method, count+1)
	}

	if _, ok := s.cancelMap.Load(req.ID.String()); ok && !req.Notif {
		slog.Debug("request was canceled", "id", req.ID)
		s.cancelMap.Delete(req.ID.String())
		return nil, &jsonrpc2.Error{Code: -32800, Message: "request cancelled"}
	}

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		var initParams lsp.InitializeParams
		if err := unmarshal(req, &initParams); err != nil {
			return nil, err
		}
		if initParams.RootURI != "" {
			if root, err := s.docService.URIToPath(initParams.RootURI); err == nil {
				s.docService.SetRoot(root)
			}
		} else if initParams.RootPath != "" {
			s.docService.SetRoot(initParams.RootPath)
		}

		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Options: &lsp.TextDocumentSyncOptions{
						OpenClose: true,
						Change:    lsp.TDSKFull,
						Save:      &lsp.SaveOptions{},
					},
				},
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")
		s.shutdown = true
		s.printDebugStats()
		return nil, nil

	case "exit":
		slog.Info("exiting")
		if s.shutdown {
			s.exit(0)
		} else {
			s.exit(1)
		}
		return nil, nil

	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		doc := params.TextDocument
		return nil, s.update(ctx, doc.URI, doc.Text, doc.Version)

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		if len(params.ContentChanges) == 0 {
			return nil, nil
		}
		// Full sync: the last change holds the whole text.
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		return nil, s.update(ctx, params.TextDocument.URI, text, params.TextDocument.Version)

	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		outPath, err := s.docService.Build(params.TextDocument.URI)
		if err != nil {
			slog.Error("build on save failed", "uri", params.TextDocument.URI, "error", err)
			return nil, nil
		}
		if outPath != "" {
			slog.Info("built on save", "uri", params.TextDocument.URI, "output", outPath)
		}
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		s.docService.Close(params.TextDocument.URI)
		return nil, s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []lsp.Diagnostic{},
		})

	case MethodPreview:
		var params PreviewParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		res, err := s.docService.Preview(params.TextDocument.URI)
		if err != nil {
			return nil, err
		}
		lineMap := res.LineMap
		if lineMap == nil {
			lineMap = []int{}
		}
		return PreviewResult{URI: params.TextDocument.URI, Text: res.Code, LineMap: lineMap}, nil

	case "$/cancelRequest":
		var params lsp.CancelParams
		if err := unmarshal(req, &params); err != nil {
			return nil, err
		}
		slog.Debug("canceling request", "id", params.ID)
		s.cancelMap.Store(params.ID.String(), struct{}{})
		return nil, nil

	default:
		if req.Notif {
			slog.Debug("ignoring notification", "method", req.Method)
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", req.Method)}
	}
}

func (s *Server) update(ctx context.Context, uri lsp.DocumentURI, text string, version int) error {
	diags, err := s.docService.Update(uri, text, version)
	if err != nil {
		return err
	}
	return s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: diags})
}

func (s *Server) SendDiagnostics(ctx context.Context, params lsp.PublishDiagnosticsParams) error {
	if s.conn == nil {
		return fmt.Errorf("no client connection")
	}
	return s.conn.Notify(ctx, "textDocument/publishDiagnostics", params)
}

func unmarshal(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *Server) printDebugStats() {
	s.trackRequestCount.Range(func(key, value interface{}) bool {
		msg := fmt.Sprintf("Method: %-30s Count: %d", key.(string), value.(int))
		slog.Debug(msg)
		return true
	})
}
