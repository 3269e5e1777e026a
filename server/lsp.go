package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/bfi/compiler"
	"github.com/chazu/bfi/pkg/bytecode"
)

const lspName = "bfi-lsp"

// LspServer provides editor features for program source: bracket
// diagnostics, hover, and jumping between loop partners.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*document // URI → analyzed document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// document is one open source file, analyzed on every change.
type document struct {
	text   string
	tokens []compiler.Token
	pairs  map[int]int
	diags  []compiler.Diagnostic
}

func analyze(text string) *document {
	tokens := compiler.ParseString(text)
	return &document{
		text:   text,
		tokens: tokens,
		pairs:  compiler.MatchBrackets(tokens),
		diags:  compiler.Check(tokens),
	}
}

// NewLSP creates a new language server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.GetLogger("bfi.server").Info("bfi LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	clear(s.docs)
	s.mu.Unlock()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := s.update(uri, params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			doc := s.update(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, doc)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) update(uri protocol.DocumentUri, text string) *document {
	doc := analyze(text)
	s.mu.Lock()
	s.docs[string(uri)] = doc
	s.mu.Unlock()
	return doc
}

func (s *LspServer) lookup(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[string(uri)]
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	return doc.hover(params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	loc := doc.definition(params.TextDocument.URI, params.Position)
	if loc == nil {
		return nil, nil
	}
	return *loc, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	return doc.references(params.TextDocument.URI, params.Position), nil
}

// --- Document analysis ---

// tokenAt returns the index of the command under the cursor, or -1. A
// cursor just past a command also selects it.
func (d *document) tokenAt(pos protocol.Position) int {
	line, col := int(pos.Line)+1, int(pos.Character)+1
	if i := d.find(line, col); i >= 0 {
		return i
	}
	if col > 1 {
		return d.find(line, col-1)
	}
	return -1
}

func (d *document) find(line, col int) int {
	i := sort.Search(len(d.tokens), func(i int) bool {
		p := d.tokens[i].Pos
		return p.Line > line || (p.Line == line && p.Column >= col)
	})
	if i < len(d.tokens) && d.tokens[i].Pos.Line == line && d.tokens[i].Pos.Column == col {
		return i
	}
	return -1
}

func (d *document) hover(pos protocol.Position) *protocol.Hover {
	i := d.tokenAt(pos)
	if i < 0 {
		return nil
	}

	var b strings.Builder
	tok := d.tokens[i]
	switch tok.Cmd {
	case bytecode.CmdLoopStart, bytecode.CmdLoopEnd:
		op := bytecode.OpLoopStart
		cond := "zero"
		if tok.Cmd == bytecode.CmdLoopEnd {
			op, cond = bytecode.OpLoopEnd, "non-zero"
		}
		fmt.Fprintf(&b, "**%s** `%c`\n\n", op, tok.Cmd.Symbol())
		if j, ok := d.pairs[i]; ok {
			fmt.Fprintf(&b, "Jumps to the matching `%c` at %s when the current cell is %s.",
				d.tokens[j].Cmd.Symbol(), d.tokens[j].Pos, cond)
		} else {
			b.WriteString("Unmatched bracket.")
		}
	case bytecode.CmdOutput:
		fmt.Fprintf(&b, "**%s** `.`\n\nWrites the current cell.", bytecode.OpOutput)
	case bytecode.CmdInput:
		fmt.Fprintf(&b, "**%s** `,`\n\nReads one byte into the current cell.", bytecode.OpInput)
	default:
		start, end := d.run(i)
		cmds := compiler.Commands(d.tokens[start:end])
		// A run holds no loops, so folding cannot fail.
		code, _ := bytecode.Optimize(cmds)
		fmt.Fprintf(&b, "Run of %d commands", len(cmds))
		if len(code) == 0 {
			b.WriteString(" cancels out.")
			break
		}
		b.WriteString(" folds to:\n\n```\n")
		for _, in := range code {
			fmt.Fprintf(&b, "%s\n", in)
		}
		b.WriteString("```")
	}

	rng := tokenRange(tok)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &rng,
	}
}

// run returns the bounds of the contiguous run of pointer or value
// commands containing token i.
func (d *document) run(i int) (start, end int) {
	kind := category(d.tokens[i].Cmd)
	start, end = i, i+1
	for start > 0 && category(d.tokens[start-1].Cmd) == kind {
		start--
	}
	for end < len(d.tokens) && category(d.tokens[end].Cmd) == kind {
		end++
	}
	return start, end
}

func category(c bytecode.Command) int {
	switch c {
	case bytecode.CmdIncPointer, bytecode.CmdDecPointer:
		return 1
	case bytecode.CmdIncValue, bytecode.CmdDecValue:
		return 2
	}
	return 0
}

func (d *document) definition(uri protocol.DocumentUri, pos protocol.Position) *protocol.Location {
	i := d.tokenAt(pos)
	if i < 0 {
		return nil
	}
	j, ok := d.pairs[i]
	if !ok {
		return nil
	}
	return &protocol.Location{URI: uri, Range: tokenRange(d.tokens[j])}
}

func (d *document) references(uri protocol.DocumentUri, pos protocol.Position) []protocol.Location {
	i := d.tokenAt(pos)
	if i < 0 {
		return nil
	}
	j, ok := d.pairs[i]
	if !ok {
		return nil
	}
	first, second := min(i, j), max(i, j)
	return []protocol.Location{
		{URI: uri, Range: tokenRange(d.tokens[first])},
		{URI: uri, Range: tokenRange(d.tokens[second])},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	diagnostics := doc.diagnostics()
	commonlog.GetLogger("bfi.server").Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (d *document) diagnostics() []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	for _, diag := range d.diags {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    tokenRange(d.tokens[diag.Index]),
			Severity: &severity,
			Source:   &source,
			Message:  diag.Message,
		})
	}
	return diagnostics
}

// --- Position helpers ---

// tokenRange covers the single character of tok. Columns count runes; every
// command character is one UTF-16 unit, so only lines holding characters
// outside the BMP before the token can be off.
func tokenRange(tok compiler.Token) protocol.Range {
	line := protocol.UInteger(tok.Pos.Line - 1)
	col := protocol.UInteger(tok.Pos.Column - 1)
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: col},
		End:   protocol.Position{Line: line, Character: col + 1},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
