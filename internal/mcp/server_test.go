package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"lawmcp/internal/config"
	"lawmcp/internal/legal"
	"lawmcp/internal/llm"
	"lawmcp/internal/model"
	"lawmcp/internal/search"
)

type recordingResolver struct {
	prompts []string
	reply   llm.Completion
}

func (r *recordingResolver) Name() string { return "fake" }

func (r *recordingResolver) Resolve(_ context.Context, prompt string) llm.Completion {
	r.prompts = append(r.prompts, prompt)
	out := r.reply
	out.Prompt = prompt
	return out
}

type fakeSearcher struct {
	hits []model.SearchHit
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]model.SearchHit, error) {
	return f.hits, f.err
}

type panickingResolver struct{}

func (panickingResolver) Name() string { return "panic" }

func (panickingResolver) Resolve(context.Context, string) llm.Completion {
	panic("resolver exploded")
}

func newTestServer(t *testing.T, resolver llm.Resolver, searcher model.Searcher) *Server {
	t.Helper()
	cfg := config.Default()
	srv, err := NewServer(ServerOptions{
		Config:     &cfg,
		Resolver:   resolver,
		Searcher:   searcher,
		SearchName: "fake",
		Version:    "test",
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

// rpc sends one JSON-RPC message and returns the decoded response.
func rpc(t *testing.T, srv *Server, body string) map[string]any {
	t.Helper()
	resp := srv.mcp.HandleMessage(context.Background(), json.RawMessage(body))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return out
}

func callText(t *testing.T, srv *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":`+string(params)+`}`)
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result, got %v", resp)
	}
	content, _ := result["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("expected one content item, got %v", result["content"])
	}
	item, _ := content[0].(map[string]any)
	if item["type"] != "text" {
		t.Fatalf("content type=%v", item["type"])
	}
	isError, _ := result["isError"].(bool)
	text, _ := item["text"].(string)
	return text, isError
}

func TestNewServer_RequiresConfigAndResolver(t *testing.T) {
	cfg := config.Default()
	if _, err := NewServer(ServerOptions{Resolver: llm.Mock{}}); err == nil {
		t.Fatalf("expected error without config")
	}
	if _, err := NewServer(ServerOptions{Config: &cfg}); err == nil {
		t.Fatalf("expected error without resolver")
	}
}

func TestServer_Initialize(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("initialize failed: %v", resp)
	}
	info, _ := result["serverInfo"].(map[string]any)
	if info["name"] != ServerName || info["version"] != "test" {
		t.Fatalf("serverInfo=%v", info)
	}
	caps, _ := result["capabilities"].(map[string]any)
	if _, ok := caps["tools"]; !ok {
		t.Fatalf("tools capability missing: %v", caps)
	}
}

func TestServer_ToolsList(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`)
	result, _ := resp["result"].(map[string]any)
	tools, _ := result["tools"].([]any)

	want := map[string][]string{
		legal.ToolRTI:               {"facts"},
		legal.ToolDivorce:           {"facts"},
		legal.ToolConsumerComplaint: {"facts"},
		legal.ToolPropertyDispute:   {"facts"},
		legal.ToolWorkplaceIssue:    {"facts"},
		legal.ToolFamilyLaw:         {"facts"},
		legal.ToolCybercrime:        {"facts"},
		legal.ToolGuideSteps:        {"case_type"},
		legal.ToolDraftLetter:       {"case_type", "facts"},
		ToolWebSearch:               {"query"},
	}
	if len(tools) != len(want) {
		t.Fatalf("tools=%d want=%d", len(tools), len(want))
	}
	for _, raw := range tools {
		tool, _ := raw.(map[string]any)
		name, _ := tool["name"].(string)
		params, ok := want[name]
		if !ok {
			t.Fatalf("unexpected tool %q", name)
		}
		if desc, _ := tool["description"].(string); desc == "" {
			t.Fatalf("tool %s has no description", name)
		}
		schema, _ := tool["inputSchema"].(map[string]any)
		props, _ := schema["properties"].(map[string]any)
		required, _ := schema["required"].([]any)
		if len(props) != len(params) || len(required) != len(params) {
			t.Fatalf("tool %s schema=%v", name, schema)
		}
		for i, p := range params {
			if _, ok := props[p]; !ok {
				t.Fatalf("tool %s missing property %q", name, p)
			}
			if required[i] != p {
				t.Fatalf("tool %s required=%v", name, required)
			}
		}
	}
}

func TestServer_DomainToolsEchoFactsInMockMode(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	facts := "I applied for RTI 45 days ago and got no reply"
	for _, pt := range legal.Catalog() {
		args := map[string]any{}
		for _, p := range pt.Params {
			args[p.Name] = facts
		}
		text, isError := callText(t, srv, pt.Name, args)
		if isError {
			t.Fatalf("%s: unexpected tool error %q", pt.Name, text)
		}
		if !strings.HasPrefix(text, "[Mock response] Prompt:\n\n") {
			t.Fatalf("%s: missing mock marker: %q", pt.Name, text)
		}
		if !strings.Contains(text, facts) {
			t.Fatalf("%s: facts not echoed", pt.Name)
		}
	}
}

func TestServer_DraftLetterForwardsBothArguments(t *testing.T) {
	resolver := &recordingResolver{reply: llm.Completion{Text: "Dear PIO, ..."}}
	srv := newTestServer(t, resolver, search.Disabled{})

	text, isError := callText(t, srv, legal.ToolDraftLetter, map[string]any{
		"case_type": "RTI request",
		"facts":     "want copy of file X",
	})
	if isError || text != "Dear PIO, ..." {
		t.Fatalf("text=%q isError=%v", text, isError)
	}
	if len(resolver.prompts) != 1 {
		t.Fatalf("resolver called %d times", len(resolver.prompts))
	}
	prompt := resolver.prompts[0]
	if !strings.Contains(prompt, "RTI request") || !strings.Contains(prompt, "want copy of file X") {
		t.Fatalf("prompt missing arguments: %q", prompt)
	}
}

func TestServer_LLMErrorIsTextNotFault(t *testing.T) {
	resolver := &recordingResolver{reply: llm.Completion{
		Err: &model.ProviderError{Code: model.CodeLLMAuth, Message: "invalid api key"},
	}}
	srv := newTestServer(t, resolver, search.Disabled{})

	text, isError := callText(t, srv, legal.ToolRTI, map[string]any{"facts": "x"})
	if isError {
		t.Fatalf("model failure must not be a tool error")
	}
	if !strings.HasPrefix(text, "[LLM error] LLM_AUTH: invalid api key\n\nPrompt:\n") {
		t.Fatalf("text=%q", text)
	}
}

func TestServer_MissingArgumentIsToolError(t *testing.T) {
	resolver := &recordingResolver{}
	srv := newTestServer(t, resolver, search.Disabled{})

	text, isError := callText(t, srv, legal.ToolDraftLetter, map[string]any{"case_type": "RTI request"})
	if !isError || !strings.Contains(text, "facts") {
		t.Fatalf("text=%q isError=%v", text, isError)
	}
	if len(resolver.prompts) != 0 {
		t.Fatalf("resolver must not be called")
	}
}

func TestServer_UnknownTool(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"tax_info","arguments":{}}}`)
	if _, ok := resp["error"]; !ok {
		t.Fatalf("expected JSON-RPC error, got %v", resp)
	}
}

func TestServer_PanicInHandlerIsContained(t *testing.T) {
	srv := newTestServer(t, panickingResolver{}, search.Disabled{})
	if _, err := srv.CallTool(context.Background(), legal.ToolRTI, map[string]any{"facts": "x"}); err == nil {
		t.Fatalf("expected error from panicking resolver")
	}
	// The server keeps serving after a contained panic.
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`)
	if _, ok := resp["result"]; !ok {
		t.Fatalf("tools/list after panic: %v", resp)
	}
}

func TestServer_WebSearch(t *testing.T) {
	tests := []struct {
		name     string
		searcher model.Searcher
		query    string
		check    func(string) bool
	}{
		{
			name:     "unavailable",
			searcher: search.Disabled{},
			query:    "consumer court fees 2024",
			check: func(s string) bool {
				return strings.Contains(s, "unavailable") && strings.Contains(s, "consumer court fees 2024")
			},
		},
		{
			name:     "no results",
			searcher: &fakeSearcher{},
			query:    "zzz",
			check:    func(s string) bool { return s == "No results found." },
		},
		{
			name: "hits",
			searcher: &fakeSearcher{hits: []model.SearchHit{
				{Title: "Cyber Crime Portal", Link: "https://cybercrime.gov.in/", Snippet: "Report online."},
			}},
			query: "report cyber fraud",
			check: func(s string) bool {
				return s == "- Cyber Crime Portal\n  https://cybercrime.gov.in/\n  Report online."
			},
		},
		{
			name:     "backend error",
			searcher: &fakeSearcher{err: &model.ProviderError{Code: model.CodeSearchRateLimit, Message: "slow down"}},
			query:    "q",
			check:    func(s string) bool { return s == "Search error: SEARCH_RATE_LIMIT: slow down" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, llm.Mock{}, tt.searcher)
			text, isError := callText(t, srv, ToolWebSearch, map[string]any{"query": tt.query})
			if isError || !tt.check(text) {
				t.Fatalf("text=%q isError=%v", text, isError)
			}
		})
	}
}

func TestServer_CallTool(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})

	text, err := srv.CallTool(context.Background(), legal.ToolGuideSteps, map[string]any{"case_type": "consumer complaint"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.Contains(text, "consumer complaint") {
		t.Fatalf("text=%q", text)
	}

	if _, err := srv.CallTool(context.Background(), legal.ToolGuideSteps, nil); err == nil {
		t.Fatalf("expected error for missing case_type")
	}
	if _, err := srv.CallTool(context.Background(), "nope", nil); err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}

func TestServer_HTTPToolCall(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	handler := srv.Handler()

	reqBody := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"rti_info","arguments":{"facts":"file noting on my transfer"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, rr.Body.String())
	}
	if len(resp.Result.Content) != 1 || !strings.Contains(resp.Result.Content[0].Text, "file noting on my transfer") {
		t.Fatalf("unexpected response %s", rr.Body.String())
	}
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var health healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Resolver != "mock" || health.Search != "fake" || health.Tools != 10 {
		t.Fatalf("health=%+v", health)
	}

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /healthz status=%d", rr.Code)
	}
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve returned %v", err)
	}
}

func TestServer_ServeStdio(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"web_search","arguments":{"query":"rti fee"}}}` + "\n",
	)
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.ServeStdio(ctx, in, &out); err != nil {
		t.Fatalf("ServeStdio: %v", err)
	}
	if !strings.Contains(out.String(), "Query was: rti fee") {
		t.Fatalf("stdout=%q", out.String())
	}
}

func TestServer_HTTPServerHasNoWriteTimeout(t *testing.T) {
	srv := newTestServer(t, llm.Mock{}, search.Disabled{})
	hs := srv.httpServer()
	if hs.WriteTimeout != 0 {
		t.Fatalf("slow model calls must not be cut off, WriteTimeout=%s", hs.WriteTimeout)
	}
	if hs.ReadHeaderTimeout == 0 {
		t.Fatalf("ReadHeaderTimeout should stay set")
	}
}
