package toolsrv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/service"
	"github.com/lorekeep/skillforge/internal/store"
)

func newTestServer() *Server {
	logger := zap.NewNop()
	svc := service.New(store.NewMemory(), logger)
	return NewServer(svc, logger)
}

// runRequests feeds newline-delimited requests through Run and decodes the
// responses in order.
func runRequests(t *testing.T, srv *Server, requests ...string) []rpcResponse {
	t.Helper()
	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	var out bytes.Buffer
	if err := srv.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var responses []rpcResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var resp rpcResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// toolText extracts the text payload from a tools/call result.
func toolText(t *testing.T, resp rpcResponse) string {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %s", resp.Error.Message)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("parse tool result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("expected one text content block, got %+v", result.Content)
	}
	return result.Content[0].Text
}

func TestInitializeAndListTools(t *testing.T) {
	srv := newTestServer()
	responses := runRequests(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses (notification skipped), got %d", len(responses))
	}

	raw, _ := json.Marshal(responses[0].Result)
	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(raw, &init); err != nil {
		t.Fatalf("parse initialize result: %v", err)
	}
	if init.ProtocolVersion == "" {
		t.Error("expected protocol version")
	}
	if init.ServerInfo.Name != "skillforge" {
		t.Errorf("server name = %q, want skillforge", init.ServerInfo.Name)
	}

	raw, _ = json.Marshal(responses[1].Result)
	var list struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("parse tools/list result: %v", err)
	}
	if len(list.Tools) != 8 {
		t.Errorf("expected 8 tools, got %d", len(list.Tools))
	}
	for _, tool := range list.Tools {
		if tool.InputSchema["type"] != "object" {
			t.Errorf("tool %s: schema type = %v", tool.Name, tool.InputSchema["type"])
		}
	}
}

func TestCreateAndFindSkills(t *testing.T) {
	srv := newTestServer()
	responses := runRequests(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_skill","arguments":{"name":"git-workflow","description":"Manage git repositories, commits, branches and merge conflicts","tags":["git"]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"find_skills","arguments":{"task":"manage git repositories branches commits","min_confidence":0.01}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"find_skills","arguments":{"task":"水"}}}`,
	)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}

	var created struct {
		Skill struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"skill"`
	}
	if err := json.Unmarshal([]byte(toolText(t, responses[0])), &created); err != nil {
		t.Fatalf("parse create result: %v", err)
	}
	if created.Skill.ID == "" || created.Skill.Name != "git-workflow" {
		t.Fatalf("unexpected created skill: %+v", created.Skill)
	}

	var matches []struct {
		SkillID    string  `json:"skill_id"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(toolText(t, responses[1])), &matches); err != nil {
		t.Fatalf("parse matches: %v", err)
	}
	if len(matches) != 1 || matches[0].SkillID != created.Skill.ID {
		t.Fatalf("expected the created skill to match, got %+v", matches)
	}
	if matches[0].Confidence <= 0.3 {
		t.Errorf("confidence = %v, want > 0.3", matches[0].Confidence)
	}

	// Unrelated task still answers with an empty list, not null.
	if text := toolText(t, responses[2]); text != "[]" {
		t.Errorf("expected empty match list, got %s", text)
	}
}

func TestCreateConflictReported(t *testing.T) {
	srv := newTestServer()
	create := `{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"create_skill","arguments":{"name":"git-workflow","description":"Manage git repositories, commits, branches and merge conflicts","tags":["git"]%s}}}`
	responses := runRequests(t, srv,
		fmt.Sprintf(create, 1, ""),
		fmt.Sprintf(create, 2, ""),
		fmt.Sprintf(create, 3, `,"force":true`),
	)
	if responses[0].Error != nil {
		t.Fatalf("first create failed: %s", responses[0].Error.Message)
	}
	if responses[1].Error == nil {
		t.Fatal("duplicate create should report a conflict error")
	}
	if responses[1].Error.Code != codeInvalidParams {
		t.Errorf("conflict error code = %d, want %d", responses[1].Error.Code, codeInvalidParams)
	}
	if responses[2].Error != nil {
		t.Errorf("forced create failed: %s", responses[2].Error.Message)
	}
}

func TestUsageAndDeprecation(t *testing.T) {
	srv := newTestServer()
	responses := runRequests(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_skill","arguments":{"name":"pdf-export","description":"Render documents as PDF files with configurable layouts"}}}`,
	)
	var created struct {
		Skill struct {
			ID string `json:"id"`
		} `json:"skill"`
	}
	if err := json.Unmarshal([]byte(toolText(t, responses[0])), &created); err != nil {
		t.Fatalf("parse create result: %v", err)
	}

	// Same server instance keeps state across Run calls.
	responses = runRequests(t, srv,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"record_usage","arguments":{"id":"`+created.Skill.ID+`","success":true}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"deprecate_skill","arguments":{"id":"`+created.Skill.ID+`"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"list_skills","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"list_skills","arguments":{"include_deprecated":true}}}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"record_usage","arguments":{"id":"missing"}}}`,
	)
	if got := toolText(t, responses[0]); !strings.Contains(got, "recorded") {
		t.Errorf("record_usage result = %s", got)
	}
	if got := toolText(t, responses[1]); !strings.Contains(got, "deprecated") {
		t.Errorf("deprecate_skill result = %s", got)
	}
	if got := toolText(t, responses[2]); got != "[]" {
		t.Errorf("active list after deprecation = %s, want []", got)
	}
	var all []json.RawMessage
	if err := json.Unmarshal([]byte(toolText(t, responses[3])), &all); err != nil || len(all) != 1 {
		t.Errorf("expected 1 skill with deprecated included, got %s", toolText(t, responses[3]))
	}
	if responses[4].Error == nil || responses[4].Error.Code != codeInvalidParams {
		t.Errorf("unknown skill usage should be an invalid-params error, got %+v", responses[4].Error)
	}
}

func TestUnknownMethodAndTool(t *testing.T) {
	srv := newTestServer()
	responses := runRequests(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"launch_rockets","arguments":{}}}`,
		`this is not json`,
	)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != codeMethodNotFound {
		t.Errorf("unknown method error = %+v", responses[0].Error)
	}
	if responses[1].Error == nil || responses[1].Error.Code != codeInternalError {
		t.Errorf("unknown tool error = %+v", responses[1].Error)
	}
	if responses[2].Error == nil || responses[2].Error.Code != codeParseError {
		t.Errorf("malformed line error = %+v", responses[2].Error)
	}
}
