package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"parley/approval"
	"parley/model"
	"parley/provider/testutil"
)

// fakeExecutor resolves a fixed set of tools and records executions.
type fakeExecutor struct {
	tools    map[string]func(call model.ToolCall) (string, error)
	executed []string
	onStart  func(name string)
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{tools: make(map[string]func(model.ToolCall) (string, error))}
}

func (f *fakeExecutor) register(name, result string) {
	f.tools[name] = func(model.ToolCall) (string, error) { return result, nil }
}

func (f *fakeExecutor) registerErr(name string, err error) {
	f.tools[name] = func(model.ToolCall) (string, error) { return "", err }
}

func (f *fakeExecutor) Resolves(name string) bool {
	_, ok := f.tools[name]
	return ok
}

func (f *fakeExecutor) Execute(ctx context.Context, call model.ToolCall) (string, error) {
	if f.onStart != nil {
		f.onStart(call.Name)
	}
	f.executed = append(f.executed, call.Name)
	fn, ok := f.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
	return fn(call)
}

func userHistory(text string) []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: text}}
}

func decodeToolResult(t *testing.T, msg model.Message) (result, errText string) {
	t.Helper()
	if msg.Role != model.RoleTool {
		t.Fatalf("expected tool role, got %q", msg.Role)
	}
	var payload struct {
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
		t.Fatalf("tool result is not JSON: %v", err)
	}
	return payload.Result, payload.Error
}

func TestRunTurnNoTools(t *testing.T) {
	prov := testutil.NewScriptedProvider(testutil.TextScript("hello there"))
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())

	res := o.RunTurn(context.Background(), userHistory("hi"), nil)

	if res.Status != StatusCompletedNoTools {
		t.Fatalf("status = %v, want completed_no_tools", res.Status)
	}
	if res.Assistant.Content != "hello there" {
		t.Errorf("assistant content = %q", res.Assistant.Content)
	}
	if len(prov.Requests) != 1 {
		t.Errorf("provider called %d times, want 1 (no looping)", len(prov.Requests))
	}
}

func TestRunTurnAlwaysPolicyExecutesWithoutPausing(t *testing.T) {
	call := model.ToolCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Paris"}`}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", call))

	exec := newFakeExecutor()
	exec.register("get_weather", `{"temp":21}`)

	store := approval.NewMemoryStore()
	if err := store.Apply("get_weather", approval.DecisionAlways); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), userHistory("weather?"), nil)

	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v, want completed_with_tools", res.Status)
	}
	if len(exec.executed) != 1 {
		t.Fatalf("executed %v, want one execution", exec.executed)
	}
	if got, _ := decodeToolResult(t, res.Results[0]); got != `{"temp":21}` {
		t.Errorf("result payload = %q", got)
	}
	if res.Results[0].ToolCallID != "call_1" {
		t.Errorf("result keyed to %q, want call_1", res.Results[0].ToolCallID)
	}
}

func TestRunTurnYoloExecutesWithoutPausing(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "read_file", Arguments: `{"path":"a"}`},
		{ID: "c2", Name: "run_command", Arguments: `{"command":"ls"}`},
	}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", calls...))

	exec := newFakeExecutor()
	exec.register("read_file", "contents")
	exec.register("run_command", "ok")

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), userHistory("go"), nil)

	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v, want completed_with_tools", res.Status)
	}
	if len(exec.executed) != 2 {
		t.Errorf("executed %v, want both tools", exec.executed)
	}
}

func TestRunTurnDefaultPolicyPausesOncePerCall(t *testing.T) {
	call := model.ToolCall{ID: "c1", Name: "get_weather", Arguments: `{"city":"Paris"}`}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", call))

	exec := newFakeExecutor()
	exec.register("get_weather", "sunny")

	o := New(prov, exec, approval.NewMemoryStore())
	res := o.RunTurn(context.Background(), userHistory("weather?"), nil)

	if res.Status != StatusPaused {
		t.Fatalf("status = %v, want paused", res.Status)
	}
	if len(exec.executed) != 0 {
		t.Fatalf("tool executed before decision: %v", exec.executed)
	}
	if res.Paused == nil || res.Paused.Head() != "get_weather" {
		t.Fatalf("paused state does not hold the call: %+v", res.Paused)
	}

	// Resuming with "once" executes the tool and completes the turn.
	resumed := o.Resume(context.Background(), res.Paused, approval.DecisionOnce)
	if resumed.Status != StatusCompletedWithTools {
		t.Fatalf("resumed status = %v, want completed_with_tools", resumed.Status)
	}
	if len(exec.executed) != 1 {
		t.Errorf("executed %v, want exactly one execution", exec.executed)
	}

	// "once" does not persist: the policy stays prompt.
	p, err := o.policy.PolicyFor("get_weather")
	if err != nil {
		t.Fatal(err)
	}
	if p != approval.PolicyPrompt {
		t.Errorf("policy after once = %v, want prompt", p)
	}
}

func TestResumeDenyYieldsErrorPayloadAndContinues(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "delete_file", Arguments: `{"path":"x"}`},
		{ID: "c2", Name: "read_file", Arguments: `{"path":"y"}`},
	}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", calls...))

	exec := newFakeExecutor()
	exec.register("delete_file", "deleted")
	exec.register("read_file", "contents")

	store := approval.NewMemoryStore()
	if err := store.Apply("read_file", approval.DecisionAlways); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), userHistory("clean up"), nil)
	if res.Status != StatusPaused {
		t.Fatalf("status = %v, want paused on delete_file", res.Status)
	}

	resumed := o.Resume(context.Background(), res.Paused, approval.DecisionDeny)
	if resumed.Status != StatusCompletedWithTools {
		t.Fatalf("resumed status = %v, want completed_with_tools", resumed.Status)
	}

	// First result: denial error payload referencing the denial.
	_, errText := decodeToolResult(t, resumed.Results[0])
	if !strings.Contains(errText, "denied") || !strings.Contains(errText, "delete_file") {
		t.Errorf("denial payload = %q, want mention of denial and tool name", errText)
	}
	if resumed.Results[0].ToolCallID != "c1" {
		t.Errorf("denial keyed to %q, want c1", resumed.Results[0].ToolCallID)
	}

	// Loop continued: the second call executed.
	if len(exec.executed) != 1 || exec.executed[0] != "read_file" {
		t.Errorf("executed %v, want only read_file", exec.executed)
	}
	if got, _ := decodeToolResult(t, resumed.Results[1]); got != "contents" {
		t.Errorf("second result = %q", got)
	}
}

func TestSecondPauseInSameTurn(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "tool_a", Arguments: `{}`},
		{ID: "c2", Name: "tool_b", Arguments: `{}`},
	}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", calls...))

	exec := newFakeExecutor()
	exec.register("tool_a", "a")
	exec.register("tool_b", "b")

	o := New(prov, exec, approval.NewMemoryStore())
	res := o.RunTurn(context.Background(), userHistory("go"), nil)
	if res.Status != StatusPaused || res.Paused.Head() != "tool_a" {
		t.Fatalf("first pause = %v on %q", res.Status, res.Paused.Head())
	}

	res = o.Resume(context.Background(), res.Paused, approval.DecisionOnce)
	if res.Status != StatusPaused || res.Paused.Head() != "tool_b" {
		t.Fatalf("second pause = %v on %q, want paused on tool_b", res.Status, res.Paused.Head())
	}
	if len(res.Paused.Results) != 1 {
		t.Errorf("results so far = %d, want 1", len(res.Paused.Results))
	}

	res = o.Resume(context.Background(), res.Paused, approval.DecisionOnce)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("final status = %v", res.Status)
	}
	if len(exec.executed) != 2 {
		t.Errorf("executed %v", exec.executed)
	}
}

func TestDecisionAlwaysCoversRemainingCallsOfSameTool(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "read_file", Arguments: `{"path":"a"}`},
		{ID: "c2", Name: "read_file", Arguments: `{"path":"b"}`},
	}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", calls...))

	exec := newFakeExecutor()
	exec.register("read_file", "data")

	o := New(prov, exec, approval.NewMemoryStore())
	res := o.RunTurn(context.Background(), userHistory("read both"), nil)
	if res.Status != StatusPaused {
		t.Fatalf("status = %v", res.Status)
	}

	res = o.Resume(context.Background(), res.Paused, approval.DecisionAlways)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status after always = %v, want completed without second pause", res.Status)
	}
	if len(exec.executed) != 2 {
		t.Errorf("executed %v, want both calls", exec.executed)
	}
}

func TestCancelBetweenToolExecutions(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "tool_a", Arguments: `{}`},
		{ID: "c2", Name: "tool_b", Arguments: `{}`},
	}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", calls...))

	exec := newFakeExecutor()
	exec.register("tool_a", "a")
	exec.register("tool_b", "b")

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	// Cancel while the first tool runs: the post-execution check must stop
	// the loop before tool_b.
	exec.onStart = func(name string) {
		if name == "tool_a" {
			o.Cancel()
		}
	}

	res := o.RunTurn(context.Background(), userHistory("go"), nil)
	if res.Status != StatusCancelled {
		t.Fatalf("status = %v, want cancelled", res.Status)
	}
	if len(exec.executed) != 1 {
		t.Errorf("executed %v, want no executions after cancellation", exec.executed)
	}
	if res.Err != nil {
		t.Errorf("cancellation carries err %v, want none (suppressed display)", res.Err)
	}
}

func TestCancelBeforeTurnStarts(t *testing.T) {
	prov := testutil.NewScriptedProvider(testutil.TextScript("unused"))
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())
	o.Cancel()

	res := o.RunTurn(context.Background(), userHistory("hi"), nil)
	if res.Status != StatusCancelled {
		t.Fatalf("status = %v, want cancelled", res.Status)
	}
	if len(prov.Requests) != 0 {
		t.Errorf("provider called despite cancellation")
	}
}

func TestEmptyCompletionRetriesUpToCap(t *testing.T) {
	prov := testutil.NewScriptedProvider(
		testutil.EmptyScript(),
		testutil.EmptyScript(),
		testutil.EmptyScript(),
		testutil.TextScript("never reached"),
	)
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())

	res := o.RunTurn(context.Background(), userHistory("hi"), nil)
	if res.Status != StatusError {
		t.Fatalf("status = %v, want error", res.Status)
	}
	if !errors.Is(res.Err, ErrEmptyCompletion) {
		t.Errorf("err = %v, want ErrEmptyCompletion", res.Err)
	}
	if len(prov.Requests) != EmptyRetryLimit {
		t.Errorf("provider called %d times, want %d", len(prov.Requests), EmptyRetryLimit)
	}
}

func TestEmptyCompletionRecoversBeforeCap(t *testing.T) {
	prov := testutil.NewScriptedProvider(
		testutil.EmptyScript(),
		testutil.EmptyScript(),
		testutil.TextScript("finally"),
	)
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())

	res := o.RunTurn(context.Background(), userHistory("hi"), nil)
	if res.Status != StatusCompletedNoTools {
		t.Fatalf("status = %v, want completed_no_tools", res.Status)
	}
	if res.Assistant.Content != "finally" {
		t.Errorf("content = %q", res.Assistant.Content)
	}
}

func TestEmptyRetryCounterResetsOnProductiveTurn(t *testing.T) {
	prov := testutil.NewScriptedProvider(
		testutil.EmptyScript(),
		testutil.EmptyScript(),
		testutil.TextScript("ok"),
		// Next user turn: two more empties must be tolerated again.
		testutil.EmptyScript(),
		testutil.EmptyScript(),
		testutil.TextScript("ok again"),
	)
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())

	if res := o.RunTurn(context.Background(), userHistory("one"), nil); res.Status != StatusCompletedNoTools {
		t.Fatalf("first turn status = %v", res.Status)
	}
	res := o.RunTurn(context.Background(), userHistory("two"), nil)
	if res.Status != StatusCompletedNoTools {
		t.Fatalf("second turn status = %v, want reset retry budget", res.Status)
	}
	if res.Assistant.Content != "ok again" {
		t.Errorf("content = %q", res.Assistant.Content)
	}
}

func TestStreamErrorTerminatesTurn(t *testing.T) {
	streamErr := errors.New("connection reset")
	prov := testutil.NewScriptedProvider(testutil.ErrorScript(streamErr))
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())

	res := o.RunTurn(context.Background(), userHistory("hi"), nil)
	if res.Status != StatusError {
		t.Fatalf("status = %v, want error", res.Status)
	}
	if !errors.Is(res.Err, streamErr) {
		t.Errorf("err = %v", res.Err)
	}
}

func TestToolExecutionErrorContinuesLoop(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "flaky", Arguments: `{}`},
		{ID: "c2", Name: "steady", Arguments: `{}`},
	}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", calls...))

	exec := newFakeExecutor()
	exec.registerErr("flaky", errors.New("boom"))
	exec.register("steady", "fine")

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), userHistory("go"), nil)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v, want completed_with_tools", res.Status)
	}

	_, errText := decodeToolResult(t, res.Results[0])
	if !strings.Contains(errText, "boom") {
		t.Errorf("error payload = %q", errText)
	}
	if got, _ := decodeToolResult(t, res.Results[1]); got != "fine" {
		t.Errorf("second result = %q", got)
	}
}

func TestUnresolvableToolYieldsErrorResult(t *testing.T) {
	call := model.ToolCall{ID: "c1", Name: "nonexistent", Arguments: `{}`}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("", call))

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	o := New(prov, newFakeExecutor(), store)
	res := o.RunTurn(context.Background(), userHistory("go"), nil)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v", res.Status)
	}
	_, errText := decodeToolResult(t, res.Results[0])
	if !strings.Contains(errText, "not available") {
		t.Errorf("payload = %q", errText)
	}
}

func TestServerResolvedCallsAreSkipped(t *testing.T) {
	calls := []model.ToolCall{
		{ID: "c1", Name: "remote_search", Arguments: `{}`, ServerLabel: "deepwiki"},
		{ID: "c2", Name: "read_file", Arguments: `{}`},
	}
	prov := testutil.NewScriptedProvider([]model.StreamEvent{
		{Kind: model.EventCompletion, Completion: &model.Completion{
			Message:         model.Message{Role: model.RoleAssistant, ToolCalls: calls},
			ResolvedOutputs: map[string]string{"c1": `{"hits":3}`},
		}},
	})

	exec := newFakeExecutor()
	exec.register("read_file", "contents")

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), userHistory("go"), nil)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v", res.Status)
	}

	// The remote call was never executed locally but its output is recorded.
	if len(exec.executed) != 1 || exec.executed[0] != "read_file" {
		t.Errorf("executed %v", exec.executed)
	}
	if got, _ := decodeToolResult(t, res.Results[0]); got != `{"hits":3}` {
		t.Errorf("pre-resolved result = %q", got)
	}
}

func TestNextHistoryReconstruction(t *testing.T) {
	call := model.ToolCall{ID: "c1", Name: "get_weather", Arguments: `{"city":"Paris"}`}
	prov := testutil.NewScriptedProvider(testutil.ToolCallScript("checking", call))

	exec := newFakeExecutor()
	exec.register("get_weather", "sunny")

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	history := userHistory("weather in Paris?")
	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), history, nil)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v", res.Status)
	}

	next := res.NextHistory
	if len(next) != 3 {
		t.Fatalf("next history has %d messages, want 3", len(next))
	}
	if next[0].Role != model.RoleUser {
		t.Errorf("next[0] role = %q", next[0].Role)
	}
	if next[1].Role != model.RoleAssistant || len(next[1].ToolCalls) != 1 {
		t.Errorf("next[1] must be the assistant message with original tool_calls")
	}
	if next[2].Role != model.RoleTool || next[2].ToolCallID != "c1" {
		t.Errorf("next[2] must be the tool result for c1")
	}
}

// TestGetWeatherScenario is the end-to-end scenario: user asks, model emits
// get_weather(city=Paris) under default policy, the turn pauses, the user
// approves once, the tool runs, and the next turn is issued with the full
// history including assistant and tool messages.
func TestGetWeatherScenario(t *testing.T) {
	call := model.ToolCall{ID: "call_w1", Name: "get_weather", Arguments: `{"city":"Paris"}`}
	prov := testutil.NewScriptedProvider(
		testutil.ToolCallScript("", call),
		testutil.TextScript("It is 21C and sunny in Paris."),
	)

	exec := newFakeExecutor()
	exec.register("get_weather", `{"temp_c":21,"sky":"sunny"}`)

	o := New(prov, exec, approval.NewMemoryStore())

	history := userHistory("hi")
	res := o.RunTurn(context.Background(), history, nil)
	if res.Status != StatusPaused {
		t.Fatalf("status = %v, want paused", res.Status)
	}
	if res.Paused.Head() != "get_weather" {
		t.Fatalf("approval prompt holds %q", res.Paused.Head())
	}

	res = o.Resume(context.Background(), res.Paused, approval.DecisionOnce)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v", res.Status)
	}

	final := o.RunTurn(context.Background(), res.NextHistory, nil)
	if final.Status != StatusCompletedNoTools {
		t.Fatalf("final status = %v", final.Status)
	}
	if final.Assistant.Content != "It is 21C and sunny in Paris." {
		t.Errorf("final content = %q", final.Assistant.Content)
	}

	// The second request carried user + assistant + tool messages.
	second := prov.Requests[1].Messages
	if len(second) != 3 || second[1].Role != model.RoleAssistant || second[2].Role != model.RoleTool {
		t.Errorf("second request history malformed: %d messages", len(second))
	}
}

func TestRemoteApprovalPausesAndResumes(t *testing.T) {
	req := model.ApprovalRequest{
		ID: "ar_1", ToolName: "deepwiki_search", Arguments: `{"q":"golang"}`, ServerLabel: "deepwiki",
	}
	prov := testutil.NewScriptedProvider([]model.StreamEvent{
		{Kind: model.EventCompletion, Completion: &model.Completion{
			Message:          model.Message{Role: model.RoleAssistant},
			ApprovalRequests: []model.ApprovalRequest{req},
		}},
	})

	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())
	res := o.RunTurn(context.Background(), userHistory("search"), nil)
	if res.Status != StatusPaused {
		t.Fatalf("status = %v, want paused", res.Status)
	}
	if !res.Paused.Remote() || res.Paused.Head() != "deepwiki_search" {
		t.Fatalf("paused state is not the remote flavor: %+v", res.Paused)
	}

	resumed := o.Resume(context.Background(), res.Paused, approval.DecisionOnce)
	if resumed.Status != StatusCompletedWithTools {
		t.Fatalf("resumed status = %v", resumed.Status)
	}

	// Resumption payload: echo of the original request, then the response,
	// in that order.
	if len(resumed.Results) != 2 {
		t.Fatalf("results = %d messages, want echo + response", len(resumed.Results))
	}
	echo, resp := resumed.Results[0], resumed.Results[1]
	if echo.Role != model.RoleApprovalRequest || echo.Approval.RequestID != "ar_1" {
		t.Errorf("echo malformed: %+v", echo)
	}
	if echo.Approval.ToolName != "deepwiki_search" || echo.Approval.ServerLabel != "deepwiki" {
		t.Errorf("echo must re-include the original request fields: %+v", echo.Approval)
	}
	if resp.Role != model.RoleApprovalResponse || resp.Approval.RequestID != "ar_1" {
		t.Errorf("response malformed: %+v", resp)
	}
	if resp.Approval.Approved == nil || !*resp.Approval.Approved {
		t.Errorf("response must carry the approve decision")
	}

	next := resumed.NextHistory
	if len(next) != 4 {
		t.Fatalf("next history = %d messages, want user+assistant+echo+response", len(next))
	}
}

func TestRemoteApprovalWithLocalToolCallsInSameCompletion(t *testing.T) {
	req := model.ApprovalRequest{ID: "ar_1", ToolName: "deepwiki_search", ServerLabel: "deepwiki"}
	prov := testutil.NewScriptedProvider([]model.StreamEvent{
		{Kind: model.EventCompletion, Completion: &model.Completion{
			Message: model.Message{
				Role: model.RoleAssistant,
				ToolCalls: []model.ToolCall{
					{ID: "c1", Name: "get_time", Arguments: `{}`},
					{ID: "c2", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
				},
			},
			ApprovalRequests: []model.ApprovalRequest{req},
			ResolvedOutputs:  map[string]string{"c1": "12:00"},
		}},
	})

	exec := newFakeExecutor()
	exec.register("get_weather", "rain")
	store := approval.NewMemoryStore()
	if err := store.Apply("get_weather", approval.DecisionAlways); err != nil {
		t.Fatal(err)
	}

	o := New(prov, exec, store)
	res := o.RunTurn(context.Background(), userHistory("time and weather"), nil)
	if res.Status != StatusPaused || !res.Paused.Remote() {
		t.Fatalf("expected remote pause, got %v", res.Status)
	}

	resumed := o.Resume(context.Background(), res.Paused, approval.DecisionOnce)
	if resumed.Status != StatusCompletedWithTools {
		t.Fatalf("resumed status = %v", resumed.Status)
	}

	// Echo + response first, then the tool results in call order.
	if len(resumed.Results) != 4 {
		t.Fatalf("results = %d messages, want echo+response+2 tool results", len(resumed.Results))
	}
	if resumed.Results[0].Role != model.RoleApprovalRequest || resumed.Results[1].Role != model.RoleApprovalResponse {
		t.Errorf("approval pair missing from results: %+v", resumed.Results[:2])
	}
	if got, _ := decodeToolResult(t, resumed.Results[2]); got != "12:00" {
		t.Errorf("server-resolved output dropped: %q", got)
	}
	if got, _ := decodeToolResult(t, resumed.Results[3]); got != "rain" {
		t.Errorf("local tool result = %q, want executed output", got)
	}
	if len(exec.executed) != 1 || exec.executed[0] != "get_weather" {
		t.Errorf("executed = %v; resolved calls must not re-execute", exec.executed)
	}
}

func TestRemoteApprovalDeny(t *testing.T) {
	req := model.ApprovalRequest{ID: "ar_1", ToolName: "deploy", ServerLabel: "ops"}
	prov := testutil.NewScriptedProvider([]model.StreamEvent{
		{Kind: model.EventCompletion, Completion: &model.Completion{
			Message:          model.Message{Role: model.RoleAssistant},
			ApprovalRequests: []model.ApprovalRequest{req},
		}},
	})

	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())
	res := o.RunTurn(context.Background(), userHistory("deploy it"), nil)
	resumed := o.Resume(context.Background(), res.Paused, approval.DecisionDeny)

	if resumed.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v; a denial still resumes the turn", resumed.Status)
	}
	resp := resumed.Results[1]
	if resp.Approval.Approved == nil || *resp.Approval.Approved {
		t.Errorf("response must carry the deny decision")
	}
}

func TestRemoteApprovalYoloAutoApproves(t *testing.T) {
	reqs := []model.ApprovalRequest{
		{ID: "ar_1", ToolName: "a", ServerLabel: "srv"},
		{ID: "ar_2", ToolName: "b", ServerLabel: "srv"},
	}
	prov := testutil.NewScriptedProvider([]model.StreamEvent{
		{Kind: model.EventCompletion, Completion: &model.Completion{
			Message:          model.Message{Role: model.RoleAssistant},
			ApprovalRequests: reqs,
		}},
	})

	store := approval.NewMemoryStore()
	if err := store.SetYolo(true); err != nil {
		t.Fatal(err)
	}

	o := New(prov, newFakeExecutor(), store)
	res := o.RunTurn(context.Background(), userHistory("go"), nil)
	if res.Status != StatusCompletedWithTools {
		t.Fatalf("status = %v, want auto-approved completion", res.Status)
	}
	if len(res.Results) != 4 {
		t.Fatalf("results = %d messages, want two echo/response pairs", len(res.Results))
	}
	// Pairs stay in original request order.
	if res.Results[0].Approval.RequestID != "ar_1" || res.Results[2].Approval.RequestID != "ar_2" {
		t.Errorf("approval pairs out of order")
	}
}

// collectSink records deltas for streaming assertions.
type collectSink struct {
	content   strings.Builder
	reasoning strings.Builder
	started   []string
}

func (c *collectSink) Content(d string)   { c.content.WriteString(d) }
func (c *collectSink) Reasoning(d string) { c.reasoning.WriteString(d) }
func (c *collectSink) ToolStarted(call model.ToolCall) {
	c.started = append(c.started, call.Name)
}
func (c *collectSink) ToolFinished(model.ToolCall, model.Message) {}

func TestSinkReceivesDeltas(t *testing.T) {
	prov := testutil.NewScriptedProvider(testutil.TextScript("streamed"))
	o := New(prov, newFakeExecutor(), approval.NewMemoryStore())

	sink := &collectSink{}
	o.SetSink(sink)

	res := o.RunTurn(context.Background(), userHistory("hi"), nil)
	if res.Status != StatusCompletedNoTools {
		t.Fatalf("status = %v", res.Status)
	}
	if sink.content.String() != "streamed" {
		t.Errorf("sink collected %q", sink.content.String())
	}
}
