package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/receipt"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeOutcomes(t *testing.T, out string) []engine.Outcome {
	t.Helper()
	var outcomes []engine.Outcome
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var o engine.Outcome
		if err := dec.Decode(&o); err != nil {
			t.Fatalf("decode outcome: %v\n%s", err, out)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func TestVerifyOrdinary(t *testing.T) {
	tests := []struct {
		name     string
		category string
		wantCode int
		passed   bool
	}{
		{"truck is ordinary for specialty trade", "truck", ExitOK, true},
		{"laptop is not", "laptop", ExitFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, stderr := runCLI(t, "verify", "ordinary", "--industry", "238350", "--category", tt.category)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			outcomes := decodeOutcomes(t, out)
			if len(outcomes) != 1 {
				t.Fatalf("expected 1 outcome, got %d", len(outcomes))
			}
			if outcomes[0].Verdict.Passed != tt.passed {
				t.Errorf("passed = %v, want %v", outcomes[0].Verdict.Passed, tt.passed)
			}
			if outcomes[0].EntryID == "" {
				t.Error("expected audit entry id")
			}
			if stderr != "" {
				t.Errorf("unexpected stderr: %s", stderr)
			}
		})
	}
}

func TestVerifyOrdinary_MissingArguments(t *testing.T) {
	code, out, stderr := runCLI(t, "verify", "ordinary")
	if code != ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, ExitUsage)
	}
	if out != "" {
		t.Errorf("expected no stdout, got %s", out)
	}
	if !strings.Contains(stderr, "invalid argument") {
		t.Errorf("stderr should explain the argument error: %s", stderr)
	}
}

func TestVerifyNecessary_Gated(t *testing.T) {
	code, out, stderr := runCLI(t, "verify", "necessary", "--amount", "30000", "--revenue", "70000")
	if code != ExitBlocked {
		t.Fatalf("exit code = %d, want %d", code, ExitBlocked)
	}
	if out != "" {
		t.Errorf("blocked call printed output: %s", out)
	}
	if !strings.Contains(stderr, "disabled") {
		t.Errorf("stderr should mention the gate: %s", stderr)
	}
}

func TestVerifyNecessary_WithPrerequisite(t *testing.T) {
	tests := []struct {
		amount   string
		wantCode int
		ratio    string
	}{
		{"30000", ExitOK, "42.9%"},
		{"40000", ExitFailed, "57.1%"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			code, out, stderr := runCLI(t, "verify", "necessary",
				"--amount", tt.amount, "--revenue", "70000",
				"--industry", "238350", "--category", "truck")
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			outcomes := decodeOutcomes(t, out)
			if len(outcomes) != 2 {
				t.Fatalf("expected ordinary and necessary outcomes, got %d", len(outcomes))
			}
			if !strings.Contains(outcomes[1].Verdict.Details, tt.ratio) {
				t.Errorf("details %q should contain %s", outcomes[1].Verdict.Details, tt.ratio)
			}
		})
	}
}

func TestVerifyNegotiable(t *testing.T) {
	code, _, _ := runCLI(t, "verify", "negotiable")
	if code != ExitOK {
		t.Fatalf("default instrument should be negotiable, exit %d", code)
	}

	code, out, _ := runCLI(t, "verify", "negotiable", "--timing", "indefinite", "--promise", "conditional")
	if code != ExitFailed {
		t.Fatalf("exit code = %d, want %d", code, ExitFailed)
	}
	outcomes := decodeOutcomes(t, out)
	if outcomes[0].Verdict.Passed {
		t.Fatal("expected failing verdict")
	}

	code, _, _ = runCLI(t, "verify", "negotiable", "--timing", "someday")
	if code != ExitUsage {
		t.Fatalf("bad enum exit code = %d, want %d", code, ExitUsage)
	}
}

func TestScanClause(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clause.txt")
	if err := os.WriteFile(path, []byte("Payment is due on demand."), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, stderr := runCLI(t, "scan-clause", "--file", path)
	if code != ExitOK && code != ExitFailed {
		t.Fatalf("unexpected exit code %d (stderr: %s)", code, stderr)
	}
	if len(decodeOutcomes(t, out)) != 1 {
		t.Fatalf("expected one outcome: %s", out)
	}

	code, _, _ = runCLI(t, "scan-clause")
	if code != ExitUsage {
		t.Fatalf("missing text exit code = %d, want %d", code, ExitUsage)
	}
	code, _, _ = runCLI(t, "scan-clause", "text", "--file", path)
	if code != ExitUsage {
		t.Fatalf("text and file exit code = %d, want %d", code, ExitUsage)
	}
}

func TestDraft(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "agreement.txt")

	code, out, _ := runCLI(t, "draft", "security_agreement_ucc", "--set", "collateral=", "-o", docPath)
	if code != ExitFailed {
		t.Fatalf("empty collateral exit code = %d, want %d", code, ExitFailed)
	}
	if !strings.Contains(out, "GENERATION BLOCKED") {
		t.Errorf("expected blocked notice in output")
	}
	doc, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatalf("blocked notice not written: %v", err)
	}
	if !strings.Contains(string(doc), "GENERATION BLOCKED") {
		t.Errorf("document should carry the blocked notice")
	}

	code, _, stderr := runCLI(t, "draft", "security_agreement_ucc",
		"--set", "collateral=All inventory and equipment located at 12 Main St", "-o", docPath)
	if code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr)
	}
	doc, err = os.ReadFile(docPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc), "All inventory and equipment") {
		t.Errorf("document missing collateral:\n%s", doc)
	}

	code, _, _ = runCLI(t, "draft", "lease_agreement")
	if code != ExitUsage {
		t.Fatalf("unknown form exit code = %d, want %d", code, ExitUsage)
	}
	code, _, _ = runCLI(t, "draft", "bill_of_sale", "--set", "novalue")
	if code != ExitUsage {
		t.Fatalf("bad --set exit code = %d, want %d", code, ExitUsage)
	}
}

func TestStatute(t *testing.T) {
	code, out, _ := runCLI(t, "statute", "ucc_9_108")
	if code != ExitOK {
		t.Fatalf("exit code = %d, want %d", code, ExitOK)
	}
	if !strings.Contains(out, `"found": true`) {
		t.Errorf("expected found statute:\n%s", out)
	}

	code, _, _ = runCLI(t, "statute", "definitely not a statute")
	if code != ExitFailed {
		t.Fatalf("miss exit code = %d, want %d", code, ExitFailed)
	}
}

func TestTools(t *testing.T) {
	code, out, _ := runCLI(t, "tools", "--format", "json")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	var infos []toolInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 6 {
		t.Fatalf("expected 6 tools, got %d", len(infos))
	}
	for _, info := range infos {
		if info.Name == "verify_necessary" && !info.Gated {
			t.Error("verify_necessary should be gated under the default policy")
		}
		if info.Schema != nil {
			t.Errorf("%s: schema printed without --schemas", info.Name)
		}
	}

	code, out, _ = runCLI(t, "tools")
	if code != ExitOK || !strings.Contains(out, "NAME") {
		t.Fatalf("text listing failed: %d\n%s", code, out)
	}
}

func TestGateCheck(t *testing.T) {
	dir := t.TempDir()
	history := filepath.Join(dir, "history.jsonl")
	data := `# ordinary passed, then was retried with bad args
{"tool":"verify_ordinary","payload":{"rule_id":"rule_is_ordinary","passed":true}}
{"tool":"scan_clause","payload":{"rule_id":"rule_clause_risk","passed":false}}
`
	if err := os.WriteFile(history, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, stderr := runCLI(t, "gate", "check", "verify_necessary", "--history", history)
	if code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr)
	}
	var rep gateReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.Decision.Enabled || rep.Records != 2 {
		t.Errorf("unexpected report: %+v", rep)
	}

	code, _, _ = runCLI(t, "gate", "check", "verify_necessary")
	if code != ExitBlocked {
		t.Fatalf("empty history exit code = %d, want %d", code, ExitBlocked)
	}

	code, _, _ = runCLI(t, "gate", "check", "file_taxes")
	if code != ExitFailed {
		t.Fatalf("unknown tool exit code = %d, want %d", code, ExitFailed)
	}
}

func TestGateCheck_TruncatedLineIsMalformed(t *testing.T) {
	dir := t.TempDir()
	history := filepath.Join(dir, "history.jsonl")
	data := `{"tool":"verify_ordinary","payload":{"rule_id":"rule_is_ordinary","passed":true}}
{"tool":"verify_ordinary","payload":{"rule_id":"rule_is_ordinary","pas
`
	if err := os.WriteFile(history, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, stderr := runCLI(t, "gate", "check", "verify_necessary", "--history", history)
	if code != ExitBlocked {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", code, ExitBlocked, stderr)
	}
	var rep gateReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Decision.Enabled || rep.Records != 2 {
		t.Errorf("unexpected report: %+v", rep)
	}
	if len(rep.Decision.Malformed) != 1 || rep.Decision.Malformed[0] != "verify_ordinary" {
		t.Errorf("Malformed = %v", rep.Decision.Malformed)
	}

	// no recoverable tool name
	if err := os.WriteFile(history, []byte("{\"payl\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, _, _ = runCLI(t, "gate", "check", "verify_necessary", "--history", history)
	if code != ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, ExitUsage)
	}
}

func TestGatePresets(t *testing.T) {
	code, out, _ := runCLI(t, "gate", "presets")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	for _, name := range []string{"default", "strict"} {
		if !strings.Contains(out, name) {
			t.Errorf("missing preset %s:\n%s", name, out)
		}
	}
}

func TestSessionRun(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "session.jsonl")
	data := `{"tool":"verify_necessary","arguments":{"expense_amount":30000,"business_revenue":70000}}
{"tool":"verify_ordinary","arguments":{"industry_code":"238350","expense_category":"truck"}}
{"tool":"verify_necessary","arguments":{"expense_amount":30000,"business_revenue":70000}}
`
	if err := os.WriteFile(script, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, "session", "run", script)
	if code != ExitFailed {
		t.Fatalf("exit code = %d, want %d (first step is blocked)", code, ExitFailed)
	}

	var results []stepResult
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var r stepResult
		if err := dec.Decode(&r); err != nil {
			t.Fatal(err)
		}
		results = append(results, r)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(results))
	}
	if !results[0].Blocked || results[0].Outcome != nil {
		t.Errorf("step 1 should be blocked: %+v", results[0])
	}
	if results[1].Outcome == nil || !results[1].Outcome.Verdict.Passed {
		t.Errorf("step 2 should pass: %+v", results[1])
	}
	if results[2].Outcome == nil || !results[2].Outcome.Verdict.Passed {
		t.Errorf("step 3 should pass after ordinary: %+v", results[2])
	}

	code, out, _ = runCLI(t, "session", "run", script, "--stop-on-error")
	if code != ExitFailed {
		t.Fatalf("exit code = %d", code)
	}
	if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n != 1 {
		t.Errorf("--stop-on-error ran %d steps, want 1", n)
	}
}

func TestSessionRun_BadScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(script, []byte("{not json}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, "session", "run", script); code != ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, ExitUsage)
	}
	if code, _, _ := runCLI(t, "session", "run", filepath.Join(dir, "missing.jsonl")); code != ExitFailed {
		t.Fatalf("missing script exit code = %d, want %d", code, ExitFailed)
	}
}

func TestLedgerPersistence(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	if code, _, stderr := runCLI(t, "--ledger-db", db, "verify", "ordinary", "--industry", "238350", "--category", "truck"); code != ExitOK {
		t.Fatalf("verify exit code = %d (stderr: %s)", code, stderr)
	}
	if code, _, _ := runCLI(t, "--ledger-db", db, "verify", "ordinary", "--industry", "238350", "--category", "laptop"); code != ExitFailed {
		t.Fatalf("verify exit code = %d", code)
	}

	code, out, _ := runCLI(t, "--ledger-db", db, "ledger", "show")
	if code != ExitOK {
		t.Fatalf("show exit code = %d", code)
	}
	var entries []models.AuditEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Details, "FAIL") {
		t.Errorf("newest entry should be the failing check: %s", entries[0].Details)
	}

	if code, out, _ := runCLI(t, "--ledger-db", db, "ledger", "verify"); code != ExitOK {
		t.Fatalf("verify exit code = %d\n%s", code, out)
	}

	if code, _, _ := runCLI(t, "--ledger-db", db, "ledger", "reset"); code != ExitUsage {
		t.Fatalf("reset without --yes exit code = %d, want %d", code, ExitUsage)
	}
	if code, _, _ := runCLI(t, "--ledger-db", db, "ledger", "reset", "--yes"); code != ExitOK {
		t.Fatalf("reset exit code = %d", code)
	}

	_, out, _ = runCLI(t, "--ledger-db", db, "ledger", "show", "-n", "5")
	entries = nil
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "System Reset" || entries[0].Source != models.SourceSystem {
		t.Fatalf("unexpected entries after reset: %+v", entries)
	}
}

func TestReceipt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")

	code, _, _ := runCLI(t, "--receipt", path, "verify", "ordinary", "--industry", "238350", "--category", "laptop")
	if code != ExitFailed {
		t.Fatalf("exit code = %d", code)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("receipt not written: %v", err)
	}
	var r receipt.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if r.Command != "arbiter verify ordinary" {
		t.Errorf("command = %q", r.Command)
	}
	if r.Result.Status != "fail" || r.RunID == "" || r.OpID == "" {
		t.Errorf("unexpected receipt: %+v", r)
	}
	if len(r.Verdicts) != 1 || r.Verdicts[0].Passed || r.Verdicts[0].Digest == "" {
		t.Errorf("unexpected verdict summaries: %+v", r.Verdicts)
	}
	if r.Ledger == nil || len(r.Ledger.EntryIDs) != 1 {
		t.Errorf("expected one ledger entry id: %+v", r.Ledger)
	}
}

func TestReceipt_GateBlocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	if code, _, _ := runCLI(t, "--receipt", path, "verify", "necessary", "--amount", "1", "--revenue", "2"); code != ExitBlocked {
		t.Fatalf("exit code = %d", code)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var r receipt.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if r.Gate == nil || r.Gate.Enabled || r.Gate.Tool != "verify_necessary" {
		t.Errorf("unexpected gate summary: %+v", r.Gate)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "gate.yaml")
	policyYAML := `name: open
rules: []
`
	if err := os.WriteFile(policyPath, []byte(policyYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "arbiter.yaml")
	cfgYAML := "gate:\n  policy_path: " + policyPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	// no rules: verify_necessary is ungated
	code, _, stderr := runCLI(t, "--config", cfgPath, "verify", "necessary", "--amount", "1", "--revenue", "10")
	if code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr)
	}

	if code, _, _ := runCLI(t, "--config", filepath.Join(dir, "missing.yaml"), "tools"); code != ExitUsage {
		t.Fatalf("missing config exit code = %d, want %d", code, ExitUsage)
	}
	if code, _, _ := runCLI(t, "--log-format", "xml", "tools"); code != ExitUsage {
		t.Fatalf("bad log format exit code = %d, want %d", code, ExitUsage)
	}
	if code, _, _ := runCLI(t, "--policy", "strict", "tools"); code != ExitOK {
		t.Fatalf("strict preset exit code = %d", code)
	}
}

func TestJSONLLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "arbiter.log")
	code, _, _ := runCLI(t, "--log-format", "jsonl", "--log-output", logPath,
		"verify", "ordinary", "--industry", "238350", "--category", "truck")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, event := range []string{"arbiter.verify_ordinary.start", "arbiter.tool.invoke", "arbiter.verify_ordinary.complete"} {
		if !strings.Contains(string(data), `"event":"`+event+`"`) {
			t.Errorf("log missing %s:\n%s", event, data)
		}
	}
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{"principal=5000", "maker=Acme LLC", "secured=true", " zip = 02134", "note=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"principal": 5000.0,
		"maker":     "Acme LLC",
		"secured":   true,
		"zip":       " 02134",
		"note":      "a=b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseSets() = %#v, want %#v", got, want)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseSets([]string{bad}); err == nil {
			t.Errorf("parseSets(%q) expected error", bad)
		}
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"1", 1.0},
		{"true", true},
		{"TRUE", "TRUE"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"", ""},
		{"12.50", 12.5},
		{"0", 0.0},
		{"0.5", 0.5},
		{"-0.25", -0.25},
		{"0301", "0301"},
		{"01234", "01234"},
		{"-007", "-007"},
		{"0x1F", "0x1F"},
	}
	for _, tt := range tests {
		if got := scalar(tt.in); got != tt.want {
			t.Errorf("scalar(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestServe(t *testing.T) {
	root, rt := newRootCmd()
	defer rt.close(context.Background())

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"consult_statute","arguments":{"query":"irc_162"}}}` + "\n")
	var out bytes.Buffer
	root.SetIn(in)
	root.SetOut(&out)
	root.SetArgs([]string{"serve"})
	if err := root.Execute(); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(out.String(), `"isError":false`) {
		t.Errorf("unexpected response: %s", out.String())
	}
}

func TestEvidenceBundle(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ledger.db")
	priv := filepath.Join(dir, "arbiter.key")
	pub := filepath.Join(dir, "arbiter.pub")
	bundle := filepath.Join(dir, "evidence.zip")

	if code, out, stderr := runCLI(t, "keygen", "--private-key", priv, "--public-key", pub); code != ExitOK || !strings.Contains(out, "key id") {
		t.Fatalf("keygen exit code = %d out=%s stderr=%s", code, out, stderr)
	}
	if code, _, _ := runCLI(t, "keygen", "--private-key", priv, "--public-key", pub); code != ExitFailed {
		t.Errorf("keygen over existing keys exit code = %d", code)
	}
	if code, _, stderr := runCLI(t, "--ledger-db", db, "statute", "ucc_9_108"); code != ExitOK {
		t.Fatalf("statute exit code = %d (stderr: %s)", code, stderr)
	}

	code, out, stderr := runCLI(t, "--ledger-db", db, "ledger", "export", "-o", bundle, "--sign-key", priv)
	if code != ExitOK {
		t.Fatalf("export exit code = %d (stderr: %s)", code, stderr)
	}
	if !strings.Contains(out, `"signed": true`) || !strings.Contains(out, `"entries": 1`) {
		t.Errorf("unexpected manifest: %s", out)
	}

	code, out, stderr = runCLI(t, "ledger", "verify", "--bundle", bundle, "--public-key", pub)
	if code != ExitOK {
		t.Fatalf("verify exit code = %d out=%s stderr=%s", code, out, stderr)
	}
	if !strings.Contains(out, `"signature_valid": true`) {
		t.Errorf("expected valid signature: %s", out)
	}

	other := filepath.Join(dir, "other.pub")
	if code, _, _ := runCLI(t, "keygen", "--private-key", filepath.Join(dir, "other.key"), "--public-key", other); code != ExitOK {
		t.Fatalf("second keygen failed")
	}
	if code, _, _ := runCLI(t, "ledger", "verify", "--bundle", bundle, "--public-key", other); code != ExitFailed {
		t.Errorf("wrong key exit code = %d", code)
	}

	if code, _, _ := runCLI(t, "ledger", "export"); code != ExitUsage {
		t.Errorf("export without -o exit code = %d", code)
	}
	if code, _, _ := runCLI(t, "ledger", "verify", "--public-key", pub); code != ExitUsage {
		t.Errorf("--public-key without --bundle exit code = %d", code)
	}
}
