package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// tcBin is the path to the compiled binary, set by TestMain.
var tcBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "trustcheck-integration-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}

	tcBin = filepath.Join(tmp, "trustcheck")
	cmd := exec.Command("go", "build", "-o", tcBin, "./cmd/trustcheck/")
	cmd.Dir = findModuleRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.RemoveAll(tmp)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

// =============================================================================
// Helpers
// =============================================================================

// findModuleRoot walks up from cwd to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("go.mod not found")
		}
		dir = parent
	}
}

func tcEnv(dataDir string) []string {
	return append(os.Environ(),
		"NO_COLOR=1",
		"TRUSTCHECK_CONFIG=",
		"TRUSTCHECK_DATA_DIR="+dataDir,
		"TRUSTCHECK_DELAY=0s",
		"TRUSTCHECK_HTTP_PORT=0",
	)
}

// runTC executes the binary against dataDir, returns stdout, stderr, exit code.
func runTC(t *testing.T, dataDir string, stdin io.Reader, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	cmd := exec.Command(tcBin, args...)
	cmd.Env = tcEnv(dataDir)
	cmd.Stdin = stdin

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("exec error (not ExitError): %v", err)
		}
	}
	return
}

// startDaemon runs `trustcheck daemon start` in the background and waits
// until health reports it running. Returns a cleanup func that stops it.
func startDaemon(t *testing.T, dataDir string) func() {
	t.Helper()

	cmd := exec.Command(tcBin, "daemon", "start")
	cmd.Env = tcEnv(dataDir)
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		stdout, _, _ := runTC(t, dataDir, nil, "health")
		if strings.Contains(stdout, "Status:") {
			break
		}
		if time.Now().After(deadline) {
			cmd.Process.Kill()
			t.Fatalf("daemon did not come up:\n%s", out.String())
		}
		time.Sleep(50 * time.Millisecond)
	}

	var once bool
	return func() {
		if once {
			return
		}
		once = true
		runTC(t, dataDir, nil, "daemon", "stop")
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			// Safety net: force-kill via PID file if still alive.
			pidFile := filepath.Join(dataDir, "run", "daemon.pid")
			if data, err := os.ReadFile(pidFile); err == nil {
				if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
					syscall.Kill(pid, syscall.SIGKILL)
				}
			}
			cmd.Process.Kill()
			<-done
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// =============================================================================
// Without a daemon
// =============================================================================

func TestNoDaemon_ReadCommands(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"check", "0868748858"}, "UYTIN_001"},
		{[]string{"check", "0000000000"}, "Không tìm thấy"},
		{[]string{"search", "MB", "Bank"}, "2 records"},
		{[]string{"show", "RISK_001"}, "RISK_001"},
		{[]string{"list", "--level", "safe"}, "2 records"},
		{[]string{"stats"}, "Records:   4"},
		{[]string{"analyze", "Lừa", "đảo,", "không", "trả", "tiền"}, "20 điểm"},
		{[]string{"health"}, "not running"},
		{[]string{"config"}, "not running"},
		{[]string{"backup", "list"}, "0 backups"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			stdout, stderr, exit := runTC(t, dir, nil, tt.args...)
			if exit != 0 {
				t.Fatalf("exit %d\nstderr: %s", exit, stderr)
			}
			if !strings.Contains(stdout, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, stdout)
			}
		})
	}
}

func TestNoDaemon_WriteCommandsNeedDaemon(t *testing.T) {
	dir := t.TempDir()

	for _, args := range [][]string{
		{"add", "--phone", "0911222333"},
		{"backup", "save", "x"},
		{"backup", "restore", "x"},
	} {
		_, stderr, exit := runTC(t, dir, nil, args...)
		if exit == 0 {
			t.Errorf("%v: expected failure", args)
		}
		if !strings.Contains(stderr, "daemon is not running") {
			t.Errorf("%v: stderr should point at the daemon:\n%s", args, stderr)
		}
	}
}

func TestNoDaemon_ImportValidatesFirst(t *testing.T) {
	dir := t.TempDir()

	_, stderr, exit := runTC(t, dir, strings.NewReader(`{"records": 5}`), "import", "-")
	if exit == 0 {
		t.Fatal("malformed import should fail")
	}
	if strings.Contains(stderr, "daemon is not running") {
		t.Errorf("malformed payload should be reported before the daemon check:\n%s", stderr)
	}
}

func TestCheck_JSON(t *testing.T) {
	dir := t.TempDir()
	stdout, _, exit := runTC(t, dir, nil, "--json", "check", "0000000000")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}

	var res struct {
		Found bool `json:"found"`
		Card  struct {
			Kind    string `json:"kind"`
			Samples []struct {
				Query string `json:"query"`
			} `json:"samples"`
		} `json:"card"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if res.Found || res.Card.Kind != "not_found" || len(res.Card.Samples) == 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCheck_BlankQuery(t *testing.T) {
	_, stderr, exit := runTC(t, t.TempDir(), nil, "check", "   ")
	if exit == 0 {
		t.Fatal("blank query should fail")
	}
	if !strings.Contains(stderr, "empty query") {
		t.Errorf("stderr: %s", stderr)
	}
}

func TestCheck_ClassicSkinFlag(t *testing.T) {
	stdout, _, exit := runTC(t, t.TempDir(), nil, "--skin", "classic", "check", "0868748858")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	if strings.Contains(stdout, "UYTIN_001") {
		t.Errorf("classic card should not show the record ID:\n%s", stdout)
	}
}

// =============================================================================
// With a daemon
// =============================================================================

func TestDaemon_StartStop(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)

	stdout, _, _ := runTC(t, dir, nil, "health")
	if !strings.Contains(stdout, "Records:  4") {
		t.Errorf("health:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "run", "daemon.pid")); err != nil {
		t.Errorf("pid file missing: %v", err)
	}

	stop()

	stdout, _, _ = runTC(t, dir, nil, "health")
	if !strings.Contains(stdout, "not running") {
		t.Errorf("daemon still running after stop:\n%s", stdout)
	}
	for _, f := range []string{"daemon.pid", "http.port"} {
		if _, err := os.Stat(filepath.Join(dir, "run", f)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed on stop", f)
		}
	}
}

func TestDaemon_DoubleStart(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)
	defer stop()

	stdout, _, exit := runTC(t, dir, nil, "daemon", "start")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	if !strings.Contains(stdout, "already running") {
		t.Errorf("stdout: %s", stdout)
	}
}

func TestDaemon_StopNotRunning(t *testing.T) {
	stdout, _, exit := runTC(t, t.TempDir(), nil, "daemon", "stop")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	if !strings.Contains(stdout, "not running") {
		t.Errorf("stdout: %s", stdout)
	}
}

func TestDaemon_AddThenCheck(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)
	defer stop()

	stdout, stderr, exit := runTC(t, dir, nil, "add", "--phone", "0911222333", "--name", "Chị Hoa", "--score", "90")
	if exit != 0 {
		t.Fatalf("add exit %d: %s", exit, stderr)
	}
	if !strings.HasPrefix(stdout, "added ") {
		t.Fatalf("stdout: %s", stdout)
	}

	stdout, _, _ = runTC(t, dir, nil, "check", "0911222333")
	if !strings.Contains(stdout, "Chị Hoa") || !strings.Contains(stdout, "90 điểm") {
		t.Errorf("check after add:\n%s", stdout)
	}

	_, stderr, exit = runTC(t, dir, nil, "add", "--id", "UYTIN_001", "--name", "dup")
	if exit == 0 || !strings.Contains(stderr, "duplicate") {
		t.Errorf("duplicate id should fail: exit %d, %s", exit, stderr)
	}
}

func TestDaemon_ExportImport(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)
	defer stop()

	out := filepath.Join(dir, "export.json")
	if _, stderr, exit := runTC(t, dir, nil, "export", "-o", out); exit != 0 {
		t.Fatalf("export exit %d: %s", exit, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"exportedAt"`) {
		t.Errorf("export missing exportedAt:\n%s", data)
	}

	one := `{"stats":{"totalRecords":99},"records":[{"id":"ONLY","name":"Một","score":85,"level":"safe"}]}`
	stdout, stderr, exit := runTC(t, dir, strings.NewReader(one), "import")
	if exit != 0 {
		t.Fatalf("import exit %d: %s", exit, stderr)
	}
	if !strings.Contains(stdout, "imported 1 records") {
		t.Errorf("stdout: %s", stdout)
	}
	stdout, _, _ = runTC(t, dir, nil, "stats")
	if !strings.Contains(stdout, "Records:   1") {
		t.Errorf("stats should be recomputed:\n%s", stdout)
	}

	if _, _, exit := runTC(t, dir, strings.NewReader("not json"), "import", "-"); exit == 0 {
		t.Error("malformed import should fail")
	}

	// Re-importing the original export restores the seed.
	if _, stderr, exit := runTC(t, dir, nil, "import", out); exit != 0 {
		t.Fatalf("re-import exit %d: %s", exit, stderr)
	}
	stdout, _, _ = runTC(t, dir, nil, "stats")
	if !strings.Contains(stdout, "Records:   4") {
		t.Errorf("stats after re-import:\n%s", stdout)
	}
}

func TestDaemon_BackupRestore(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)
	defer stop()

	if _, stderr, exit := runTC(t, dir, nil, "backup", "save", "seed"); exit != 0 {
		t.Fatalf("save exit %d: %s", exit, stderr)
	}
	runTC(t, dir, strings.NewReader(`{"records":[]}`), "import")

	stdout, stderr, exit := runTC(t, dir, nil, "backup", "restore", "seed")
	if exit != 0 {
		t.Fatalf("restore exit %d: %s", exit, stderr)
	}
	if !strings.Contains(stdout, "4 records") {
		t.Errorf("stdout: %s", stdout)
	}

	stdout, _, _ = runTC(t, dir, nil, "backup", "list")
	if !strings.Contains(stdout, "seed") {
		t.Errorf("backup list:\n%s", stdout)
	}
	if _, stderr, exit := runTC(t, dir, nil, "backup", "delete", "seed"); exit != 0 {
		t.Fatalf("delete exit %d: %s", exit, stderr)
	}
	if _, _, exit := runTC(t, dir, nil, "backup", "restore", "seed"); exit == 0 {
		t.Error("restoring a deleted backup should fail")
	}
}

func TestDaemon_HTTPLookup(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)
	defer stop()

	portData, err := os.ReadFile(filepath.Join(dir, "run", "http.port"))
	if err != nil {
		t.Fatalf("port file: %v", err)
	}
	base := "http://127.0.0.1:" + strings.TrimSpace(string(portData))

	resp, err := http.Get(base + "/api/check?q=2000")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var res struct {
		Found  bool `json:"found"`
		Record struct {
			Level string `json:"level"`
		} `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Record.Level != "danger" {
		t.Errorf("unexpected check result: %+v", res)
	}

	page, err := http.Get(base + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(page.Body)
	page.Body.Close()
	if !strings.Contains(string(body), "<html") {
		t.Errorf("lookup page not served")
	}

	stdout, _, _ := runTC(t, dir, nil, "config")
	if !strings.Contains(stdout, "Lookup:     http://localhost:") {
		t.Errorf("config should show the lookup URL:\n%s", stdout)
	}
}

func TestDaemon_LexiconHotReload(t *testing.T) {
	dir := t.TempDir()
	lex := filepath.Join(dir, "signals.yaml")
	writeFile(t, lex, "- id: custom\n  label: Custom\n  weight: -30\n  keywords: [uy tín]\n")
	t.Setenv("TRUSTCHECK_LEXICON", lex)

	stop := startDaemon(t, dir)
	defer stop()

	stdout, _, _ := runTC(t, dir, nil, "stats")
	if !strings.Contains(stdout, "in 1 groups") {
		t.Fatalf("stats:\n%s", stdout)
	}

	writeFile(t, lex, "- id: custom\n  label: Custom\n  weight: -30\n  keywords: [uy tín]\n"+
		"- id: extra\n  label: Extra\n  weight: 5\n  keywords: [đúng hẹn]\n")

	deadline := time.Now().Add(3 * time.Second)
	for {
		stdout, _, _ = runTC(t, dir, nil, "stats")
		if strings.Contains(stdout, "in 2 groups") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("lexicon was not reloaded:\n%s", stdout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
