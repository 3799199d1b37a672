package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
)

// checkTimeout covers the simulated lookup delay plus headroom.
const checkTimeout = 30 * time.Second

// Client connects to the trustcheck daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Check resolves query to a single best record.
func (c *Client) Check(query string) (*CheckResult, error) {
	var result CheckResult
	if err := c.do(MethodCheck, QueryParams{Query: query}, &result, checkTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search returns every record matching query.
func (c *Client) Search(query string) (*RecordsResult, error) {
	var result RecordsResult
	if err := c.do(MethodSearch, QueryParams{Query: query}, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches one record by ID.
func (c *Client) Get(id string) (*ports.TrustRecord, error) {
	var rec ports.TrustRecord
	if err := c.do(MethodGet, IDParams{ID: id}, &rec, 0); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns records filtered by level, phone or bank.
func (c *Client) List(filter ListParams) (*RecordsResult, error) {
	var result RecordsResult
	if err := c.do(MethodList, filter, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Add stores rec and returns its ID.
func (c *Client) Add(rec ports.TrustRecord) (string, error) {
	var result AddResult
	if err := c.do(MethodAdd, AddParams{Record: rec}, &result, 0); err != nil {
		return "", err
	}
	return result.ID, nil
}

// Analyze scores a free-text note.
func (c *Client) Analyze(note string) (*scoring.Assessment, error) {
	var result scoring.Assessment
	if err := c.do(MethodAnalyze, AnalyzeParams{Note: note}, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats sends a stats request.
func (c *Client) Stats() (*StatsResult, error) {
	var result StatsResult
	if err := c.do(MethodStats, nil, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Export fetches a full snapshot of the daemon's store.
func (c *Client) Export() (*ports.Snapshot, error) {
	var snap ports.Snapshot
	if err := c.do(MethodExport, nil, &snap, 0); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Import replaces the daemon's records with the given export payload.
func (c *Client) Import(payload []byte) (*ImportResult, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("import payload is not valid JSON")
	}
	var result ImportResult
	if err := c.do(MethodImport, ImportParams{Payload: payload}, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Backup archives the current store under name.
func (c *Client) Backup(name string) (*ports.SnapshotInfo, error) {
	var info ports.SnapshotInfo
	if err := c.do(MethodBackup, NameParams{Name: name}, &info, 0); err != nil {
		return nil, err
	}
	return &info, nil
}

// Restore replaces the store with the named backup.
func (c *Client) Restore(name string) (*ImportResult, error) {
	var result ImportResult
	if err := c.do(MethodRestore, NameParams{Name: name}, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Backups lists archived snapshots.
func (c *Client) Backups() (*BackupsResult, error) {
	var result BackupsResult
	if err := c.do(MethodBackups, nil, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteBackup removes a named backup.
func (c *Client) DeleteBackup(name string) error {
	return c.do(MethodBackupDelete, NameParams{Name: name}, nil, 0)
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.do(MethodHealth, nil, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	return c.do(MethodShutdown, nil, nil, 0)
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// do sends one request and decodes the result into out (nil to discard).
// A zero timeout uses the default.
func (c *Client) do(method string, params, out interface{}, timeout time.Duration) error {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	resp, err := c.callWithTimeout(Request{ID: uuid.NewString(), Method: method, Params: params}, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	// Re-marshal the generic result into the typed struct.
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(resultJSON, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, &RemoteError{Message: resp.Error, Code: resp.Code}
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, nil
}
