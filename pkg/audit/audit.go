// Package audit provides audit logging with an HMAC chain for tamper
// detection. Events are appended to a single JSONL file next to the entries
// file; each record carries the HMAC of the previous one, so deleting or
// editing any line breaks the chain.
package audit

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Disk space constants
const (
	MinAuditDiskSpace = 1024 * 1024 // 1 MB minimum for audit log writes
)

// Operation types for audit logging
const (
	// Store operations
	OpVaultLoad    = "vault.load"
	OpVaultMigrate = "vault.migrate"

	// Entry operations
	OpEntryAdd    = "entry.add"
	OpEntryReveal = "entry.reveal"

	// Backup operations
	OpBackupCreate  = "backup.create"
	OpBackupRestore = "backup.restore"
)

// Source identifies where the operation originated
const (
	SourceCLI = "cli"
	SourceMCP = "mcp"
)

// Result indicates the outcome of an operation
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// hkdfInfo scopes the chain key derivation to this log format.
const hkdfInfo = "passctl-audit-v1"

// AuditEvent represents a single audit log record. Account names never
// appear in plaintext; only their HMAC is stored.
type AuditEvent struct {
	Version   int    `json:"v"`  // Schema version (1)
	ID        string `json:"id"` // Event ID, time-sortable
	Timestamp string `json:"ts"` // RFC 3339 nanosecond precision

	Operation   string `json:"op"`
	Source      string `json:"source"`                 // cli | mcp
	SessionID   string `json:"session_id"`             // Groups one process run
	AccountHMAC string `json:"account_hmac,omitempty"` // HMAC of the account name

	Result string     `json:"result"`          // success | error
	Error  *ErrorInfo `json:"error,omitempty"` // Error details

	Chain Chain `json:"chain"` // Tamper detection
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Chain provides the HMAC chain for tamper detection
type Chain struct {
	Sequence int64  `json:"seq"`  // Sequence number
	PrevHash string `json:"prev"` // Previous record's HMAC
	HMAC     string `json:"hmac"` // This record's HMAC
}

// Logger appends audit events to a JSONL file with an HMAC chain.
// A nil *Logger discards all events, so auditing stays optional for callers.
type Logger struct {
	path       string     // Audit log file path
	source     string     // cli | mcp, fixed per process
	hmacKey    []byte     // Chain key derived from the master key
	mu         sync.Mutex // Protects concurrent writes
	sequence   int64      // Current sequence number
	prevHash   string     // Previous record's HMAC
	sessionID  string     // Current session ID
	hmacKeySet bool       // Whether the chain key has been set
}

// NewLogger creates an audit logger writing to the given file path.
func NewLogger(path, source string) *Logger {
	return &Logger{
		path:      path,
		source:    source,
		prevHash:  "genesis", // Initial chain value
		sessionID: generateSessionID(),
	}
}

// SetHMACKey derives the chain key from the master key using HKDF and
// recovers the chain position from the existing log.
func (l *Logger) SetHMACKey(masterKey []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hkdfReader := hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo))
	l.hmacKey = make([]byte, 32)
	if _, err := hkdfReader.Read(l.hmacKey); err != nil {
		return fmt.Errorf("audit: failed to derive HMAC key: %w", err)
	}
	l.hmacKeySet = true

	l.recoverChainState()
	return nil
}

// recoverChainState resumes the chain from the last parseable record in the
// log file. A missing or empty log starts a fresh chain.
func (l *Logger) recoverChainState() {
	l.sequence = 0
	l.prevHash = "genesis"

	events, err := l.readLogFile()
	if err != nil || len(events) == 0 {
		return
	}

	last := events[len(events)-1]
	l.sequence = last.Chain.Sequence
	l.prevHash = last.Chain.HMAC
}

// LogSuccess records a successful operation. Safe on a nil Logger.
func (l *Logger) LogSuccess(op, account string) error {
	if l == nil {
		return nil
	}
	return l.log(op, ResultSuccess, account, nil)
}

// LogError records a failed operation. Safe on a nil Logger.
func (l *Logger) LogError(op, account, errCode, errMsg string) error {
	if l == nil {
		return nil
	}
	return l.log(op, ResultError, account, &ErrorInfo{Code: errCode, Message: errMsg})
}

// log appends one event to the chain.
func (l *Logger) log(op, result, account string, errInfo *ErrorInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hmacKeySet {
		return fmt.Errorf("audit: HMAC key not set")
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("audit: failed to create log directory: %w", err)
	}

	if err := l.checkDiskSpace(); err != nil {
		return err
	}

	event := AuditEvent{
		Version:   1,
		ID:        generateEventID(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Operation: op,
		Source:    l.source,
		SessionID: l.sessionID,
		Result:    result,
		Error:     errInfo,
	}

	if account != "" {
		mac := hmac.New(sha256.New, l.hmacKey)
		mac.Write([]byte(account))
		event.AccountHMAC = hex.EncodeToString(mac.Sum(nil))
	}

	l.sequence++
	event.Chain.Sequence = l.sequence
	event.Chain.PrevHash = l.prevHash

	mac := hmac.New(sha256.New, l.hmacKey)
	mac.Write(buildRecordData(&event))
	event.Chain.HMAC = hex.EncodeToString(mac.Sum(nil))

	l.prevHash = event.Chain.HMAC

	return l.writeEvent(&event)
}

// buildRecordData serializes the fields covered by the record HMAC. Field
// order is fixed; changing it invalidates existing chains.
func buildRecordData(event *AuditEvent) []byte {
	errorData := ""
	if event.Error != nil {
		errorData = fmt.Sprintf("%s|%s", event.Error.Code, event.Error.Message)
	}

	data := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s|%s|%s|%d|%s",
		event.Version,
		event.ID,
		event.Timestamp,
		event.Operation,
		event.Source,
		event.SessionID,
		event.AccountHMAC,
		event.Result,
		errorData,
		event.Chain.Sequence,
		event.Chain.PrevHash,
	)
	return []byte(data)
}

// writeEvent appends one record to the log file.
func (l *Logger) writeEvent(event *AuditEvent) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: failed to write event: %w", err)
	}

	return nil
}

// Verify checks the integrity of the audit log chain from the first record.
func (l *Logger) Verify() (*VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hmacKeySet {
		return nil, fmt.Errorf("audit: HMAC key not set")
	}

	result := &VerifyResult{Valid: true}

	events, err := l.readLogFile()
	if err != nil {
		return nil, fmt.Errorf("audit: failed to read log file: %w", err)
	}

	expectedPrevHash := "genesis"
	var expectedSeq int64 = 1

	for _, event := range events {
		result.RecordsTotal++

		if event.Chain.Sequence != expectedSeq {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"sequence gap at record %s: expected %d, got %d",
				event.ID, expectedSeq, event.Chain.Sequence))
		}

		if event.Chain.PrevHash != expectedPrevHash {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"chain broken at record %s: expected prev %s, got %s",
				event.ID, expectedPrevHash, event.Chain.PrevHash))
		}

		mac := hmac.New(sha256.New, l.hmacKey)
		mac.Write(buildRecordData(&event))
		expectedHMAC := hex.EncodeToString(mac.Sum(nil))

		if event.Chain.HMAC != expectedHMAC {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"HMAC mismatch at record %s: possible tampering",
				event.ID))
		}

		expectedPrevHash = event.Chain.HMAC
		expectedSeq++
	}

	result.RecordsVerified = result.RecordsTotal
	return result, nil
}

// VerifyResult contains the results of chain verification
type VerifyResult struct {
	Valid           bool     `json:"valid"`
	RecordsTotal    int      `json:"records_total"`
	RecordsVerified int      `json:"records_verified"`
	Errors          []string `json:"errors,omitempty"`
}

// ListEvents returns audit events in log order.
// limit: maximum number of most recent events to return (0 = all)
func (l *Logger) ListEvents(limit int) ([]AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readLogFile()
	if err != nil {
		return nil, fmt.Errorf("audit: failed to read log file: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Path returns the audit log file path
func (l *Logger) Path() string {
	return l.path
}

// readLogFile reads all events from the log file. A missing file yields an
// empty slice. Unparseable lines are skipped; Verify surfaces the damage
// through the broken chain instead.
func (l *Logger) readLogFile() ([]AuditEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// generateSessionID creates a unique session identifier
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("session-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// generateEventID creates a time-sortable unique identifier from a
// millisecond timestamp prefix and a random suffix.
func generateEventID() string {
	// Timestamp component (48 bits = 6 bytes)
	ts := time.Now().UnixMilli()
	tsBytes := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		tsBytes[i] = byte(ts & 0xFF)
		ts >>= 8
	}

	// Random component (80 bits = 10 bytes)
	randBytes := make([]byte, 10)
	if _, err := rand.Read(randBytes); err != nil {
		// Fallback
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}

	combined := append(tsBytes, randBytes...)
	return hex.EncodeToString(combined)
}
