package importer

import (
	"strings"
	"testing"
)

func TestCSVParser_Parse(t *testing.T) {
	tests := []struct {
		name         string
		csvData      string
		opts         ParseOptions
		wantEntries  int
		wantWarnings int
		wantSkipped  int
		wantError    bool
		checkFirst   func(t *testing.T, e *ImportedEntry)
	}{
		{
			name: "LastPass export",
			csvData: `url,username,password,totp,extra,name,grouping,fav
https://mail.google.com,user@gmail.com,s3cr3t123,,,Gmail,Email,0
https://github.com,octocat,hunter2,,,GitHub,Work,1`,
			wantEntries: 2,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "gmail" {
					t.Errorf("Account = %q, want %q", e.Account, "gmail")
				}
				if e.OriginalName != "Gmail" {
					t.Errorf("OriginalName = %q, want %q", e.OriginalName, "Gmail")
				}
				if e.Password != "s3cr3t123" {
					t.Errorf("Password = %q, want %q", e.Password, "s3cr3t123")
				}
			},
		},
		{
			name: "Chrome export",
			csvData: `name,url,username,password
GitHub,https://github.com,octocat,hunter2`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "github" {
					t.Errorf("Account = %q, want %q", e.Account, "github")
				}
				if e.Password != "hunter2" {
					t.Errorf("Password = %q, want %q", e.Password, "hunter2")
				}
			},
		},
		{
			name: "Bitwarden CSV login columns",
			csvData: `login_uri,login_username,login_password
https://news.ycombinator.com,pg,orangesite`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "news.ycombinator.com" {
					t.Errorf("Account = %q, want %q", e.Account, "news.ycombinator.com")
				}
				if e.Password != "orangesite" {
					t.Errorf("Password = %q, want %q", e.Password, "orangesite")
				}
			},
		},
		{
			name:        "UTF-8 BOM stripped",
			csvData:     "\xEF\xBB\xBFname,url,username,password\nSite,https://example.com,u,p",
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "site" {
					t.Errorf("Account = %q, want %q", e.Account, "site")
				}
			},
		},
		{
			name: "HTML entities decoded",
			csvData: `name,url,username,password
AT&amp;T,https://att.com,user,p&amp;ssw0rd`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "att" {
					t.Errorf("Account = %q, want %q", e.Account, "att")
				}
				if e.OriginalName != "AT&T" {
					t.Errorf("OriginalName = %q, want %q", e.OriginalName, "AT&T")
				}
				if e.Password != "p&ssw0rd" {
					t.Errorf("Password = %q, want %q", e.Password, "p&ssw0rd")
				}
			},
		},
		{
			name: "quoted field with comma",
			csvData: `name,url,username,password
Comma,"https://example.com","bob","pa,ss"`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Password != "pa,ss" {
					t.Errorf("Password = %q, want %q", e.Password, "pa,ss")
				}
			},
		},
		{
			name: "secure note skipped",
			csvData: `url,username,password,totp,extra,name,grouping,fav
http://sn,,,,This is a note,WiFi Code,Notes,0
https://github.com,octocat,hunter2,,,GitHub,Work,1`,
			wantEntries: 1,
			wantSkipped: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "github" {
					t.Errorf("Account = %q, want %q", e.Account, "github")
				}
			},
		},
		{
			name: "malformed row produces warning",
			csvData: `name,url,username,password
Good,https://example.com,u,p
short,row`,
			wantEntries:  1,
			wantWarnings: 1,
		},
		{
			name: "account falls back to hostname",
			csvData: `name,url,username,password
,https://example.com/login,bob,secret`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "example.com" {
					t.Errorf("Account = %q, want %q", e.Account, "example.com")
				}
			},
		},
		{
			name: "secure note URL not used as account",
			csvData: `name,url,username,password
,http://sn,bob,secret`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "bob" {
					t.Errorf("Account = %q, want %q", e.Account, "bob")
				}
			},
		},
		{
			name: "counter fallback when nothing available",
			csvData: `name,username,password
,,secret`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "imported_item_1" {
					t.Errorf("Account = %q, want %q", e.Account, "imported_item_1")
				}
			},
		},
		{
			name: "preserve case",
			csvData: `name,url,username,password
GitHub,https://github.com,octocat,hunter2`,
			opts:        ParseOptions{PreserveCase: true},
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *ImportedEntry) {
				if e.Account != "GitHub" {
					t.Errorf("Account = %q, want %q", e.Account, "GitHub")
				}
			},
		},
		{
			name: "missing password column",
			csvData: `name,url,username
Gmail,https://mail.google.com,user`,
			wantError: true,
		},
		{
			name:      "empty input",
			csvData:   "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{}
			result, err := parser.Parse([]byte(tt.csvData), tt.opts)

			if tt.wantError {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if len(result.Entries) != tt.wantEntries {
				t.Errorf("Parse() entries = %d, want %d", len(result.Entries), tt.wantEntries)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("Parse() warnings = %d, want %d: %v", len(result.Warnings), tt.wantWarnings, result.Warnings)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("Parse() skipped = %d, want %d", len(result.Skipped), tt.wantSkipped)
			}
			if tt.checkFirst != nil && len(result.Entries) > 0 {
				tt.checkFirst(t, result.Entries[0])
			}
		})
	}
}

func TestCSVParser_DuplicateAccounts(t *testing.T) {
	csvData := `name,url,username,password
Gmail,https://mail.google.com,personal,pass1
Gmail,https://mail.google.com,work,pass2`

	parser := &CSVParser{}
	result, err := parser.Parse([]byte(csvData), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("Parse() entries = %d, want 2", len(result.Entries))
	}
	if result.Entries[0].Account != "gmail" {
		t.Errorf("Entries[0].Account = %q, want %q", result.Entries[0].Account, "gmail")
	}
	if result.Entries[1].Account != "gmail_1" {
		t.Errorf("Entries[1].Account = %q, want %q", result.Entries[1].Account, "gmail_1")
	}
}

func TestCSVParser_SkippedDetails(t *testing.T) {
	csvData := `name,url,username,password
WiFi Code,http://sn,,`

	parser := &CSVParser{}
	result, err := parser.Parse([]byte(csvData), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("Parse() skipped = %d, want 1", len(result.Skipped))
	}
	if result.Skipped[0].OriginalName != "WiFi Code" {
		t.Errorf("Skipped[0].OriginalName = %q, want %q", result.Skipped[0].OriginalName, "WiFi Code")
	}
	if !strings.Contains(result.Skipped[0].Reason, "no password") {
		t.Errorf("Skipped[0].Reason = %q, want it to mention missing password", result.Skipped[0].Reason)
	}
}

func TestCSVParser_Source(t *testing.T) {
	parser := &CSVParser{}
	if parser.Source() != SourceCSV {
		t.Errorf("Source() = %q, want %q", parser.Source(), SourceCSV)
	}
}
