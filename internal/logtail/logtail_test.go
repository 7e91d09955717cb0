package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf(`{"level":"info","message":"line %d"}`, i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestRead_EmptyFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "empty.log")
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(logPath, 3)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Read() = %v, want no lines", got)
	}
}

func TestTailer_ReadsOnlyAppendedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(logPath, []byte("one\ntwo\npar"), 0644); err != nil {
		t.Fatal(err)
	}
	tail := NewTailer(logPath, 3)

	got, err := tail.Lines()
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if want := []string{"one", "two", "par"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("tial\nfour\r\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err = tail.Lines()
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if want := []string{"two", "partial", "four"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}

func TestTailer_StartsOverAfterRotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, []byte("old 1\nold 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tail := NewTailer(logPath, 0)
	if _, err := tail.Lines(); err != nil {
		t.Fatal(err)
	}

	if err := os.Rename(logPath, filepath.Join(dir, "app-backup.log")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(logPath, []byte("new 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := tail.Lines()
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if want := []string{"new 1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}

func TestTailer_TruncatedFileIsReread(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(logPath, []byte("a long first line\nsecond\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tail := NewTailer(logPath, 10)
	if _, err := tail.Lines(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(logPath, []byte("fresh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := tail.Lines()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"fresh"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}
