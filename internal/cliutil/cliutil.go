// Package cliutil holds the small pieces shared by cmd/eph5 and
// cmd/rang: colorized status output and the file-reading/writing
// plumbing around them.
package cliutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// PrintInfo prints a routine, informational status line.
func PrintInfo(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

// PrintSuccess prints a successful-completion status line.
func PrintSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", successColor("[+]"), fmt.Sprintf(format, args...))
}

// PrintWarning prints a recoverable-problem status line.
func PrintWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

// PrintError prints a failure status line.
func PrintError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

// PrintAlert prints a status line for something the user should not
// miss, such as a capacity shortfall that silently truncated a payload.
func PrintAlert(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", alertColor("[!!!]"), fmt.Sprintf(format, args...))
}

// maxReadSize bounds how large an input image or payload file this
// tool will read into memory at once.
const maxReadSize = 256 * 1024 * 1024

// ReadFile reads path fully into memory, rejecting anything above
// maxReadSize so a hostile or misidentified file can't exhaust memory.
func ReadFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cliutil: open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("cliutil: stat %s: %w", path, err)
	}

	if info.Size() > maxReadSize {
		return nil, fmt.Errorf("cliutil: %s is too large (max %d bytes)", path, maxReadSize)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("cliutil: read %s: %w", path, err)
	}

	return data, nil
}

// WriteFile writes data to path, creating any missing parent
// directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cliutil: create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cliutil: write %s: %w", path, err)
	}

	return nil
}
