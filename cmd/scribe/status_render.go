package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusColor maps a job status to a terminal color.
func statusColor(status string) string {
	switch status {
	case "completed":
		return ansiGreen
	case "failed":
		return ansiRed
	case "cancelled":
		return ansiYellow
	case "chunking", "transcribing":
		return ansiBlue
	default:
		return ""
	}
}

func colorizeStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	color := statusColor(status)
	if color == "" {
		return status
	}
	return color + status + ansiReset
}

func renderProgressLine(view progressView, colorize bool) string {
	label := colorizeStatus(view.Status, colorize)
	if view.TotalChunks > 0 {
		return fmt.Sprintf("%-14s %3d%%  chunk %d/%d", label, view.Progress, view.CurrentChunk, view.TotalChunks)
	}
	return fmt.Sprintf("%-14s %3d%%", label, view.Progress)
}

type progressView struct {
	Status       string
	Progress     int
	CurrentChunk int
	TotalChunks  int
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
