package codec

import (
	"path"
	"strings"
	"time"
)

// RemoteLocation computes the upload directory and file name for a layout.
// Pattern tokens: {JUR}, {jur}, {DATE} (20060102), {TIME} (150405),
// {SUBMITTER}.
func (l *Layout) RemoteLocation(now time.Time) (dir, name string) {
	name = strings.NewReplacer(
		"{JUR}", l.Jurisdiction,
		"{jur}", strings.ToLower(l.Jurisdiction),
		"{DATE}", now.Format("20060102"),
		"{TIME}", now.Format("150405"),
		"{SUBMITTER}", l.Defaults.SubmitterID,
	).Replace(l.Remote.FilePattern)

	dir = l.Remote.Dir
	if dir == "" {
		dir = "/"
	}
	return dir, name
}

// RemotePath joins RemoteLocation into one slash path.
func (l *Layout) RemotePath(now time.Time) string {
	dir, name := l.RemoteLocation(now)
	return path.Join(dir, name)
}

// ResponseDir is where the agency drops determination files.
func (l *Layout) ResponseDir() string {
	if l.Remote.ResponseDir != "" {
		return l.Remote.ResponseDir
	}
	return path.Join(l.Remote.Dir, "outbound")
}

// CountRecords counts non-empty lines of file content, minus the header row
// for CSV layouts.
func (l *Layout) CountRecords(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	if l.Format == FormatCSV && n > 0 {
		n--
	}
	return n
}
