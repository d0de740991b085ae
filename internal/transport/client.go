package transport

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
)

var determinationName = regexp.MustCompile(`(?i)(response|result|determination)`)

// File is one upload request in a batch.
type File struct {
	Jurisdiction string
	Content      string
}

type UploadResult struct {
	Jurisdiction string `json:"jurisdiction"`
	Success      bool   `json:"success"`
	RemotePath   string `json:"remote_path"`
	FileName     string `json:"file_name"`
	RecordCount  int    `json:"record_count"`
	Error        string `json:"error,omitempty"`

	Err error `json:"-"`
}

func (r *UploadResult) fail(err error) {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
}

// DownloadedFile is a determination file fetched from an agency.
type DownloadedFile struct {
	Name       string `json:"name"`
	RemotePath string `json:"remote_path"`
	Size       int64  `json:"size"`
	Content    []byte `json:"-"`
}

type ConnectionTest struct {
	Success     bool     `json:"success"`
	Directories []string `json:"directories"`
	Error       string   `json:"error,omitempty"`
}

// Client is bound to a single endpoint.
type Client struct {
	endpoint Endpoint
	dialer   Dialer
	layouts  *codec.Registry
	clock    clock.Clock
	logger   logging.Logger
}

func NewClient(ep Endpoint, d Dialer, layouts *codec.Registry, c clock.Clock, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if c == nil {
		c = clock.Real()
	}
	return &Client{
		endpoint: ep,
		dialer:   d,
		layouts:  layouts,
		clock:    c,
		logger:   logger.With("module", "transport", "endpoint", ep.String()),
	}
}

func (c *Client) open(ctx context.Context) (Session, error) {
	s, err := c.dialer.Dial(ctx, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %v: %w", c.endpoint.Addr(), err, common.ErrConnection)
	}
	return s, nil
}

func (c *Client) close(ctx context.Context, s Session) {
	if err := s.Close(); err != nil {
		c.logger.Warn(ctx, "session close failed", "error", err)
	}
}

func (c *Client) prepare(f File) (UploadResult, *codec.Layout, error) {
	res := UploadResult{Jurisdiction: f.Jurisdiction}
	l, err := c.layouts.Lookup(f.Jurisdiction)
	if err != nil {
		return res, nil, err
	}
	dir, name := l.RemoteLocation(c.clock.Now())
	res.Jurisdiction = l.Jurisdiction
	res.FileName = name
	res.RemotePath = path.Join(dir, name)
	res.RecordCount = l.CountRecords(f.Content)
	return res, l, nil
}

// Upload writes content to the jurisdiction's remote path in its own session.
func (c *Client) Upload(ctx context.Context, jurisdiction, content string) (*UploadResult, error) {
	res, _, err := c.prepare(File{Jurisdiction: jurisdiction, Content: content})
	if err != nil {
		res.fail(err)
		return &res, err
	}

	s, err := c.open(ctx)
	if err != nil {
		res.fail(err)
		return &res, err
	}
	defer c.close(ctx, s)

	if err := s.Put(res.RemotePath, []byte(content)); err != nil {
		err = fmt.Errorf("put %s: %w", res.RemotePath, err)
		res.fail(err)
		return &res, err
	}

	res.Success = true
	c.logger.Info(ctx, "file uploaded", "path", res.RemotePath, "records", res.RecordCount)
	return &res, nil
}

// UploadBatch uploads all files over one session. A failed connect fails
// every file with the same error; a failed put fails only that file.
func (c *Client) UploadBatch(ctx context.Context, files []File) []UploadResult {
	results := make([]UploadResult, len(files))
	ready := make([]bool, len(files))
	for i, f := range files {
		res, _, err := c.prepare(f)
		if err != nil {
			res.fail(err)
		}
		results[i] = res
		ready[i] = err == nil
	}

	s, err := c.open(ctx)
	if err != nil {
		c.logger.Error(ctx, "batch connect failed", "files", len(files), "error", err)
		for i := range results {
			results[i].fail(err)
		}
		return results
	}
	defer c.close(ctx, s)

	for i, f := range files {
		if !ready[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i].fail(err)
			continue
		}
		if err := s.Put(results[i].RemotePath, []byte(f.Content)); err != nil {
			c.logger.Warn(ctx, "upload failed", "path", results[i].RemotePath, "error", err)
			results[i].fail(fmt.Errorf("put %s: %w", results[i].RemotePath, err))
			continue
		}
		results[i].Success = true
	}
	return results
}

// DownloadDeterminations fetches every response file the agency has left in
// the jurisdiction's response directory. Files that fail to download are
// logged and skipped.
func (c *Client) DownloadDeterminations(ctx context.Context, jurisdiction string) ([]DownloadedFile, error) {
	l, err := c.layouts.Lookup(jurisdiction)
	if err != nil {
		return nil, err
	}

	s, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer c.close(ctx, s)

	dir := l.ResponseDir()
	entries, err := s.List(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []DownloadedFile
	for _, e := range entries {
		if e.IsDir || !determinationName.MatchString(e.Name) {
			continue
		}
		p := path.Join(dir, e.Name)
		data, err := s.Get(p)
		if err != nil {
			c.logger.Warn(ctx, "download skipped", "path", p, "error", err)
			continue
		}
		out = append(out, DownloadedFile{Name: e.Name, RemotePath: p, Size: int64(len(data)), Content: data})
	}
	c.logger.Info(ctx, "determinations downloaded", "jurisdiction", l.Jurisdiction, "files", len(out))
	return out, nil
}

// TestConnection lists the root directory for diagnostics.
func (c *Client) TestConnection(ctx context.Context) ConnectionTest {
	s, err := c.open(ctx)
	if err != nil {
		return ConnectionTest{Error: err.Error()}
	}
	defer c.close(ctx, s)

	entries, err := s.List("/")
	if err != nil {
		return ConnectionTest{Error: err.Error()}
	}
	dirs := []string{}
	for _, e := range entries {
		if e.IsDir {
			dirs = append(dirs, e.Name)
		}
	}
	sort.Strings(dirs)
	return ConnectionTest{Success: true, Directories: dirs}
}
