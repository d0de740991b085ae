package transport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string][]Entry
	failPut  map[string]bool
	failGet  map[string]bool
	failList bool
	closed   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		files:   map[string][]byte{},
		dirs:    map[string][]Entry{},
		failPut: map[string]bool{},
		failGet: map[string]bool{},
	}
}

func (s *fakeSession) Put(p string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for frag := range s.failPut {
		if strings.Contains(p, frag) {
			return errors.New("permission denied")
		}
	}
	s.files[p] = append([]byte(nil), content...)
	return nil
}

func (s *fakeSession) List(dir string) ([]Entry, error) {
	if s.failList {
		return nil, errors.New("no such directory")
	}
	return s.dirs[dir], nil
}

func (s *fakeSession) Get(p string) ([]byte, error) {
	if s.failGet[p] {
		return nil, errors.New("read reset")
	}
	d, ok := s.files[p]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

var testNow = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, d Dialer) *Client {
	t.Helper()
	reg, err := codec.DefaultRegistry()
	require.NoError(t, err)
	return NewClient(Endpoint{Host: "sftp.example.gov", Username: "wotc"}, d, reg, clock.Fake(testNow), nil)
}

func TestUpload(t *testing.T) {
	s := newFakeSession()
	c := newTestClient(t, &fakeDialer{session: s})

	res, err := c.Upload(context.Background(), "tx", "line one\nline two\n")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "TX", res.Jurisdiction)
	assert.Equal(t, "WOTC_TX_20260302_143000.txt", res.FileName)
	assert.Equal(t, "/wotc/tx/inbound/WOTC_TX_20260302_143000.txt", res.RemotePath)
	assert.Equal(t, 2, res.RecordCount)
	assert.Equal(t, "line one\nline two\n", string(s.files[res.RemotePath]))
	assert.Equal(t, 1, s.closed)
}

func TestUpload_PutFailureClosesSession(t *testing.T) {
	s := newFakeSession()
	s.failPut["/wotc/tx"] = true
	c := newTestClient(t, &fakeDialer{session: s})

	res, err := c.Upload(context.Background(), "TX", "x")
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 1, s.closed)
}

func TestUpload_UnknownJurisdictionDoesNotConnect(t *testing.T) {
	d := &fakeDialer{session: newFakeSession()}
	c := newTestClient(t, d)

	_, err := c.Upload(context.Background(), "ZZ", "x")
	assert.True(t, errors.Is(err, common.ErrConfiguration))
	assert.Equal(t, 0, d.dials)
}

func TestUploadBatch_ConnectFailureFailsEveryFile(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	c := newTestClient(t, d)

	files := []File{{Jurisdiction: "TX", Content: "a"}, {Jurisdiction: "GA", Content: "b"}, {Jurisdiction: "CA", Content: "h\nr"}}
	results := c.UploadBatch(context.Background(), files)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.True(t, errors.Is(r.Err, common.ErrConnection), r.Jurisdiction)
		assert.Contains(t, r.Error, "connection refused")
	}
	assert.Equal(t, 1, d.dials)
}

func TestUploadBatch_SinglePutFailure(t *testing.T) {
	s := newFakeSession()
	s.failPut["GA_WOTC"] = true
	d := &fakeDialer{session: s}
	c := newTestClient(t, d)

	files := []File{{Jurisdiction: "TX", Content: "a"}, {Jurisdiction: "GA", Content: "b"}, {Jurisdiction: "NY", Content: "c\nd"}}
	results := c.UploadBatch(context.Background(), files)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "permission denied")
	assert.True(t, results[2].Success)
	assert.Equal(t, 2, results[2].RecordCount)
	assert.Equal(t, "/users/NYW55012/in/NYW55012.WOTC", results[2].RemotePath)

	assert.Equal(t, 1, d.dials, "one session for the batch")
	assert.Equal(t, 1, s.closed)
	assert.Len(t, s.files, 2)
}

func TestUploadBatch_UnknownJurisdictionFailsOnlyThatFile(t *testing.T) {
	s := newFakeSession()
	c := newTestClient(t, &fakeDialer{session: s})

	results := c.UploadBatch(context.Background(), []File{{Jurisdiction: "ZZ", Content: "a"}, {Jurisdiction: "FL", Content: "b"}})
	assert.True(t, errors.Is(results[0].Err, common.ErrConfiguration))
	assert.True(t, results[1].Success)
}

func TestDownloadDeterminations(t *testing.T) {
	s := newFakeSession()
	dir := "/wotc/tx/outbound"
	s.dirs[dir] = []Entry{
		{Name: "Determination_0301.txt"},
		{Name: "RESULTS_0302.txt"},
		{Name: "response-broken.txt"},
		{Name: "readme.txt"},
		{Name: "results", IsDir: true},
	}
	s.files[dir+"/Determination_0301.txt"] = []byte("certified")
	s.files[dir+"/RESULTS_0302.txt"] = []byte("denied")
	s.failGet[dir+"/response-broken.txt"] = true

	c := newTestClient(t, &fakeDialer{session: s})
	files, err := c.DownloadDeterminations(context.Background(), "TX")
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "Determination_0301.txt", files[0].Name)
	assert.Equal(t, []byte("certified"), files[0].Content)
	assert.Equal(t, dir+"/RESULTS_0302.txt", files[1].RemotePath)
	assert.Equal(t, int64(6), files[1].Size)
	assert.Equal(t, 1, s.closed)
}

func TestDownloadDeterminations_ListFailure(t *testing.T) {
	s := newFakeSession()
	s.failList = true
	c := newTestClient(t, &fakeDialer{session: s})

	_, err := c.DownloadDeterminations(context.Background(), "GA")
	require.Error(t, err)
	assert.Equal(t, 1, s.closed)
}

func TestTestConnection(t *testing.T) {
	s := newFakeSession()
	s.dirs["/"] = []Entry{{Name: "outbound", IsDir: true}, {Name: "inbound", IsDir: true}, {Name: "motd"}}
	c := newTestClient(t, &fakeDialer{session: s})

	res := c.TestConnection(context.Background())
	assert.True(t, res.Success)
	assert.Equal(t, []string{"inbound", "outbound"}, res.Directories)
	assert.Equal(t, 1, s.closed)

	c = newTestClient(t, &fakeDialer{err: errors.New("auth failed")})
	res = c.TestConnection(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "auth failed")
}

func TestEndpointAddr(t *testing.T) {
	assert.Equal(t, "h:22", Endpoint{Host: "h"}.Addr())
	assert.Equal(t, "h:2222", Endpoint{Host: "h", Port: 2222}.Addr())
	assert.Equal(t, "u@h:22", Endpoint{Host: "h", Username: "u"}.String())
}
