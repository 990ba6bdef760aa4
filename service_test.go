package main

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/jonasfroeller/tube-visibility-inspector/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testResponse() resolver.Response {
	published := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	dur := 61
	return resolver.Response{Results: []model.VideoRecord{
		{
			ID:              "AAAAAAAAAAA",
			Title:           "first",
			Status:          model.StatusPublic,
			PublishedAt:     &published,
			ContentType:     model.ContentShort,
			DurationSeconds: &dur,
			FromCache:       true,
		},
		{
			ID:          "BBBBBBBBBBB",
			Title:       model.TitleNotFound,
			Status:      model.StatusDeleted,
			ContentType: model.ContentVideo,
		},
	}}
}

func TestWriteResultsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, testResponse(), "text"))

	exp := "id\ttitle\tstatus\tcontentType\tdurationSeconds\tpublishedAt\tfromCache\n" +
		"AAAAAAAAAAA\tfirst\tpublic\tshort\t61\t2024-05-06T07:08:09Z\ttrue\n" +
		"BBBBBBBBBBB\t" + model.TitleNotFound + "\tdeleted\tvideo\t\t\tfalse\n"
	assert.Equal(t, exp, buf.String())
}

func TestWriteResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, testResponse(), "json"))

	assert.JSONEq(t, `{"results":[
		{"id":"AAAAAAAAAAA","title":"first","status":"public","publishedAt":"2024-05-06T07:08:09Z",
		 "contentType":"short","durationSeconds":61,"fromCache":true},
		{"id":"BBBBBBBBBBB","title":"`+model.TitleNotFound+`","status":"deleted","contentType":"video","fromCache":false}
	]}`, buf.String())
}

func executeCheck(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"check"}, args...))
	err := cmd.Execute()

	return out.String(), err
}

func TestCheckCommandWithoutAPIKey(t *testing.T) {
	out, err := executeCheck(t, "AAAAAAAAAAA")

	assert.ErrorIs(t, err, resolver.ErrConfig)
	assert.Empty(t, out)
}

func TestCheckCommandUnknownFormat(t *testing.T) {
	_, err := executeCheck(t, "--format", "xml", "AAAAAAAAAAA")

	assert.ErrorIs(t, err, resolver.ErrInvalidRequest)
}

func TestServeReturnsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
	result := make(chan error, 1)
	go func() { result <- serve(srv, make(chan os.Signal), slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	select {
	case err := <-result:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept waiting after the listener failed")
	}
}

func TestServeStopsOnSignal(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	assert.NoError(t, serve(srv, stop, slog.New(slog.NewTextHandler(io.Discard, nil))))
}
