package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.ProjectsListed(3)
	r.ObserveTransfer("transferred", "done", 2*time.Second)
	r.ObserveTransfer("failed", "push", time.Second)
	r.ObserveTransfer("failed", "push", time.Second)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.projectsListed))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transfers.WithLabelValues("transferred", "done")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.transfers.WithLabelValues("failed", "push")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.transferDuration))
}

func TestRecorder_Textfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveTransfer("skipped", "done", time.Millisecond)
	r.RunFinished(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "glclone.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `glclone_transfers_total{outcome="skipped",stage="done"} 1`), text)
	assert.True(t, strings.Contains(text, "glclone_last_run_timestamp_seconds 1.7e+09"), text)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.ProjectsListed(1)
	r.ObserveTransfer("failed", "fetch", time.Second)
	r.RunFinished(time.Now())
	assert.NoError(t, r.WriteTextfile("/nonexistent/path"))
}
