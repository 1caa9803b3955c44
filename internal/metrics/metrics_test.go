package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSyncRun(t *testing.T) {
	beforeOK := testutil.ToFloat64(SyncRuns.WithLabelValues("full", "success"))
	beforeErr := testutil.ToFloat64(SyncRuns.WithLabelValues("full", "error"))

	RecordSyncRun("full", time.Second, nil)
	RecordSyncRun("full", time.Second, errors.New("login failed"))

	if got := testutil.ToFloat64(SyncRuns.WithLabelValues("full", "success")); got != beforeOK+1 {
		t.Fatalf("success counter = %v, want %v", got, beforeOK+1)
	}
	if got := testutil.ToFloat64(SyncRuns.WithLabelValues("full", "error")); got != beforeErr+1 {
		t.Fatalf("error counter = %v, want %v", got, beforeErr+1)
	}
	if testutil.ToFloat64(SyncLastSuccess) == 0 {
		t.Fatal("expected last success timestamp to be set")
	}
}

func TestRecordLogin(t *testing.T) {
	before := testutil.ToFloat64(SourceLogins.WithLabelValues("failure"))
	RecordLogin(false)
	if got := testutil.ToFloat64(SourceLogins.WithLabelValues("failure")); got != before+1 {
		t.Fatalf("failure counter = %v, want %v", got, before+1)
	}
}

func TestRecordTMDBRequestLabelsMissingStatus(t *testing.T) {
	before := testutil.ToFloat64(TMDBRequests.WithLabelValues("search", "error"))
	RecordTMDBRequest("search", 0, 10*time.Millisecond)
	if got := testutil.ToFloat64(TMDBRequests.WithLabelValues("search", "error")); got != before+1 {
		t.Fatalf("error counter = %v, want %v", got, before+1)
	}

	beforeOK := testutil.ToFloat64(TMDBRequests.WithLabelValues("search", "200"))
	RecordTMDBRequest("search", 200, 10*time.Millisecond)
	if got := testutil.ToFloat64(TMDBRequests.WithLabelValues("search", "200")); got != beforeOK+1 {
		t.Fatalf("200 counter = %v, want %v", got, beforeOK+1)
	}
}
