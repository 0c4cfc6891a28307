package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	RecordHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordDownload(t *testing.T) {
	okBefore := testutil.ToFloat64(AssetDownloadsFinished.WithLabelValues("image", "ok"))
	errBefore := testutil.ToFloat64(AssetDownloadsFinished.WithLabelValues("image", "error"))

	RecordDownload("image", time.Second, nil)
	RecordDownload("image", time.Second, errors.New("gone"))

	if got := testutil.ToFloat64(AssetDownloadsFinished.WithLabelValues("image", "ok")) - okBefore; got != 1 {
		t.Errorf("ok downloads increased by %v, want 1", got)
	}
	if got := testutil.ToFloat64(AssetDownloadsFinished.WithLabelValues("image", "error")) - errBefore; got != 1 {
		t.Errorf("failed downloads increased by %v, want 1", got)
	}
}

func TestRecordSettingsReload(t *testing.T) {
	before := testutil.ToFloat64(SettingsReloads.WithLabelValues("error"))
	RecordSettingsReload(errors.New("parse"))
	if got := testutil.ToFloat64(SettingsReloads.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("expected one failed reload, got %v", got)
	}
}
