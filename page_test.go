package bookcapture

import (
	"testing"
	"time"
)

func TestDefaultViewport(t *testing.T) {
	if DefaultViewport() != FullHD {
		t.Errorf("DefaultViewport() = %+v, want FullHD", DefaultViewport())
	}
}

func TestViewportResolved(t *testing.T) {
	tests := []struct {
		in   Viewport
		want Viewport
	}{
		{Viewport{}, FullHD},
		{Viewport{Width: 800}, Viewport{Width: 800, Height: 1080}},
		{Viewport{Width: -1, Height: 600}, Viewport{Width: 1920, Height: 600}},
		{HD, HD},
	}
	for _, tt := range tests {
		if got := tt.in.resolved(); got != tt.want {
			t.Errorf("%+v.resolved() = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPageStatusString(t *testing.T) {
	tests := []struct {
		s    PageStatus
		want string
	}{
		{StatusPending, "pending"},
		{StatusCaptured, "captured"},
		{StatusSkipped, "skipped-existing"},
		{StatusFailed, "failed"},
		{PageStatus(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("PageStatus(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestProfileResolved_Zero(t *testing.T) {
	got := Profile{}.resolved()
	want := DefaultProfile()
	if got.ImageSelector != want.ImageSelector || got.TotalPattern != want.TotalPattern {
		t.Errorf("zero profile not resolved to defaults: %+v", got)
	}
	if len(got.NextSelectors) != 3 {
		t.Errorf("NextSelectors = %v, want 3 defaults", got.NextSelectors)
	}
	if got.DefaultTotal != DefaultTotalPages {
		t.Errorf("DefaultTotal = %d, want %d", got.DefaultTotal, DefaultTotalPages)
	}
}

func TestProfileResolved_KeepsOverrides(t *testing.T) {
	got := Profile{ImageSelector: "img.leaf", DefaultTotal: 12}.resolved()
	if got.ImageSelector != "img.leaf" {
		t.Errorf("ImageSelector = %q, want img.leaf", got.ImageSelector)
	}
	if got.DefaultTotal != 12 {
		t.Errorf("DefaultTotal = %d, want 12", got.DefaultTotal)
	}
	if got.WrapperSelector != DefaultProfile().WrapperSelector {
		t.Errorf("WrapperSelector = %q, want default", got.WrapperSelector)
	}
}

func TestProfileTotalPattern_Invalid(t *testing.T) {
	re := Profile{TotalPattern: "из (\\d+"}.totalPattern()
	if re.String() != DefaultProfile().TotalPattern {
		t.Errorf("invalid pattern compiled to %q, want default", re.String())
	}
}

func TestTimingResolved(t *testing.T) {
	got := Timing{InitialSettle: -1, PageTimeout: 3 * time.Second}.resolved()
	d := DefaultTiming()
	if got.InitialSettle != 0 {
		t.Errorf("negative InitialSettle = %v, want 0", got.InitialSettle)
	}
	if got.PageTimeout != 3*time.Second {
		t.Errorf("PageTimeout = %v, want 3s", got.PageTimeout)
	}
	if got.CaptureTimeout != d.CaptureTimeout {
		t.Errorf("CaptureTimeout = %v, want default %v", got.CaptureTimeout, d.CaptureTimeout)
	}
}

func TestNewConfig_ClampsAttempts(t *testing.T) {
	if got := newConfig([]Option{WithAttempts(0)}).attempts; got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if got := newConfig([]Option{WithAttempts(3)}).attempts; got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}
