package swarm

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/swarm/config"
)

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	tests := []struct {
		name        string
		in          *slog.Logger
		wantSame    bool
		wantEnabled bool
	}{
		{"custom", custom, true, true},
		{"nil restores silence", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogger(tt.in)
			got := Logger()
			if got == nil {
				t.Fatal("Logger() = nil")
			}
			if (got == tt.in) != tt.wantSame {
				t.Errorf("Logger() == input is %v, want %v", got == tt.in, tt.wantSame)
			}
			if on := got.Enabled(context.Background(), slog.LevelWarn); on != tt.wantEnabled {
				t.Errorf("Enabled(Warn) = %v, want %v", on, tt.wantEnabled)
			}
		})
	}
}

func TestEngineSilentByDefault(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("package logger enabled before SetLogger")
	}
	e := newTestEngine(t, smallOptions())
	if e.log.Enabled(context.Background(), slog.LevelError) {
		t.Error("engine logs without SetLogger or WithLogger")
	}
}

func TestEngineLogsWithSessionID(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	e := newTestEngine(t, smallOptions())
	if !strings.Contains(buf.String(), "swarm: built") {
		t.Fatalf("expected build record, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "session="+e.ID().String()) {
		t.Errorf("build record missing session id %s: %s", e.ID(), buf.String())
	}
}

func TestWithLoggerOverridesPackageLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var pkg, own bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&pkg, nil)))

	newTestEngine(t, smallOptions(), WithLogger(slog.New(slog.NewTextHandler(&own, nil))))
	if pkg.Len() != 0 {
		t.Errorf("package logger received records: %s", pkg.String())
	}
	if !strings.Contains(own.String(), "swarm: built") {
		t.Errorf("WithLogger logger missing build record: %s", own.String())
	}
}

func TestEngineKeepsLoggerFromNew(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var first, second bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&first, nil)))
	e, sess := newTestSession(t, smallOptions())

	SetLogger(slog.New(slog.NewTextHandler(&second, nil)))
	sess.UpdateOptions(func(o *config.Options) { o.Count = 50 })
	if _, err := e.Tick(time.Unix(0, 0)); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(first.String(), "swarm: built"); got != 2 {
		t.Errorf("first logger has %d build records, want 2:\n%s", got, first.String())
	}
	if second.Len() != 0 {
		t.Errorf("logger set after New received records: %s", second.String())
	}
}
