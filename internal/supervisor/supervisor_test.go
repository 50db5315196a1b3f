package supervisor

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
	"go.uber.org/goleak"
)

func sleepCommand() (string, []string) {
	if os.PathSeparator == '\\' {
		return "cmd", []string{"/C", "timeout", "/T", "30"}
	}
	return "sleep", []string{"30"}
}

func TestStart_AlreadyRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	if _, err := exec.LookPath(mustSleepBinary(t)); err != nil {
		t.Skip("sleep binary not available")
	}

	bin, args := sleepCommand()
	s := New(bin, args, "")
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(ctx) }()

	err := s.Start(ctx)
	var alreadyRunning *ctlerr.AlreadyRunningError
	if err == nil {
		t.Fatal("expected AlreadyRunningError on second Start")
	}
	if !asAlreadyRunning(err, &alreadyRunning) {
		t.Errorf("expected AlreadyRunningError, got %v", err)
	}
}

func TestStop_NotRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New("irrelevant", nil, "")
	err := s.Stop(context.Background())
	var notRunning *ctlerr.NotRunningError
	if !asNotRunning(err, &notRunning) {
		t.Errorf("expected NotRunningError, got %v", err)
	}
}

func TestStatus_ReflectsLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	bin, args := sleepCommand()
	if _, err := exec.LookPath(mustSleepBinary(t)); err != nil {
		t.Skip("sleep binary not available")
	}

	s := New(bin, args, "")
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	running, pid := s.Status()
	if !running || pid == 0 {
		t.Errorf("expected running=true with a pid, got running=%v pid=%d", running, pid)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	running, _ = s.Status()
	if running {
		t.Error("expected running=false after Stop")
	}
}

func mustSleepBinary(t *testing.T) string {
	t.Helper()
	bin, _ := sleepCommand()
	return bin
}

func asAlreadyRunning(err error, target **ctlerr.AlreadyRunningError) bool {
	e, ok := err.(*ctlerr.AlreadyRunningError)
	if ok {
		*target = e
	}
	return ok
}

func asNotRunning(err error, target **ctlerr.NotRunningError) bool {
	e, ok := err.(*ctlerr.NotRunningError)
	if ok {
		*target = e
	}
	return ok
}
