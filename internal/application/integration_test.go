package application_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"unified-control/internal/application"
	"unified-control/internal/domain"
	"unified-control/internal/infra/link"
	"unified-control/internal/infra/script"
	"unified-control/internal/infra/serialport"
)

// memoryPort is a serial port backed by buffers.
type memoryPort struct {
	mu       sync.Mutex
	incoming bytes.Buffer
	written  bytes.Buffer
	closed   bool
}

func (p *memoryPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, os.ErrClosed
	}
	if p.incoming.Len() > 0 {
		n, _ := p.incoming.Read(b)
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *memoryPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, os.ErrClosed
	}
	return p.written.Write(b)
}

func (p *memoryPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memoryPort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.incoming.WriteString(s)
}

func (p *memoryPort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func openMemoryLink(t *testing.T, role domain.Role, port *memoryPort) *link.Link {
	t.Helper()
	opts := link.DefaultOptions()
	opts.SettleDelay = 0
	opts.PollInterval = time.Millisecond
	opts.Opener = func(_ serialport.Config) (serialport.Port, error) { return port, nil }

	l, err := link.Open(context.Background(), role, "/dev/mem-"+string(role), opts, testLogger())
	if err != nil {
		t.Fatalf("opening %s link: %v", role, err)
	}
	return l
}

func TestIntegration_ScriptDrivesBothDevices(t *testing.T) {
	actuatorPort := &memoryPort{}
	lightingPort := &memoryPort{}
	lightingPort.feed("ESP32 ready\r\n")

	actuator := openMemoryLink(t, domain.RoleActuator, actuatorPort)
	lighting := openMemoryLink(t, domain.RoleLighting, lightingPort)

	inbox := application.NewInbox(16, nil)
	link.StartReceiver(actuator, inbox, testLogger())
	link.StartReceiver(lighting, inbox, testLogger())

	orchestrator := application.NewOrchestrator(
		application.NewRuleParser(),
		[]application.DeviceLink{actuator, lighting},
		nil,
		0,
		testLogger(),
	)

	path := filepath.Join(t.TempDir(), "commands.txt")
	if err := os.WriteFile(path, []byte("f,40\n# lamp follows\nb,30\nSTART,STEPPER\nq\n"), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	var out bytes.Buffer
	session := application.NewSession(
		orchestrator,
		inbox,
		&out,
		application.SessionConfig{ResponseWindow: 50 * time.Millisecond},
		testLogger(),
		script.NewSource(path, 0),
	)

	lightingPort.feed("WAVE_SPAWN n=3 speed=1.5 phase=0\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := session.Run(ctx); err != nil {
		t.Fatalf("session: %v", err)
	}
	orchestrator.Shutdown()

	if got, want := actuatorPort.output(), "f,40\nb,30\nSTART,STEPPER\ns\n"; got != want {
		t.Errorf("actuator frames: got %q, want %q", got, want)
	}
	if got, want := lightingPort.output(), "f,40\nf,70\nq\n"; got != want {
		t.Errorf("lighting frames: got %q, want %q", got, want)
	}

	text := out.String()
	for _, want := range []string{
		"[exec f,40]",
		"-> lighting: f,70",
		"<- lighting: ~ [wave] n=3, speed=1.5, phase=0",
		"exiting...",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ESP32 ready") {
		t.Error("boot greeting should be drained during open")
	}

	if actuator.State() != domain.LinkClosed || lighting.State() != domain.LinkClosed {
		t.Errorf("links should be closed after shutdown: %s, %s", actuator.State(), lighting.State())
	}
}
