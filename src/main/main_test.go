package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ctrl-ai/src/llm"
	"ctrl-ai/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"ctrl-ai", "-headless", "-api-key-path", "/tmp/key"},
			out:  []string{"ctrl-ai", "--headless", "--api-key-path", "/tmp/key"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"ctrl-ai", "-headless=true", "-api-key-path=/tmp/key"},
			out:  []string{"ctrl-ai", "--headless=true", "--api-key-path=/tmp/key"},
		},
		{
			name: "Leaves other args unchanged",
			in:   []string{"ctrl-ai", "trigger", "refactor", "--other"},
			out:  []string{"ctrl-ai", "trigger", "refactor", "--other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--headless", "--api-key-path", "/tmp/key"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if !opts.headless || opts.apiKeyPath != "/tmp/key" {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestTriggerCmdRejectsUnknownMode(t *testing.T) {
	cmd := newRootCmd(&mainOptions{})
	cmd.SetArgs([]string{"trigger", "poetry"})
	err := cmd.Execute()
	if !errors.Is(err, llm.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}

type fakeClient struct {
	delegated bool
	err       error
	mode      string
}

func (f *fakeClient) TryTrigger(ctx context.Context, mode string) (bool, error) {
	f.mode = mode
	return f.delegated, f.err
}

func TestDelegateTrigger(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		wantErr string
	}{
		{name: "delegated", client: &fakeClient{delegated: true}},
		{name: "no resident", client: &fakeClient{}, wantErr: "no running ctrl-ai instance"},
		{name: "busy", client: &fakeClient{delegated: true, err: singleinstance.ErrBusy}, wantErr: "busy"},
		{name: "other error", client: &fakeClient{delegated: true, err: errors.New("reset")}, wantErr: "reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := delegateTrigger(context.Background(), tt.client, llm.ModeRedactor)
			if tt.client.mode != "redactor" {
				t.Errorf("client saw mode %q", tt.client.mode)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestHotkeyBindingsSkipsUnknownModes(t *testing.T) {
	got := hotkeyBindings(map[string]string{
		"refactor": " Ctrl+Shift+H ",
		"poetry":   "Ctrl+P",
	})
	if len(got) != 1 || got[llm.ModeRefactor] != "Ctrl+Shift+H" {
		t.Fatalf("bindings = %v", got)
	}
}
