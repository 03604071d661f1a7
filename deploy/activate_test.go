package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/erik777/runkod-cli/apiclients/runkod"
)

func TestActivate(t *testing.T) {

	tests := []struct {
		name          string
		active        bool
		now           bool
		confirm       func(string) bool
		activateErr   error
		wantActive    bool
		wantCalls     int
		wantPrompts   int
		wantErrIsBoom bool
	}{
		{"flag set activates without asking", false, true, no, nil, true, 1, 0, false},
		{"flag set on active deployment", true, true, no, nil, true, 1, 0, false},
		{"already active", true, false, no, nil, true, 0, 0, false},
		{"inactive confirmed", false, false, yes, nil, true, 1, 1, false},
		{"inactive declined", false, false, no, nil, false, 0, 1, false},
		{"activation fails", false, false, yes, errBoom, false, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.activateErr = tt.activateErr
			ui := &fakeUI{confirm: tt.confirm}
			d := runkod.Deployment{ID: "d-1", Active: tt.active}

			active, err := Activate(context.Background(), api, ui, "p-1", d, tt.now)
			if tt.wantErrIsBoom {
				if !errors.Is(err, errBoom) {
					t.Fatalf("expected boom, got %v", err)
				}
			} else if err != nil {
				t.Fatal(err)
			}
			if active != tt.wantActive {
				t.Errorf("active got %t want %t", active, tt.wantActive)
			}
			if got, want := api.calls["activate"], tt.wantCalls; got != want {
				t.Errorf("activate calls got %d want %d", got, want)
			}
			if got, want := len(ui.confirms), tt.wantPrompts; got != want {
				t.Errorf("prompts got %d want %d", got, want)
			}
			if tt.wantCalls == 1 && tt.activateErr == nil && api.activated[0] != "p-1/d-1" {
				t.Errorf("activated %v, want p-1/d-1", api.activated)
			}
		})
	}
}
