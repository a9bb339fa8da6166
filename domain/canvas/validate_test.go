package canvas

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAction(t *testing.T) {
	twoPoints := []Point{{X: 1, Y: 1}, {X: 2, Y: 2}}

	tests := []struct {
		name    string
		action  Action
		wantErr error
	}{
		{
			name:   "valid stroke",
			action: Action{Kind: KindStroke, Tool: ToolBrush, Points: twoPoints, StrokeWidth: 3},
		},
		{
			name:   "valid filled shape",
			action: Action{Kind: KindShape, Tool: ToolRectangle, Points: twoPoints, Filled: true},
		},
		{
			name:   "single point stroke is not a validation error",
			action: Action{Kind: KindStroke, Tool: ToolBrush, Points: twoPoints[:1]},
		},
		{
			name:   "valid text",
			action: Action{Kind: KindText, Tool: ToolText, Points: twoPoints[:1], Text: "hello"},
		},
		{
			name:    "unknown kind",
			action:  Action{Kind: "clear", Tool: ToolBrush, Points: twoPoints},
			wantErr: ErrInvalidKind,
		},
		{
			name:    "unknown tool",
			action:  Action{Kind: KindStroke, Tool: "spray", Points: twoPoints},
			wantErr: ErrInvalidTool,
		},
		{
			name:    "select never produces an action",
			action:  Action{Kind: KindShape, Tool: ToolSelect, Points: twoPoints},
			wantErr: ErrInvalidTool,
		},
		{
			name:    "text without text",
			action:  Action{Kind: KindText, Tool: ToolText, Points: twoPoints[:1], Text: "  "},
			wantErr: ErrTextEmpty,
		},
		{
			name:    "negative stroke width",
			action:  Action{Kind: KindStroke, Tool: ToolBrush, Points: twoPoints, StrokeWidth: -1},
			wantErr: ErrStrokeWidth,
		},
		{
			name:    "too many points",
			action:  Action{Kind: KindStroke, Tool: ToolBrush, Points: make([]Point, MaxPointsPerAction+1)},
			wantErr: ErrTooManyPoints,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAction(tt.action)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAction() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	eraser := Action{Kind: KindStroke, Tool: ToolEraser, Color: "#ffffff", Filled: true, Text: "x"}
	Normalize(&eraser)
	if eraser.Color != EraseColor {
		t.Errorf("eraser Color = %q, want %q", eraser.Color, EraseColor)
	}
	if eraser.Filled {
		t.Error("eraser should not keep filled flag")
	}
	if eraser.Text != "" {
		t.Errorf("stroke Text = %q, want empty", eraser.Text)
	}

	circle := Action{Kind: KindShape, Tool: ToolCircle, Color: "#3b82f6", Filled: true}
	Normalize(&circle)
	if !circle.Filled || circle.Color != "#3b82f6" {
		t.Errorf("closed shape changed by Normalize: %+v", circle)
	}

	line := Action{Kind: KindShape, Tool: ToolLine, Filled: true}
	Normalize(&line)
	if line.Filled {
		t.Error("line should not keep filled flag")
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid", "Alice", nil},
		{"empty", "", ErrDisplayNameEmpty},
		{"whitespace", "   ", ErrDisplayNameEmpty},
		{"too long", strings.Repeat("a", MaxDisplayNameLength+1), ErrDisplayNameTooLong},
		{"max length", strings.Repeat("a", MaxDisplayNameLength), nil},
		{"invalid utf8", "\xff\xfe", ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateDisplayName(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDisplayName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRoomID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"r1", true},
		{"default", true},
		{"room_V1StGXR8_Z5jdHi6B-myT", true},
		{"", false},
		{"../etc/passwd", false},
		{"room 1", false},
		{"room/1", false},
		{strings.Repeat("a", MaxRoomIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateRoomID(tt.id)
			if tt.valid && err != nil {
				t.Errorf("ValidateRoomID(%q) unexpected error: %v", tt.id, err)
			}
			if !tt.valid && !errors.Is(err, ErrRoomIDInvalid) {
				t.Errorf("ValidateRoomID(%q) = %v, want ErrRoomIDInvalid", tt.id, err)
			}
		})
	}
}

func TestValidateRoomName(t *testing.T) {
	if err := ValidateRoomName("Design review"); err != nil {
		t.Errorf("ValidateRoomName() unexpected error: %v", err)
	}
	if err := ValidateRoomName(""); !errors.Is(err, ErrRoomNameEmpty) {
		t.Errorf("ValidateRoomName(\"\") = %v, want ErrRoomNameEmpty", err)
	}
	if err := ValidateRoomName(strings.Repeat("x", MaxRoomNameLength+1)); !errors.Is(err, ErrRoomNameTooLong) {
		t.Errorf("ValidateRoomName(long) = %v, want ErrRoomNameTooLong", err)
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"valid", "hi there", nil},
		{"empty", "", ErrMessageEmpty},
		{"too long", strings.Repeat("m", MaxMessageLength+1), ErrMessageTooLong},
		{"invalid utf8", "ok\xff", ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateMessage(tt.text); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
