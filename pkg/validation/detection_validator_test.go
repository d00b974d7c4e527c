package validation

import (
	"strings"
	"testing"
)

func TestNewDetectionValidator(t *testing.T) {
	validator := NewDetectionValidator()
	if validator == nil {
		t.Fatal("Expected non-nil detection validator")
	}
	if validator.thresholds != DefaultDetectionThresholds() {
		t.Errorf("Expected default thresholds, got %+v", validator.thresholds)
	}

	custom := NewDetectionValidatorWithThresholds(DetectionThresholds{MinWidth: 10, MinHeight: 20})
	if custom.thresholds.MinHeight != 20 {
		t.Errorf("Expected custom MinHeight 20, got %d", custom.thresholds.MinHeight)
	}
}

func TestValidate(t *testing.T) {
	validator := NewDetectionValidator()

	tests := []struct {
		name      string
		expected  int
		detected  int
		wantType  string
		wantCount int
	}{
		{"exact match", 14, 14, "", 0},
		{"partial", 14, 9, IssuePartialDetection, 1},
		{"extra", 9, 11, IssueExtraMarkers, 1},
		{"none", 9, 0, IssueNoMarkers, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validator.Validate(tt.expected, tt.detected)
			if len(issues) != tt.wantCount {
				t.Fatalf("Expected %d issues, got %+v", tt.wantCount, issues)
			}
			if tt.wantCount == 0 {
				return
			}
			if issues[0].Type != tt.wantType {
				t.Errorf("Expected %s, got %s", tt.wantType, issues[0].Type)
			}
			if issues[0].Severity != "warning" {
				t.Errorf("Detection issues are warnings, got %s", issues[0].Severity)
			}
			if issues[0].ActualValue != float64(tt.detected) {
				t.Errorf("ActualValue = %v, want %d", issues[0].ActualValue, tt.detected)
			}
		})
	}
}

func TestValidate_PartialMessage(t *testing.T) {
	issues := NewDetectionValidator().Validate(14, 9)
	if !strings.Contains(issues[0].Message, "9 of 14") {
		t.Errorf("unexpected message %q", issues[0].Message)
	}
}

func TestValidateImage(t *testing.T) {
	validator := NewDetectionValidator()

	if issues := validator.ValidateImage(1080, 1920); issues != nil {
		t.Errorf("Expected no issues for a full HD photo, got %+v", issues)
	}
	issues := validator.ValidateImage(200, 900)
	if !HasIssue(issues, IssueLowResolution) {
		t.Errorf("Expected low_resolution, got %+v", issues)
	}
	if issues[0].Severity != "info" {
		t.Errorf("Expected info severity, got %s", issues[0].Severity)
	}
}

func TestConvertIssuesToMessages(t *testing.T) {
	validator := NewDetectionValidator()
	issues := append(validator.Validate(4, 0), validator.ValidateImage(10, 10)...)

	messages := validator.ConvertIssuesToMessages(issues)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	for i, m := range messages {
		if m != issues[i].Message {
			t.Errorf("message %d = %q, want %q", i, m, issues[i].Message)
		}
	}

	if got := validator.ConvertIssuesToMessages(nil); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestHasIssue(t *testing.T) {
	issues := []DetectionIssue{{Type: IssueExtraMarkers}}
	if !HasIssue(issues, IssueExtraMarkers) {
		t.Error("Expected extra_markers to be found")
	}
	if HasIssue(issues, IssueNoMarkers) {
		t.Error("Did not expect no_markers")
	}
}

func TestValidatePhoto(t *testing.T) {
	validator := NewDetectionValidator()
	tests := []struct {
		name       string
		brightness float64
		sharpness  float64
		want       []string
	}{
		{"well exposed", 90, 150, nil},
		{"featureless", 0, 0, nil},
		{"at brightness limit", 220, 150, nil},
		{"overexposed", 240, 150, []string{IssueOverexposed}},
		{"blurry", 90, 2, []string{IssueBlurry}},
		{"both", 250, 1, []string{IssueOverexposed, IssueBlurry}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validator.ValidatePhoto(tt.brightness, tt.sharpness)
			if len(issues) != len(tt.want) {
				t.Fatalf("Expected %v, got %+v", tt.want, issues)
			}
			for i, typ := range tt.want {
				if issues[i].Type != typ || issues[i].Severity != "info" {
					t.Errorf("issue %d = %+v, want %s", i, issues[i], typ)
				}
			}
		})
	}
}
