package models

import (
	"testing"
	"time"
)

func TestActionIsValid(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   bool
	}{
		{"deploy", ActionDeploy, true},
		{"destroy", ActionDestroy, true},
		{"empty", Action(""), false},
		{"unknown", Action("redeploy"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcomeIsValid(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    bool
	}{
		{"succeeded", OutcomeSucceeded, true},
		{"failed", OutcomeFailed, true},
		{"empty", Outcome(""), false},
		{"unknown", Outcome("partial"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewDeploymentRecord(t *testing.T) {
	before := time.Now().UTC()
	record := NewDeploymentRecord("lambda-example", "lambda-example-role", "us-east-1", ActionDeploy)

	if record.ID == "" {
		t.Error("ID should not be empty")
	}
	if record.FunctionName != "lambda-example" {
		t.Errorf("FunctionName = %q, want %q", record.FunctionName, "lambda-example")
	}
	if record.RoleName != "lambda-example-role" {
		t.Errorf("RoleName = %q, want %q", record.RoleName, "lambda-example-role")
	}
	if record.Action != ActionDeploy {
		t.Errorf("Action = %q, want %q", record.Action, ActionDeploy)
	}
	if record.CreatedAt.Before(before) {
		t.Error("CreatedAt should not be before construction time")
	}

	other := NewDeploymentRecord("lambda-example", "lambda-example-role", "us-east-1", ActionDeploy)
	if other.ID == record.ID {
		t.Error("two records should not share an ID")
	}
}

func TestDeploymentRecordMarkers(t *testing.T) {
	record := NewDeploymentRecord("lambda-example", "lambda-example-role", "us-east-1", ActionDeploy)

	record.MarkSucceeded("https://abc123.lambda-url.us-east-1.on.aws/")
	if record.Outcome != OutcomeSucceeded {
		t.Errorf("Outcome = %q, want %q", record.Outcome, OutcomeSucceeded)
	}
	if record.URL == "" {
		t.Error("URL should be set after MarkSucceeded")
	}

	record.MarkFailed("create function: access denied")
	if record.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want %q", record.Outcome, OutcomeFailed)
	}
	if record.ErrorMessage == "" {
		t.Error("ErrorMessage should be set after MarkFailed")
	}
}
