package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jo  Reyes", "Jo Reyes"},
		{"  Jo Reyes  ", "Jo Reyes"},
		{"", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+1 (555) 010-2000", "+15550102000"},
		{"+15550102000", "+15550102000"},
		{"555.010.2000", "5550102000"},
		{"1+2", "12"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Phone(tt.input); got != tt.want {
				t.Errorf("Phone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDepartment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"camera", "Camera"},
		{"  camera   DEPT ", "Camera Dept"},
		{"Art", "Art"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Department(tt.input); got != tt.want {
				t.Errorf("Department(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	if got := Currency(" usd "); got != "USD" {
		t.Errorf("Currency: got %q", got)
	}
}

func TestQueryParam(t *testing.T) {
	if got := QueryParam("  Trimmed  "); got != "Trimmed" {
		t.Errorf("QueryParam: got %q", got)
	}
}
